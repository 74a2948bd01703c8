package humanoid

import (
	"math"
	"math/rand"
	"testing"

	"github.com/reubingeorge/undetected-chromedriver-go/api/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEaseInOutCubic(t *testing.T) {
	assert.InDelta(t, 0.0, EaseInOutCubic(0), 1e-9)
	assert.InDelta(t, 1.0, EaseInOutCubic(1), 1e-9)
	assert.InDelta(t, 0.5, EaseInOutCubic(0.5), 1e-9)

	// Monotonically non-decreasing across the unit interval.
	prev := EaseInOutCubic(0)
	for i := 1; i <= 100; i++ {
		cur := EaseInOutCubic(float64(i) / 100)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestBezierPointEndpointsExact(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	start := schemas.Point{X: 10, Y: 20}
	end := schemas.Point{X: 500, Y: 300}

	// Jitter displaces only the control points, so the endpoints must be
	// exact even with a large jitter bound.
	p0 := BezierPoint(start, end, 0, 50, rng)
	assert.InDelta(t, start.X, p0.X, 1e-9)
	assert.InDelta(t, start.Y, p0.Y, 1e-9)

	p1 := BezierPoint(start, end, 1, 50, rng)
	assert.InDelta(t, end.X, p1.X, 1e-9)
	assert.InDelta(t, end.Y, p1.Y, 1e-9)
}

func TestPlanMousePath(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	start := schemas.Point{X: 0, Y: 0}
	end := schemas.Point{X: 400, Y: 250}

	path := PlanMousePath(start, end, 20, 50, rng)
	require.Len(t, path, 21)
	assert.InDelta(t, start.X, path[0].X, 1e-9)
	assert.InDelta(t, start.Y, path[0].Y, 1e-9)
	assert.InDelta(t, end.X, path[len(path)-1].X, 1e-9)
	assert.InDelta(t, end.Y, path[len(path)-1].Y, 1e-9)
}

func TestPlanMousePathRerollsJitterPerStep(t *testing.T) {
	start := schemas.Point{X: 0, Y: 0}
	end := schemas.Point{X: 400, Y: 250}

	// A path with per-step jitter consumes two control points' worth of
	// randomness at every sample. With one shared roll, paths from RNGs
	// that agree on the first four draws would coincide mid-curve; fresh
	// rolls mean consecutive interior points never sit on one smooth arc.
	path := PlanMousePath(start, end, 20, 50, rand.New(rand.NewSource(7)))
	smooth := PlanMousePath(start, end, 20, 0, rand.New(rand.NewSource(7)))

	deviates := 0
	for i := 1; i < len(path)-1; i++ {
		if math.Abs(path[i].X-smooth[i].X) > 1e-9 || math.Abs(path[i].Y-smooth[i].Y) > 1e-9 {
			deviates++
		}
	}
	// Every interior point carries its own jitter, not just the shape of
	// a single pre-rolled pair of control points.
	assert.Equal(t, len(path)-2, deviates)

	a := PlanMousePath(start, end, 20, 50, rand.New(rand.NewSource(9)))
	b := PlanMousePath(start, end, 20, 50, rand.New(rand.NewSource(9)))
	assert.Equal(t, a, b, "same seed must reproduce the same waver")
}

func TestPlanMousePathVariesBetweenRuns(t *testing.T) {
	start := schemas.Point{X: 0, Y: 0}
	end := schemas.Point{X: 400, Y: 250}

	a := PlanMousePath(start, end, 20, 50, rand.New(rand.NewSource(1)))
	b := PlanMousePath(start, end, 20, 50, rand.New(rand.NewSource(2)))

	// Different jitter rolls must bend the curve differently mid-path.
	assert.NotEqual(t, a[10], b[10])
}

func TestPlanScrollSteps(t *testing.T) {
	t.Run("long scroll splits by distance", func(t *testing.T) {
		steps := PlanScrollSteps(0, 1000)
		require.Len(t, steps, 11)
		assert.Equal(t, 0, steps[0])
		assert.Equal(t, 1000, steps[len(steps)-1])
	})

	t.Run("positions follow the easing curve", func(t *testing.T) {
		steps := PlanScrollSteps(0, 1000)
		// ease(0.1)=0.004, ease(0.2)=0.032, ease(0.5)=0.5, ease(0.9)=0.996:
		// slow start, fast middle, slow finish, never linear spacing.
		assert.Equal(t, 4, steps[1])
		assert.Equal(t, 32, steps[2])
		assert.Equal(t, 500, steps[5])
		assert.Equal(t, 996, steps[9])
	})

	t.Run("short scroll keeps minimum granularity", func(t *testing.T) {
		steps := PlanScrollSteps(100, 150)
		require.Len(t, steps, 6)
		assert.Equal(t, 150, steps[len(steps)-1])
	})

	t.Run("upward scroll is monotonic", func(t *testing.T) {
		steps := PlanScrollSteps(900, 100)
		assert.Equal(t, 100, steps[len(steps)-1])
		for i := 1; i < len(steps); i++ {
			assert.LessOrEqual(t, steps[i], steps[i-1])
		}
	})

	t.Run("zero distance lands on target", func(t *testing.T) {
		steps := PlanScrollSteps(300, 300)
		assert.Equal(t, 300, steps[len(steps)-1])
	})
}
