package humanoid

import (
	"math"
	"math/rand"

	"github.com/reubingeorge/undetected-chromedriver-go/api/schemas"
)

// EaseInOutCubic is the easing applied along pointer paths. Slow start,
// fast middle, slow end.
func EaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// BezierPoint evaluates a cubic Bezier curve between start and end at
// parameter t. The two control points sit at 25% and 75% of the straight
// line, each displaced by independent uniform jitter in [-jitter, jitter)
// per axis. Endpoints are exact at t=0 and t=1 regardless of jitter.
func BezierPoint(start, end schemas.Point, t, jitter float64, rng *rand.Rand) schemas.Point {
	c1 := schemas.Point{
		X: start.X + (end.X-start.X)*0.25 + uniform(rng, jitter),
		Y: start.Y + (end.Y-start.Y)*0.25 + uniform(rng, jitter),
	}
	c2 := schemas.Point{
		X: start.X + (end.X-start.X)*0.75 + uniform(rng, jitter),
		Y: start.Y + (end.Y-start.Y)*0.75 + uniform(rng, jitter),
	}

	u := 1 - t
	b0 := u * u * u
	b1 := 3 * u * u * t
	b2 := 3 * u * t * t
	b3 := t * t * t

	return schemas.Point{
		X: b0*start.X + b1*c1.X + b2*c2.X + b3*end.X,
		Y: b0*start.Y + b1*c1.Y + b2*c2.Y + b3*end.Y,
	}
}

// PlanMousePath samples a jittered Bezier curve into steps+1 points from
// start to end. Control points are re-rolled on every sample, so the path
// wavers the way a hand does instead of tracing one smooth arc.
func PlanMousePath(start, end schemas.Point, steps int, jitter float64, rng *rand.Rand) []schemas.Point {
	if steps < 1 {
		steps = 1
	}
	path := make([]schemas.Point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		path = append(path, BezierPoint(start, end, t, jitter, rng))
	}
	return path
}

// PlanScrollSteps splits a vertical scroll from currentY to targetY into
// intermediate positions, one step per ~100px with a floor of 5 steps.
// Positions advance along the cubic easing curve, so the scroll accelerates
// then settles. The result includes both endpoints; the last entry is
// exactly targetY.
func PlanScrollSteps(currentY, targetY int) []int {
	distance := targetY - currentY
	steps := int(math.Abs(float64(distance)) / 100)
	if steps < 5 {
		steps = 5
	}

	positions := make([]int, 0, steps+1)
	for i := 0; i <= steps; i++ {
		eased := EaseInOutCubic(float64(i) / float64(steps))
		positions = append(positions, currentY+int(float64(distance)*eased))
	}
	positions[len(positions)-1] = targetY
	return positions
}

func uniform(rng *rand.Rand, bound float64) float64 {
	if bound <= 0 {
		return 0
	}
	return (rng.Float64()*2 - 1) * bound
}
