package humanoid

import (
	"context"
	"testing"
	"time"

	"github.com/reubingeorge/undetected-chromedriver-go/api/schemas"
	"github.com/reubingeorge/undetected-chromedriver-go/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// instantSleeper collapses all pauses so behavior tests run instantly.
type instantSleeper struct{}

func (instantSleeper) Sleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func newTestSimulator(caps schemas.Capabilities) *Simulator {
	s := NewSeeded(caps, ProfileFast, zap.NewNop(), 1, 1234)
	s.SetSleeper(instantSleeper{})
	return s
}

func TestPauseHonorsCancellation(t *testing.T) {
	s := NewSeeded(schemas.Capabilities{}, ProfileNormal, zap.NewNop(), 1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := s.Pause(ctx, 5*time.Second, 10*time.Second)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPauseClampsInvertedRange(t *testing.T) {
	s := NewSeeded(schemas.Capabilities{}, ProfileNormal, zap.NewNop(), 1, 1)

	start := time.Now()
	err := s.Pause(context.Background(), 10*time.Millisecond, 5*time.Millisecond)
	require.NoError(t, err)
	// Clamped to the lower bound, not rejected and not the larger value.
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSetProfile(t *testing.T) {
	s := newTestSimulator(schemas.Capabilities{})
	assert.Equal(t, "fast", s.Profile().Name)
	s.SetProfile(ProfileCareful)
	assert.Equal(t, "careful", s.Profile().Name)
}

func TestProfileByName(t *testing.T) {
	assert.Equal(t, "fast", ProfileByName("FAST").Name)
	assert.Equal(t, "careful", ProfileByName("careful").Name)
	assert.Equal(t, "normal", ProfileByName("bogus").Name)
}

func TestClickFallsBackToElementClick(t *testing.T) {
	el := &mocks.MockElement{}
	el.On("Click", mock.Anything).Return(nil)

	// No pointer and no script port: the sequence degrades to the plain
	// element click without erroring.
	s := newTestSimulator(schemas.Capabilities{})
	require.NoError(t, s.Click(context.Background(), el))
	el.AssertCalled(t, "Click", mock.Anything)
}

func TestTypeSendsEveryKey(t *testing.T) {
	el := &mocks.MockElement{}
	el.On("Click", mock.Anything).Return(nil)
	el.On("SendKeys", mock.Anything, mock.Anything).Return(nil)

	s := newTestSimulator(schemas.Capabilities{})
	// Uppercase input cannot trigger the typo branch, so key count is exact.
	text := "HELLO, WORLD 42!"
	require.NoError(t, s.Type(context.Background(), el, text))
	el.AssertNumberOfCalls(t, "SendKeys", len(text))
}

func TestMoveToElementLandsInsideElement(t *testing.T) {
	el := &mocks.MockElement{}
	el.On("Location", mock.Anything).Return(schemas.Point{X: 200, Y: 100}, nil)
	el.On("Size", mock.Anything).Return(schemas.Size{Width: 80, Height: 40}, nil)

	pointer := &mocks.MockPointer{}
	pointer.On("MoveBy", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	s := newTestSimulator(schemas.Capabilities{Pointer: pointer})
	require.NoError(t, s.MoveToElement(context.Background(), el))

	cur := s.Cursor()
	assert.GreaterOrEqual(t, cur.X, 200.0)
	assert.LessOrEqual(t, cur.X, 280.0)
	assert.GreaterOrEqual(t, cur.Y, 100.0)
	assert.LessOrEqual(t, cur.Y, 140.0)
	pointer.AssertCalled(t, "MoveBy", mock.Anything, mock.Anything, mock.Anything)
}

func TestScrollToWalksIncrementally(t *testing.T) {
	exec := &mocks.MockScriptExecutor{}
	exec.On("ExecuteScript", mock.Anything, "window.pageYOffset || 0", mock.Anything).Return(float64(0), nil)
	exec.On("ExecuteScript", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	s := newTestSimulator(schemas.Capabilities{Script: exec})
	require.NoError(t, s.ScrollTo(context.Background(), 1000))

	// One offset read plus eleven scroll steps.
	exec.AssertNumberOfCalls(t, "ExecuteScript", 12)
}

func TestHesitatePacesOnSleeperTicks(t *testing.T) {
	pointer := &mocks.MockPointer{}
	pointer.On("MoveBy", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	s := newTestSimulator(schemas.Capabilities{Pointer: pointer})

	// With an instant sleeper the drift loop must still account one tick
	// of simulated time per iteration: 500ms at 50ms ticks is exactly ten
	// moves, and the whole call returns without consuming wall time.
	start := time.Now()
	require.NoError(t, s.hesitate(context.Background(), 500*time.Millisecond))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	pointer.AssertNumberOfCalls(t, "MoveBy", 10)
}

func TestRandomActionsAbsorbsPortFailures(t *testing.T) {
	pointer := &mocks.MockPointer{}
	pointer.On("MoveBy", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)
	pointer.On("SendKeys", mock.Anything, mock.Anything).Return(assert.AnError)

	exec := &mocks.MockScriptExecutor{}
	exec.On("ExecuteScript", mock.Anything, mock.Anything, mock.Anything).Return(nil, assert.AnError)

	s := newTestSimulator(schemas.Capabilities{Pointer: pointer, Script: exec})
	assert.NoError(t, s.RandomActions(context.Background()))
}

func TestBehaviorsAreNoOpsWithoutPorts(t *testing.T) {
	s := newTestSimulator(schemas.Capabilities{})
	ctx := context.Background()

	assert.NoError(t, s.ScrollTo(ctx, 500))
	assert.NoError(t, s.InitialPageScan(ctx))
	assert.NoError(t, s.MoveToElement(ctx, nil))
	assert.NoError(t, s.RandomActions(ctx))
}
