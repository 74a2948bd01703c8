// Package humanoid simulates human motion and timing on top of the browser
// ports: curved pointer paths, incremental scrolling, variable-delay typing
// and context-aware pauses. All randomness flows through one injected RNG so
// tests can seed it.
package humanoid

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"
	"github.com/reubingeorge/undetected-chromedriver-go/api/schemas"
	"go.uber.org/zap"
)

// jitterPx is the control point displacement bound for pointer paths.
const jitterPx = 50.0

// Sleeper abstracts the pause primitive so tests can collapse time.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Simulator drives the browser ports with human-like behavior. Public
// methods lock; internal helpers assume the lock is held where noted.
type Simulator struct {
	mu      sync.Mutex
	caps    schemas.Capabilities
	profile Profile
	rng     *rand.Rand
	sleeper Sleeper
	logger  *zap.Logger

	// Virtual cursor position, tracked so relative pointer moves stay
	// consistent across actions.
	cursor schemas.Point

	// Perlin noise pair for idle cursor drift during hesitation.
	noiseX *perlin.Perlin
	noiseY *perlin.Perlin
	noiseT float64
}

// New creates a Simulator seeded from the clock.
func New(caps schemas.Capabilities, profile Profile, logger *zap.Logger, instanceID int) *Simulator {
	return NewSeeded(caps, profile, logger, instanceID, time.Now().UnixNano())
}

// NewSeeded creates a Simulator with a deterministic RNG seed.
func NewSeeded(caps schemas.Capabilities, profile Profile, logger *zap.Logger, instanceID int, seed int64) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	const alpha, beta, n = 2.0, 2.0, int32(3)
	return &Simulator{
		caps:    caps,
		profile: profile,
		rng:     rand.New(rand.NewSource(seed)),
		sleeper: realSleeper{},
		logger:  logger.Named("humanoid").With(zap.Int("instance_id", instanceID)),
		noiseX:  perlin.NewPerlin(alpha, beta, n, seed),
		noiseY:  perlin.NewPerlin(alpha, beta, n, seed+1),
	}
}

// SetSleeper swaps the pause primitive. Tests use this to run instantly.
func (s *Simulator) SetSleeper(sl Sleeper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl != nil {
		s.sleeper = sl
	}
}

// SetProfile switches the active behavior profile at runtime.
func (s *Simulator) SetProfile(p Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
	s.logger.Debug("behavior profile changed", zap.String("profile", p.Name))
}

// Profile returns the active behavior profile.
func (s *Simulator) Profile() Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Cursor returns the tracked virtual cursor position.
func (s *Simulator) Cursor() schemas.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Pause sleeps for a random duration in [min, max), honoring context
// cancellation. Inverted or negative bounds are clamped rather than
// rejected. This is the single pause primitive every behavior goes through.
func (s *Simulator) Pause(ctx context.Context, min, max time.Duration) error {
	s.mu.Lock()
	d := s.randDuration(min, max)
	sl := s.sleeper
	s.mu.Unlock()
	return sl.Sleep(ctx, d)
}

// pauseRange is Pause over a profile Range.
func (s *Simulator) pauseRange(ctx context.Context, r Range) error {
	return s.Pause(ctx, r.Min, r.Max)
}

// randDuration samples [min, max) with defensive clamping. Lock held.
func (s *Simulator) randDuration(min, max time.Duration) time.Duration {
	if min < 0 {
		min = 0
	}
	if max <= min {
		return min
	}
	return min + time.Duration(s.rng.Int63n(int64(max-min)))
}

// randBetween samples an integer in [min, max]. Lock held.
func (s *Simulator) randBetween(min, max int) int {
	if max <= min {
		return min
	}
	return min + s.rng.Intn(max-min+1)
}

// chance rolls a probability in [0,1). Lock held.
func (s *Simulator) chance(p float64) bool {
	return s.rng.Float64() < p
}

// hesitate idles for d while drifting the cursor along Perlin noise, when a
// pointer is available. Without one it degrades to a plain pause.
func (s *Simulator) hesitate(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	pointer := s.caps.Pointer
	sl := s.sleeper
	s.mu.Unlock()

	if pointer == nil {
		return sl.Sleep(ctx, d)
	}

	// Elapsed time is accumulated from the ticks handed to the sleeper,
	// not read from the clock, so a substituted sleeper controls pacing.
	const tick = 50 * time.Millisecond
	for elapsed := time.Duration(0); elapsed < d; elapsed += tick {
		s.mu.Lock()
		s.noiseT += 0.01
		dx := s.noiseX.Noise1D(s.noiseT) * 2
		dy := s.noiseY.Noise1D(s.noiseT) * 2
		s.cursor.X += dx
		s.cursor.Y += dy
		s.mu.Unlock()

		if err := pointer.MoveBy(ctx, dx, dy); err != nil {
			// Drift is cosmetic; sleep out the remainder instead.
			return sl.Sleep(ctx, d-elapsed)
		}
		if err := sl.Sleep(ctx, tick); err != nil {
			return err
		}
	}
	return nil
}
