package botdetect

import (
	"context"
	"strings"
	"time"

	"github.com/reubingeorge/undetected-chromedriver-go/api/schemas"
	"github.com/reubingeorge/undetected-chromedriver-go/internal/humanoid"
	"go.uber.org/zap"
)

// DefaultResolveTimeout bounds the passive wait phase of resolution.
const DefaultResolveTimeout = 30 * time.Second

// interactionSelectors are the widgets a challenge page may want clicked,
// in preference order.
var interactionSelectors = []string{"button", "input[type='submit']", ".challenge-button"}

// Resolver walks a challenge page through the resolution strategies:
// slow down, wait it out, then interact like a person would. Resolution is
// best-effort and reports only success or failure.
type Resolver struct {
	detector *Detector
	sim      *humanoid.Simulator
	caps     schemas.Capabilities
	logger   *zap.Logger
}

// NewResolver builds a resolver sharing the session's detector and
// motion simulator.
func NewResolver(detector *Detector, sim *humanoid.Simulator, caps schemas.Capabilities, logger *zap.Logger, instanceID int) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		detector: detector,
		sim:      sim,
		caps:     caps,
		logger:   logger.Named("resolver").With(zap.Int("instance_id", instanceID)),
	}
}

// Resolve attempts to clear the active challenge within timeout. It slows
// the behavior profile to careful, settles, waits for the challenge to pass
// on its own, and failing that interacts with the page before one final
// check. The caller's profile is not restored; careful is the right speed
// for a site that just challenged us.
func (r *Resolver) Resolve(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	r.logger.Info("attempting challenge resolution", zap.Duration("timeout", timeout))

	r.sim.SetProfile(humanoid.ProfileCareful)

	// Settle before doing anything; challenges watch for instant activity.
	if err := r.sim.Pause(ctx, 2*time.Second, 2*time.Second); err != nil {
		return false
	}

	if r.waitForResolution(ctx, timeout) {
		r.logger.Info("challenge resolved passively")
		return true
	}

	r.performNaturalInteraction(ctx)

	resolved := !r.detector.IsChallengeActive(ctx)
	if resolved {
		r.logger.Info("challenge resolved after interaction")
	} else {
		r.logger.Warn("challenge resolution failed")
	}
	return resolved
}

// waitForResolution polls until the page stops looking like a challenge or
// the timeout elapses.
func (r *Resolver) waitForResolution(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if r.challengeCleared(ctx) {
			return true
		}
		if err := r.sim.Pause(ctx, 500*time.Millisecond, 500*time.Millisecond); err != nil {
			return false
		}
	}
	return false
}

// challengeCleared is the poll predicate: no challenge text and not parked
// on a challenge URL.
func (r *Resolver) challengeCleared(ctx context.Context) bool {
	if r.caps.Page == nil {
		return false
	}
	source, err := r.caps.Page.PageSource(ctx)
	if err != nil {
		return false
	}
	lower := strings.ToLower(source)
	for _, indicator := range cloudflareIndicators {
		if strings.Contains(lower, indicator) {
			return false
		}
	}
	return !r.detector.OnChallengePage(ctx)
}

// performNaturalInteraction behaves like a mildly confused person: idle
// activity bursts, then a click on whatever actionable widget the
// challenge presents. Every failure is absorbed.
func (r *Resolver) performNaturalInteraction(ctx context.Context) {
	for i := 0; i < 3; i++ {
		if err := r.sim.RandomActions(ctx); err != nil {
			return
		}
		delay := time.Duration(500+i*200) * time.Millisecond
		if err := r.sim.Pause(ctx, delay, delay); err != nil {
			return
		}
	}

	if r.caps.Elements == nil {
		return
	}
	for _, selector := range interactionSelectors {
		el, err := r.caps.Elements.FindElement(ctx, selector)
		if err != nil || el == nil {
			continue
		}
		displayed, err := el.IsDisplayed(ctx)
		if err != nil || !displayed {
			continue
		}
		enabled, err := el.IsEnabled(ctx)
		if err != nil || !enabled {
			continue
		}

		if err := r.sim.Click(ctx, el); err != nil {
			r.logger.Debug("challenge interaction click failed",
				zap.String("selector", selector),
				zap.Error(err))
			continue
		}
		// Give the widget time to submit before the final check.
		_ = r.sim.Pause(ctx, 1500*time.Millisecond, 2500*time.Millisecond)
		return
	}
}
