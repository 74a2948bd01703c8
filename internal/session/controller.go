// Package session ties the anti-detection components together around one
// browser session: lifecycle, the navigation pipeline and the shared
// background pool.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/reubingeorge/undetected-chromedriver-go/api/schemas"
	"github.com/reubingeorge/undetected-chromedriver-go/internal/botdetect"
	"github.com/reubingeorge/undetected-chromedriver-go/internal/config"
	"github.com/reubingeorge/undetected-chromedriver-go/internal/fingerprint"
	"github.com/reubingeorge/undetected-chromedriver-go/internal/humanoid"
	"github.com/reubingeorge/undetected-chromedriver-go/internal/stealth"
	"go.uber.org/zap"
)

// State is a session's lifecycle phase. Transitions only move forward.
type State int32

const (
	StateCreated State = iota
	StateInitializing
	StateActive
	StateQuitting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateQuitting:
		return "quitting"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ErrSessionQuitting is returned for operations attempted on a session
// that has begun shutting down. It is the only error class a session
// surfaces for its own lifecycle; environmental failures are absorbed.
var ErrSessionQuitting = errors.New("session is shutting down")

// instanceCounter hands out session ids, monotonically per process.
var instanceCounter atomic.Int64

// Controller owns one anti-detection browser session.
type Controller struct {
	id     int
	cfg    *config.Config
	caps   schemas.Capabilities
	logger *zap.Logger
	pool   *Pool

	sim      *humanoid.Simulator
	stealth  *stealth.Injector
	mutator  *fingerprint.Mutator
	detector *botdetect.Detector
	resolver *botdetect.Resolver
	monitor  *botdetect.Monitor

	state        atomic.Int32
	implicitWait time.Duration
}

// NewController wires a session over the given capability set. The session
// starts in the created state; call Initialize before navigating.
func NewController(cfg *config.Config, caps schemas.Capabilities, logger *zap.Logger, pool *Pool) *Controller {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pool == nil {
		pool = DefaultPool()
	}

	id := int(instanceCounter.Add(1))
	log := logger.Named("session").With(zap.Int("instance_id", id))

	c := &Controller{
		id:     id,
		cfg:    cfg,
		caps:   caps,
		logger: log,
		pool:   pool,
	}
	c.sim = humanoid.New(caps, humanoid.ProfileByName(cfg.Driver.BehaviorProfile), logger, id)
	c.stealth = stealth.NewInjector(caps.Script, logger, id)
	c.mutator = fingerprint.NewMutator(caps.Script, logger, id, c.Active)
	c.detector = botdetect.NewDetector(caps, logger, id)
	c.resolver = botdetect.NewResolver(c.detector, c.sim, caps, logger, id)
	c.monitor = botdetect.NewMonitor(caps.Script, logger, id)
	return c
}

// Initialize arms the session: jittered implicit wait, deferred stealth
// application on the shared pool, challenge monitoring and, when enabled,
// the fingerprint rotation schedule.
func (c *Controller) Initialize(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateCreated), int32(StateInitializing)) {
		return fmt.Errorf("session %d: already initialized (state %s)", c.id, c.State())
	}

	// The implicit wait carries a +-100ms jitter so sessions don't share
	// an identical, machine-precise timeout.
	jitter := time.Duration(rand.Int63n(int64(200*time.Millisecond))) - 100*time.Millisecond
	c.implicitWait = c.cfg.Driver.ImplicitWait + jitter
	if c.implicitWait < 0 {
		c.implicitWait = 0
	}

	// Stealth is applied off the caller's path, shortly after startup,
	// so session construction stays fast.
	delay := 200*time.Millisecond + time.Duration(rand.Int63n(int64(200*time.Millisecond)))
	c.pool.Schedule(delay, func() {
		if !c.Active() {
			return
		}
		c.stealth.Apply(context.Background())
		c.monitor.ApplyTimingJitter(context.Background())
	})

	c.monitor.Start(ctx)
	if c.cfg.Driver.RandomizeFingerprint {
		c.mutator.Start()
	}

	c.state.Store(int32(StateActive))
	c.logger.Info("session initialized",
		zap.Duration("implicit_wait", c.implicitWait),
		zap.String("profile", c.sim.Profile().Name),
		zap.Bool("human_behavior", c.cfg.Driver.HumanBehavior))
	return nil
}

// Navigate runs the full navigation pipeline: back off if rate limited,
// pre-delay, drive the browser, settle and skim like a person, then detect
// and resolve any challenge before handing the page back. Challenge
// resolution failure is logged, not returned; the page is still loaded.
func (c *Controller) Navigate(ctx context.Context, url string) error {
	if s := c.State(); s >= StateQuitting {
		return fmt.Errorf("session %d: navigate to %s: %w", c.id, url, ErrSessionQuitting)
	}
	if c.caps.Navigator == nil {
		return fmt.Errorf("session %d: no navigator capability", c.id)
	}

	human := c.cfg.Driver.HumanBehavior

	if wait := c.detector.RecommendedWait(ctx); wait > 0 {
		c.logger.Info("rate limited, backing off", zap.Duration("wait", wait))
		if err := c.sim.Pause(ctx, wait, wait); err != nil {
			return fmt.Errorf("session %d: %w", c.id, err)
		}
	}

	var preMin, preMax time.Duration
	if human {
		preMin, preMax = 500*time.Millisecond, 1500*time.Millisecond
	} else {
		preMin, preMax = 50*time.Millisecond, 200*time.Millisecond
	}
	if err := c.sim.Pause(ctx, preMin, preMax); err != nil {
		return fmt.Errorf("session %d: %w", c.id, err)
	}

	c.logger.Debug("navigating", zap.String("url", url))
	if err := c.caps.Navigator.Navigate(ctx, url); err != nil {
		return fmt.Errorf("session %d: navigate to %s: %w", c.id, url, err)
	}

	if human {
		if err := c.sim.WaitBetweenPages(ctx); err != nil {
			return fmt.Errorf("session %d: %w", c.id, err)
		}
		if err := c.sim.InitialPageScan(ctx); err != nil {
			return fmt.Errorf("session %d: %w", c.id, err)
		}
	}

	if c.detector.IsChallengeActive(ctx) {
		c.logger.Info("challenge detected", zap.String("url", url))
		if !c.resolver.Resolve(ctx, c.cfg.Driver.ChallengeTimeout) {
			c.logger.Warn("challenge not resolved", zap.String("url", url))
		}
	}

	// Navigation clears injected scripts; restore them off-path.
	c.pool.Submit(func() {
		if !c.Active() {
			return
		}
		c.stealth.Apply(context.Background())
	})
	return nil
}

// ClickElement locates selector and clicks it, humanly when human behavior
// is enabled.
func (c *Controller) ClickElement(ctx context.Context, selector string) error {
	el, err := c.findElement(ctx, selector)
	if err != nil {
		return err
	}
	if c.cfg.Driver.HumanBehavior {
		return c.sim.Click(ctx, el)
	}
	return el.Click(ctx)
}

// TypeText locates selector and types text into it, humanly when human
// behavior is enabled.
func (c *Controller) TypeText(ctx context.Context, selector, text string) error {
	el, err := c.findElement(ctx, selector)
	if err != nil {
		return err
	}
	if c.cfg.Driver.HumanBehavior {
		return c.sim.Type(ctx, el, text)
	}
	if err := el.Click(ctx); err != nil {
		return err
	}
	return el.SendKeys(ctx, text)
}

// findElementPollInterval paces the implicit-wait retry loop.
const findElementPollInterval = 500 * time.Millisecond

// findElement looks the selector up, retrying absent elements until the
// session's implicit wait is spent. The retry budget is counted in poll
// intervals rather than read off the clock, so the simulator's pause
// primitive keeps pacing under test control.
func (c *Controller) findElement(ctx context.Context, selector string) (schemas.ElementHandle, error) {
	if s := c.State(); s >= StateQuitting {
		return nil, fmt.Errorf("session %d: %w", c.id, ErrSessionQuitting)
	}
	if c.caps.Elements == nil {
		return nil, fmt.Errorf("session %d: no element capability", c.id)
	}

	attempts := int(c.implicitWait/findElementPollInterval) + 1
	for attempt := 1; ; attempt++ {
		el, err := c.caps.Elements.FindElement(ctx, selector)
		if err == nil {
			return el, nil
		}
		if !errors.Is(err, schemas.ErrNoSuchElement) || attempt >= attempts {
			return nil, fmt.Errorf("session %d: find %q: %w", c.id, selector, err)
		}
		if perr := c.sim.Pause(ctx, findElementPollInterval, findElementPollInterval); perr != nil {
			return nil, fmt.Errorf("session %d: find %q: %w", c.id, selector, perr)
		}
	}
}

// Quit shuts the session down: stop monitoring and fingerprint rotation,
// settle briefly, then delegate to the driver. Driver shutdown errors are
// swallowed; the session is terminated regardless. Safe to call more
// than once and from multiple goroutines.
func (c *Controller) Quit(ctx context.Context) error {
	for {
		s := c.state.Load()
		if State(s) >= StateQuitting {
			return nil
		}
		if c.state.CompareAndSwap(s, int32(StateQuitting)) {
			break
		}
	}

	c.logger.Info("session quitting")
	c.monitor.Stop()
	c.mutator.Stop()

	// A last human-scale breath before teardown.
	_ = c.sim.Pause(ctx, 100*time.Millisecond, 300*time.Millisecond)

	if c.caps.Navigator != nil {
		if err := c.caps.Navigator.Quit(ctx); err != nil {
			c.logger.Warn("driver shutdown failed", zap.Error(err))
		}
	}

	c.state.Store(int32(StateTerminated))
	c.logger.Info("session terminated")
	return nil
}

// Active reports whether the session still accepts background work.
func (c *Controller) Active() bool {
	s := State(c.state.Load())
	return s == StateInitializing || s == StateActive
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// ID returns the session's process-unique instance id.
func (c *Controller) ID() int { return c.id }

// ImplicitWait returns the jittered implicit wait resolved at Initialize.
func (c *Controller) ImplicitWait() time.Duration { return c.implicitWait }

// Simulator exposes the session's motion simulator for direct scripting.
func (c *Controller) Simulator() *humanoid.Simulator { return c.sim }
