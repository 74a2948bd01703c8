// Package fingerprint periodically rewrites the browser's device fingerprint
// surfaces (canvas, WebGL, audio, fonts, battery, hardware) with freshly
// rolled parameters so the fingerprint drifts over a session's lifetime.
package fingerprint

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reubingeorge/undetected-chromedriver-go/api/schemas"
	"go.uber.org/zap"
)

const (
	initialDelayMin = 30 * time.Second
	initialDelayMax = 60 * time.Second
	periodMin       = 60 * time.Second
	periodMax       = 180 * time.Second

	// passTimeout bounds one whole randomization pass. A wedged script
	// port must not stall the scheduler.
	passTimeout = 5 * time.Second
)

// Mutator owns the randomization schedule for one session. Start and Stop
// are idempotent and safe to call concurrently.
type Mutator struct {
	exec   schemas.ScriptExecutor
	logger *zap.Logger

	// active reports whether the owning session still accepts work. May
	// be nil, in which case passes always run while the mutator runs.
	active func() bool

	running atomic.Bool

	mu     sync.Mutex
	rng    *rand.Rand
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMutator builds a mutator bound to a session's script port.
func NewMutator(exec schemas.ScriptExecutor, logger *zap.Logger, instanceID int, active func() bool) *Mutator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mutator{
		exec:   exec,
		logger: logger.Named("fingerprint").With(zap.Int("instance_id", instanceID)),
		active: active,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start runs one synchronous randomization pass, then launches the periodic
// schedule with a fresh initial delay in [30s,60s) and period in [60s,180s).
// Only the first of concurrent Start calls wins.
func (m *Mutator) Start() {
	// The flag flip and the cancel-path registration happen under one
	// critical section, mirrored by Stop, so a Stop that observes the
	// mutator running can always reach the schedule, even one arriving
	// while the synchronous first pass is still in flight.
	m.mu.Lock()
	if !m.running.CompareAndSwap(false, true) {
		m.mu.Unlock()
		return
	}
	initialDelay := initialDelayMin + time.Duration(m.rng.Int63n(int64(initialDelayMax-initialDelayMin)))
	period := periodMin + time.Duration(m.rng.Int63n(int64(periodMax-periodMin)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	m.RunPass()

	if ctx.Err() != nil {
		// Stopped during the first pass; nothing to schedule.
		close(done)
		return
	}

	m.logger.Debug("fingerprint schedule started",
		zap.Duration("initial_delay", initialDelay),
		zap.Duration("period", period))

	go m.loop(ctx, done, initialDelay, period)
}

func (m *Mutator) loop(ctx context.Context, done chan struct{}, initialDelay, period time.Duration) {
	defer close(done)

	timer := time.NewTimer(initialDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	m.RunPass()

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RunPass()
		}
	}
}

// Stop cancels the schedule and waits up to the pass timeout for the
// scheduler goroutine to drain. Idempotent.
func (m *Mutator) Stop() {
	m.mu.Lock()
	if !m.running.CompareAndSwap(true, false) {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(passTimeout):
			m.logger.Warn("fingerprint scheduler did not drain in time")
		}
	}
}

// Running reports whether the schedule is active.
func (m *Mutator) Running() bool {
	return m.running.Load()
}

// RunPass executes all six randomization routines concurrently with
// freshly rolled parameters, bounded by the aggregate pass timeout. A pass
// is skipped entirely when the mutator is stopped, the session is gone or
// no script port exists.
func (m *Mutator) RunPass() {
	if !m.running.Load() {
		return
	}
	if m.active != nil && !m.active() {
		return
	}
	if m.exec == nil {
		return
	}

	// Parameters are rolled up front, under the lock, so the routines
	// themselves never touch the RNG.
	m.mu.Lock()
	scripts := map[string]string{
		"canvas":   canvasScript(m.randFloat(0.0001, 0.001)),
		"webgl":    webglScript(pick(m.rng, webglVendors), pick(m.rng, webglRenderers)),
		"audio":    audioScript(m.randFloat(0.00001, 0.0001), m.randFloat(0.00001, 0.0001)),
		"fonts":    fontScript(m.rng.Intn(5) - 2),
		"battery":  m.rollBatteryScript(),
		"hardware": hardwareScript(pick(m.rng, hardwareCores), pick(m.rng, hardwareMemory)),
	}
	m.mu.Unlock()

	// The pass context is deliberately not derived from the scheduler
	// context: Stop must not sever scripts already in flight.
	ctx, cancel := context.WithTimeout(context.Background(), passTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for name, script := range scripts {
		wg.Add(1)
		go func(name, script string) {
			defer wg.Done()
			if _, err := m.exec.ExecuteScript(ctx, script); err != nil {
				m.logger.Debug("fingerprint routine failed",
					zap.String("routine", name),
					zap.Error(err))
			}
		}(name, script)
	}

	joined := make(chan struct{})
	go func() {
		wg.Wait()
		close(joined)
	}()
	select {
	case <-joined:
	case <-ctx.Done():
		m.logger.Warn("fingerprint pass timed out")
	}
}

// rollBatteryScript rolls a coherent battery state. Lock held.
func (m *Mutator) rollBatteryScript() string {
	level := 0.5 + m.rng.Float64()*0.5
	charging := m.rng.Intn(2) == 0
	var chargingTime, dischargingTime int64
	if charging {
		chargingTime = m.rng.Int63n(3600)
		dischargingTime = math.MaxInt32
	} else {
		chargingTime = 0
		dischargingTime = 3600 + m.rng.Int63n(28800-3600)
	}
	return batteryScript(level, charging, chargingTime, dischargingTime)
}

// randFloat samples [min, max). Lock held.
func (m *Mutator) randFloat(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + m.rng.Float64()*(max-min)
}

func pick[T any](rng *rand.Rand, pool []T) T {
	return pool[rng.Intn(len(pool))]
}
