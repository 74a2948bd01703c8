package session

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Pool is the shared background executor for fire-and-forget session work:
// deferred stealth application, re-injection after navigation. One pool
// serves every session in the process; its goroutines outlive individual
// sessions by design.
type Pool struct {
	tasks   chan func()
	wg      sync.WaitGroup
	stopped atomic.Bool
}

var (
	defaultPool *Pool
	defaultOnce sync.Once
)

// DefaultPool returns the lazily created process-wide pool, sized to the
// available parallelism.
func DefaultPool() *Pool {
	defaultOnce.Do(func() {
		defaultPool = NewPool(runtime.NumCPU())
	})
	return defaultPool
}

// NewPool starts a pool with the given number of workers. Sizes below one
// fall back to the CPU count.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	p := &Pool{tasks: make(chan func(), workers*4)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Submit queues a task. After Stop, tasks are silently dropped; the pool
// is shutting down and late fire-and-forget work has nowhere to report.
func (p *Pool) Submit(task func()) {
	if task == nil || p.stopped.Load() {
		return
	}
	defer func() {
		// Racing a concurrent Stop can hit the closed channel.
		_ = recover()
	}()
	p.tasks <- task
}

// Schedule runs task after the given delay, on a pool worker.
func (p *Pool) Schedule(delay time.Duration, task func()) {
	if task == nil || p.stopped.Load() {
		return
	}
	if delay <= 0 {
		p.Submit(task)
		return
	}
	time.AfterFunc(delay, func() { p.Submit(task) })
}

// Stop drains queued tasks and waits for the workers to exit. Idempotent.
func (p *Pool) Stop() {
	if !p.stopped.CompareAndSwap(false, true) {
		return
	}
	close(p.tasks)
	p.wg.Wait()
}
