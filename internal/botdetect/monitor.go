package botdetect

import (
	"context"
	"sync/atomic"

	"github.com/reubingeorge/undetected-chromedriver-go/api/schemas"
	"go.uber.org/zap"
)

// monitorJS plants an in-page observer that records challenge iframes and
// scripts as they appear, so later probes can read the flag cheaply.
const monitorJS = `(() => {
  if (window.__ucMonitor) { return; }
  window.__ucMonitor = { challengeSeen: false };
  const markers = ['challenges.cloudflare.com', 'hcaptcha.com', 'recaptcha'];
  const inspect = (node) => {
    const src = (node.src || '') + ' ' + (node.className || '');
    if (markers.some((m) => src.indexOf(m) !== -1)) {
      window.__ucMonitor.challengeSeen = true;
    }
  };
  const observer = new MutationObserver((mutations) => {
    for (const mutation of mutations) {
      for (const node of mutation.addedNodes) {
        if (node.tagName === 'IFRAME' || node.tagName === 'SCRIPT') { inspect(node); }
      }
    }
  });
  observer.observe(document.documentElement, { childList: true, subtree: true });
})();`

// timingJitterJS delays fetch and XHR by 50-150ms so request timing looks
// organic rather than machine-regular.
const timingJitterJS = `(() => {
  if (window.__ucTimingJitter) { return; }
  window.__ucTimingJitter = true;
  const delay = () => new Promise((resolve) => setTimeout(resolve, 50 + Math.random() * 100));
  const origFetch = window.fetch;
  window.fetch = function () {
    const args = arguments;
    return delay().then(() => origFetch.apply(window, args));
  };
  const origOpen = XMLHttpRequest.prototype.open;
  const origSend = XMLHttpRequest.prototype.send;
  XMLHttpRequest.prototype.open = function () {
    this.__ucDelay = 50 + Math.random() * 100;
    return origOpen.apply(this, arguments);
  };
  XMLHttpRequest.prototype.send = function () {
    const xhr = this;
    const args = arguments;
    setTimeout(() => origSend.apply(xhr, args), xhr.__ucDelay || 0);
  };
})();`

// Monitor owns the injected challenge observer for one session.
type Monitor struct {
	exec       schemas.ScriptExecutor
	logger     *zap.Logger
	monitoring atomic.Bool
}

// NewMonitor builds a monitor bound to a session's script port.
func NewMonitor(exec schemas.ScriptExecutor, logger *zap.Logger, instanceID int) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		exec:   exec,
		logger: logger.Named("monitor").With(zap.Int("instance_id", instanceID)),
	}
}

// Start injects the observer script once. Concurrent and repeated calls
// are no-ops; injection failure is logged and the flag rolls back so a
// later Start can retry.
func (m *Monitor) Start(ctx context.Context) {
	if !m.monitoring.CompareAndSwap(false, true) {
		return
	}
	if m.exec == nil {
		return
	}
	if _, err := m.exec.ExecuteScript(ctx, monitorJS); err != nil {
		m.logger.Warn("challenge monitor injection failed", zap.Error(err))
		m.monitoring.Store(false)
	}
}

// Stop marks monitoring inactive. The injected observer stays in the page
// until the next navigation clears it.
func (m *Monitor) Stop() {
	m.monitoring.Store(false)
}

// Active reports whether monitoring is on.
func (m *Monitor) Active() bool {
	return m.monitoring.Load()
}

// ApplyTimingJitter installs the fetch/XHR delay shim. Failures are
// absorbed; request pacing is an enhancement, not a requirement.
func (m *Monitor) ApplyTimingJitter(ctx context.Context) {
	if m.exec == nil {
		return
	}
	if _, err := m.exec.ExecuteScript(ctx, timingJitterJS); err != nil {
		m.logger.Debug("timing jitter injection failed", zap.Error(err))
	}
}
