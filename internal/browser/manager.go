// Package browser is the chromedp adapter: it owns the Chrome process and
// implements the api/schemas ports over CDP for real sessions.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reubingeorge/undetected-chromedriver-go/internal/config"
)

// Manager owns the browser executable and the set of open tabs. One
// manager serves many sessions; each session gets its own isolated
// browser context.
type Manager struct {
	logger *zap.Logger
	cfg    *config.Config

	// ChromeDP allocator context manages the underlying browser process.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	// Track open drivers for graceful shutdown.
	drivers map[string]*Driver
	mu      sync.Mutex
}

// NewManager creates the browser manager and starts the allocator.
func NewManager(ctx context.Context, logger *zap.Logger, cfg *config.Config) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	m := &Manager{
		logger:  logger.Named("browser_manager"),
		cfg:     cfg,
		drivers: make(map[string]*Driver),
	}

	opts, err := m.generateAllocatorOptions()
	if err != nil {
		return nil, err
	}
	m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(ctx, opts...)

	m.logger.Info("browser manager initialized",
		zap.Bool("headless", cfg.Browser.Headless),
		zap.String("proxy", cfg.Browser.Proxy))
	return m, nil
}

// generateAllocatorOptions configures the flags for the browser executable.
// The two automation flags are the core of the disguise: Chrome stops
// advertising that it is driven and stops setting navigator.webdriver.
func (m *Manager) generateAllocatorOptions() ([]chromedp.ExecAllocatorOption, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	browserCfg := m.cfg.Browser

	if browserCfg.Headless {
		opts = append(opts, chromedp.Headless)
	}

	opts = append(opts,
		// Automation detection evasion.
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),

		// Stability flags.
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-extensions", true),

		// GPU often causes issues in headless/containerized environments.
		chromedp.Flag("disable-gpu", browserCfg.Headless),

		chromedp.Flag("ignore-certificate-errors", browserCfg.IgnoreTLSErrors),
		chromedp.WindowSize(browserCfg.WindowWidth, browserCfg.WindowHeight),
	)

	if browserCfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(browserCfg.UserAgent))
	}

	for _, arg := range browserCfg.Args {
		opts = append(opts, chromedp.Flag(arg, true))
	}

	if browserCfg.Proxy != "" {
		if _, err := url.Parse(browserCfg.Proxy); err != nil {
			return nil, fmt.Errorf("invalid proxy address %q: %w", browserCfg.Proxy, err)
		}
		opts = append(opts, chromedp.ProxyServer(browserCfg.Proxy))
	}

	return opts, nil
}

// NewDriver opens an isolated browser context (tab) and returns the Driver
// implementing all the ports over it. The driver's lifetime is bound to
// sessionCtx.
func (m *Manager) NewDriver(sessionCtx context.Context) (*Driver, error) {
	ctx, cancel := chromedp.NewContext(m.allocatorCtx,
		chromedp.WithLogf(m.logger.Sugar().Debugf),
		chromedp.WithErrorf(m.logger.Sugar().Errorf),
	)

	go func() {
		select {
		case <-sessionCtx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	// Establish the connection before handing the tab out.
	if err := chromedp.Run(ctx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize browser context: %w", err)
	}

	id := uuid.New().String()
	d := newDriver(ctx, cancel, m, id, m.logger)

	m.mu.Lock()
	m.drivers[id] = d
	m.mu.Unlock()

	m.logger.Debug("driver created", zap.String("driver_id", id))
	return d, nil
}

// unregister removes a driver from tracking. Called by Driver.Quit.
func (m *Manager) unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drivers, id)
}

// Shutdown closes every open driver concurrently, then stops the browser
// process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("shutting down browser manager")

	m.mu.Lock()
	toClose := make([]*Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		toClose = append(toClose, d)
	}
	m.drivers = make(map[string]*Driver)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, d := range toClose {
		wg.Add(1)
		go func(d *Driver) {
			defer wg.Done()
			closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := d.Quit(closeCtx); err != nil {
				m.logger.Warn("error closing driver during shutdown",
					zap.String("driver_id", d.id), zap.Error(err))
			}
		}(d)
	}
	wg.Wait()

	if m.allocatorCancel != nil {
		m.allocatorCancel()
	}

	m.logger.Info("browser manager shutdown complete")
	return nil
}
