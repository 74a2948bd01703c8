// Package stealth injects the anti-detection evasion scripts into a page.
// The scripts live as embedded assets and are cached process-wide, so every
// session shares one loaded copy.
package stealth

import (
	"context"
	"embed"
	"sync"

	"github.com/reubingeorge/undetected-chromedriver-go/api/schemas"
	"go.uber.org/zap"
)

//go:embed evasions/*.js
var evasionFS embed.FS

// scriptOrder fixes the application order. Later scripts may build on the
// window.chrome scaffolding earlier ones create.
var scriptOrder = []string{
	"navigator.webdriver.js",
	"navigator.permissions.js",
	"navigator.plugins.js",
	"window.chrome.js",
	"chrome.runtime.js",
}

// Process-wide script cache keyed by file name. The first loader wins and
// all sessions share its copy.
var scriptCache sync.Map

type namedScript struct {
	name   string
	source string
}

func loadScript(name string) string {
	if cached, ok := scriptCache.Load(name); ok {
		return cached.(string)
	}
	data, err := evasionFS.ReadFile("evasions/" + name)
	if err != nil {
		// Embedded assets cannot go missing at runtime; guard anyway so a
		// bad name degrades to a no-op script instead of a panic.
		data = []byte("(() => {})();")
	}
	actual, _ := scriptCache.LoadOrStore(name, string(data))
	return actual.(string)
}

// Injector applies the evasion set to one session's page. Safe for
// concurrent use; applications are serialized per injector.
type Injector struct {
	mu      sync.Mutex
	exec    schemas.ScriptExecutor
	logger  *zap.Logger
	scripts []namedScript
}

// NewInjector builds an injector bound to a session's script port. A nil
// executor yields an injector whose Apply is a no-op.
func NewInjector(exec schemas.ScriptExecutor, logger *zap.Logger, instanceID int) *Injector {
	if logger == nil {
		logger = zap.NewNop()
	}
	scripts := make([]namedScript, 0, len(scriptOrder))
	for _, name := range scriptOrder {
		scripts = append(scripts, namedScript{name: name, source: loadScript(name)})
	}
	return &Injector{
		exec:    exec,
		logger:  logger.Named("stealth").With(zap.Int("instance_id", instanceID)),
		scripts: scripts,
	}
}

// Apply executes every evasion script followed by the inline runtime
// modifications. A failing script is logged and skipped; the rest still
// run. Returns how many scripts executed successfully. Re-applying is
// harmless, the scripts are written to be idempotent.
func (i *Injector) Apply(ctx context.Context) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.exec == nil {
		return 0
	}

	applied := 0
	for _, s := range i.scripts {
		if _, err := i.exec.ExecuteScript(ctx, s.source); err != nil {
			i.logger.Warn("evasion script failed",
				zap.String("script", s.name),
				zap.Error(err))
			continue
		}
		applied++
	}

	if _, err := i.exec.ExecuteScript(ctx, runtimeModificationsJS); err != nil {
		i.logger.Warn("runtime modifications failed", zap.Error(err))
	} else {
		applied++
	}

	i.logger.Debug("stealth scripts applied", zap.Int("applied", applied))
	return applied
}

// ScriptCount reports how many scripts Apply attempts, the embedded set
// plus the inline runtime modifications.
func (i *Injector) ScriptCount() int {
	return len(i.scripts) + 1
}
