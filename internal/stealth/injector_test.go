package stealth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingExecutor captures every script it is asked to run and can fail
// a chosen call.
type recordingExecutor struct {
	scripts []string
	failAt  int // 1-based call index to fail, 0 disables
	calls   int
}

func (r *recordingExecutor) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	r.calls++
	r.scripts = append(r.scripts, script)
	if r.failAt != 0 && r.calls == r.failAt {
		return nil, assert.AnError
	}
	return nil, nil
}

func TestApplyRunsAllScriptsInOrder(t *testing.T) {
	exec := &recordingExecutor{}
	inj := NewInjector(exec, zap.NewNop(), 1)

	applied := inj.Apply(context.Background())
	assert.Equal(t, inj.ScriptCount(), applied)
	require.Len(t, exec.scripts, len(scriptOrder)+1)

	// Embedded order is fixed; runtime modifications come last.
	assert.Contains(t, exec.scripts[0], "webdriver")
	assert.Contains(t, exec.scripts[len(exec.scripts)-1], "WebGLRenderingContext")
}

func TestApplyIsolatesScriptFailures(t *testing.T) {
	exec := &recordingExecutor{failAt: 2}
	inj := NewInjector(exec, zap.NewNop(), 1)

	applied := inj.Apply(context.Background())

	// Every script is still attempted, only the failing one is skipped.
	assert.Len(t, exec.scripts, len(scriptOrder)+1)
	assert.Equal(t, inj.ScriptCount()-1, applied)
}

func TestApplyIsIdempotent(t *testing.T) {
	exec := &recordingExecutor{}
	inj := NewInjector(exec, zap.NewNop(), 1)

	first := inj.Apply(context.Background())
	second := inj.Apply(context.Background())
	assert.Equal(t, first, second)
	assert.Len(t, exec.scripts, 2*(len(scriptOrder)+1))
}

func TestApplyWithoutExecutorIsNoOp(t *testing.T) {
	inj := NewInjector(nil, zap.NewNop(), 1)
	assert.Equal(t, 0, inj.Apply(context.Background()))
}

func TestScriptCacheSharesLoadedSources(t *testing.T) {
	a := NewInjector(&recordingExecutor{}, zap.NewNop(), 1)
	b := NewInjector(&recordingExecutor{}, zap.NewNop(), 2)

	require.Equal(t, len(a.scripts), len(b.scripts))
	for i := range a.scripts {
		assert.Equal(t, a.scripts[i].source, b.scripts[i].source)
		assert.NotEmpty(t, a.scripts[i].source)
	}
}

func TestEmbeddedScriptsLookSane(t *testing.T) {
	for _, name := range scriptOrder {
		src := loadScript(name)
		assert.True(t, strings.Contains(src, "(() => {"), "script %s should be an IIFE", name)
	}
}
