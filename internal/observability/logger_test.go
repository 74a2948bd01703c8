// internal/observability/logger_test.go
package observability

import (
	"testing"

	"github.com/reubingeorge/undetected-chromedriver-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoggerBeforeInitializeFallsBack(t *testing.T) {
	// The global may already be set by another test; either way the
	// accessor must never hand out nil.
	require.NotNil(t, GetLogger())
}

func TestInitializeLoggerIsIdempotent(t *testing.T) {
	cfg := config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "test"}
	InitializeLogger(cfg)
	first := GetLogger()
	require.NotNil(t, first)

	// A second call must not replace the logger.
	InitializeLogger(config.LoggerConfig{Level: "error", Format: "console", ServiceName: "other"})
	assert.Same(t, first, GetLogger())
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	// Covered through InitializeLogger's once-guard: a bad level string
	// must not panic even on the first call.
	InitializeLogger(config.LoggerConfig{Level: "not-a-level", Format: "console"})
	require.NotNil(t, GetLogger())
	Sync()
}
