package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "normal", cfg.Driver.BehaviorProfile)
	assert.True(t, cfg.Driver.HumanBehavior)
	assert.True(t, cfg.Driver.RandomizeFingerprint)
	assert.Equal(t, 10*time.Second, cfg.Driver.ImplicitWait)
	assert.Equal(t, 30*time.Second, cfg.Driver.ChallengeTimeout)
	assert.Equal(t, 1920, cfg.Browser.WindowWidth)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad profile", func(c *Config) { c.Driver.BehaviorProfile = "ludicrous" }},
		{"bad log format", func(c *Config) { c.Logger.Format = "xml" }},
		{"negative implicit wait", func(c *Config) { c.Driver.ImplicitWait = -time.Second }},
		{"zero challenge timeout", func(c *Config) { c.Driver.ChallengeTimeout = 0 }},
		{"zero window width", func(c *Config) { c.Browser.WindowWidth = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestViperOverridesDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("driver.behavior_profile", "careful")
	v.Set("driver.implicit_wait", "5s")
	v.Set("browser.headless", true)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "careful", cfg.Driver.BehaviorProfile)
	assert.Equal(t, 5*time.Second, cfg.Driver.ImplicitWait)
	assert.True(t, cfg.Browser.Headless)
}

func TestProfileValidationIsCaseInsensitive(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Driver.BehaviorProfile = "CAREFUL"
	assert.NoError(t, cfg.Validate())
}
