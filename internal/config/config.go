// Package config loads and validates the engine configuration via viper.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	instance *Config
	once     sync.Once
)

// Config is the root configuration structure for the engine.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger"`
	Browser BrowserConfig `mapstructure:"browser"`
	Driver  DriverConfig  `mapstructure:"driver"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" json:"level" yaml:"level"`
	Format      string `mapstructure:"format" json:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" json:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" json:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" json:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" json:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" json:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" json:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the Chrome allocator.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors"`
	Proxy           string   `mapstructure:"proxy"`
	UserAgent       string   `mapstructure:"user_agent"`
	Args            []string `mapstructure:"args"`
	WindowWidth     int      `mapstructure:"window_width"`
	WindowHeight    int      `mapstructure:"window_height"`
}

// DriverConfig holds settings for the anti-detection session itself.
type DriverConfig struct {
	HumanBehavior        bool          `mapstructure:"human_behavior"`
	RandomizeFingerprint bool          `mapstructure:"randomize_fingerprint"`
	BehaviorProfile      string        `mapstructure:"behavior_profile"`
	ImplicitWait         time.Duration `mapstructure:"implicit_wait"`
	ChallengeTimeout     time.Duration `mapstructure:"challenge_timeout"`
	PageLoadTimeout      time.Duration `mapstructure:"page_load_timeout"`
}

// Load initializes the configuration singleton from Viper.
func Load(v *viper.Viper) error {
	var loadErr error
	once.Do(func() {
		SetDefaults(v)
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			loadErr = fmt.Errorf("error unmarshaling config: %w", err)
			return
		}
		if err := cfg.Validate(); err != nil {
			loadErr = err
			return
		}
		instance = &cfg
	})
	return loadErr
}

// Get returns the loaded configuration instance, falling back to defaults if
// Load was never called.
func Get() *Config {
	if instance == nil {
		return NewDefaultConfig()
	}
	return instance
}

// Set replaces the singleton. Intended for tests and for embedders that
// assemble their configuration programmatically.
func Set(c *Config) {
	once.Do(func() {})
	instance = c
}

// SetDefaults registers the built-in defaults on a viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "undetected-chromedriver")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)

	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)

	v.SetDefault("driver.human_behavior", true)
	v.SetDefault("driver.randomize_fingerprint", true)
	v.SetDefault("driver.behavior_profile", "normal")
	v.SetDefault("driver.implicit_wait", 10*time.Second)
	v.SetDefault("driver.challenge_timeout", 30*time.Second)
	v.SetDefault("driver.page_load_timeout", 60*time.Second)
}

// NewDefaultConfig returns the built-in defaults as a standalone Config.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Unmarshaling pure defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logger.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid logger format %q", c.Logger.Format)
	}
	switch strings.ToLower(c.Driver.BehaviorProfile) {
	case "fast", "normal", "careful":
	default:
		return fmt.Errorf("invalid behavior profile %q", c.Driver.BehaviorProfile)
	}
	if c.Driver.ImplicitWait < 0 {
		return fmt.Errorf("implicit_wait must not be negative")
	}
	if c.Driver.ChallengeTimeout <= 0 {
		return fmt.Errorf("challenge_timeout must be positive")
	}
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		return fmt.Errorf("browser window dimensions must be positive")
	}
	return nil
}
