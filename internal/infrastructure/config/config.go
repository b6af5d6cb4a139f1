package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"vision-navigator/internal/infrastructure/userinteraction"
	"vision-navigator/internal/usecase/guard"
	"vision-navigator/internal/usecase/navigator"
)

// Config is built once at startup and passed by value to whatever needs it.
type Config struct {
	Vision     VisionConfig     `mapstructure:"vision" yaml:"vision"`
	Navigation NavigationConfig `mapstructure:"navigation" yaml:"navigation"`
	Retry      RetryConfig      `mapstructure:"retry" yaml:"retry"`
	Audit      AuditConfig      `mapstructure:"audit" yaml:"audit"`
	Screen     ScreenConfig     `mapstructure:"screen" yaml:"screen"`
	Confirm    ConfirmConfig    `mapstructure:"confirm" yaml:"confirm"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

type VisionConfig struct {
	Model             string        `mapstructure:"model" yaml:"model"`
	APIKey            string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	Temperature       float32       `mapstructure:"temperature" yaml:"temperature"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	LogRequests       bool          `mapstructure:"log_requests" yaml:"log_requests"`
}

type NavigationConfig struct {
	MaxIterations           int      `mapstructure:"max_iterations" yaml:"max_iterations"`
	ConfidenceThreshold     float64  `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	CriticalKeywords        []string `mapstructure:"critical_keywords" yaml:"critical_keywords"`
	LoopDetectionThreshold  int      `mapstructure:"loop_detection_threshold" yaml:"loop_detection_threshold"`
	LoopDetectionBufferSize int      `mapstructure:"loop_detection_buffer_size" yaml:"loop_detection_buffer_size"`
	LoopTolerancePx         int      `mapstructure:"loop_tolerance_px" yaml:"loop_tolerance_px"`
	BoundsMarginPx          int      `mapstructure:"bounds_margin_px" yaml:"bounds_margin_px"`
	LowConfidence           string   `mapstructure:"low_confidence" yaml:"low_confidence"`
}

type RetryConfig struct {
	MaxAttempts        int     `mapstructure:"max_attempts" yaml:"max_attempts"`
	BackoffBaseSeconds float64 `mapstructure:"backoff_base_seconds" yaml:"backoff_base_seconds"`
}

// BaseDelay converts the configured seconds into a duration.
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BackoffBaseSeconds * float64(time.Second))
}

type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type ScreenConfig struct {
	Headless           bool   `mapstructure:"headless" yaml:"headless"`
	StartURL           string `mapstructure:"start_url" yaml:"start_url"`
	Width              int    `mapstructure:"width" yaml:"width"`
	Height             int    `mapstructure:"height" yaml:"height"`
	MaxScreenshotWidth int    `mapstructure:"max_screenshot_width" yaml:"max_screenshot_width"`
	ScreenshotDir      string `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
}

type ConfirmConfig struct {
	Mode string `mapstructure:"mode" yaml:"mode"`
}

type LogConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
	Console bool   `mapstructure:"console" yaml:"console"`
}

// SetDefaults registers a default for every key so env overrides are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("vision.model", "")
	v.SetDefault("vision.api_key", "")
	v.SetDefault("vision.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("vision.requests_per_minute", 60)
	v.SetDefault("vision.temperature", 0.0)
	v.SetDefault("vision.timeout", "90s")
	v.SetDefault("vision.log_requests", false)

	v.SetDefault("navigation.max_iterations", 10)
	v.SetDefault("navigation.confidence_threshold", 0.6)
	v.SetDefault("navigation.critical_keywords", guard.DefaultCriticalKeywords())
	v.SetDefault("navigation.loop_detection_threshold", 3)
	v.SetDefault("navigation.loop_detection_buffer_size", 10)
	v.SetDefault("navigation.loop_tolerance_px", 5)
	v.SetDefault("navigation.bounds_margin_px", 10)
	v.SetDefault("navigation.low_confidence", string(navigator.LowConfidenceContinue))

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.backoff_base_seconds", 1.0)

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.path", "audit_log.json")

	v.SetDefault("screen.headless", false)
	v.SetDefault("screen.start_url", "")
	v.SetDefault("screen.width", 1280)
	v.SetDefault("screen.height", 800)
	v.SetDefault("screen.max_screenshot_width", 1024)
	v.SetDefault("screen.screenshot_dir", "screenshots")

	v.SetDefault("confirm.mode", string(userinteraction.ModePrompt))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "log")
	v.SetDefault("log.console", false)
}

// Default returns the configuration with every default applied and no file or env input.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return cfg
}

// Load merges defaults, the optional YAML file at path, and the environment.
// Environment keys use the NAVIGATOR_ prefix (NAVIGATOR_NAVIGATION_MAX_ITERATIONS);
// OPENROUTER_API_KEY and OPENROUTER_MODEL_NAME are honoured as well.
func Load(path string) (Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("NAVIGATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("vision.api_key", "NAVIGATOR_VISION_API_KEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("vision.model", "NAVIGATOR_VISION_MODEL", "OPENROUTER_MODEL_NAME")

	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return Config{}, fmt.Errorf("expand config path: %w", err)
		}
		v.SetConfigFile(expanded)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", expanded, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Audit.Path, &c.Screen.ScreenshotDir, &c.Log.Dir} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks value ranges. Credentials are checked separately by RequireVision.
func (c Config) Validate() error {
	var errs []error
	n := c.Navigation

	if n.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("navigation.max_iterations must be > 0, got %d", n.MaxIterations))
	}
	if n.ConfidenceThreshold < 0 || n.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("navigation.confidence_threshold must be in [0,1], got %v", n.ConfidenceThreshold))
	}
	if n.LoopDetectionThreshold < 1 {
		errs = append(errs, fmt.Errorf("navigation.loop_detection_threshold must be >= 1, got %d", n.LoopDetectionThreshold))
	}
	if n.LoopDetectionBufferSize < 1 {
		errs = append(errs, fmt.Errorf("navigation.loop_detection_buffer_size must be >= 1, got %d", n.LoopDetectionBufferSize))
	}
	if n.LoopTolerancePx < 0 {
		errs = append(errs, fmt.Errorf("navigation.loop_tolerance_px must be >= 0, got %d", n.LoopTolerancePx))
	}
	if n.BoundsMarginPx < 0 {
		errs = append(errs, fmt.Errorf("navigation.bounds_margin_px must be >= 0, got %d", n.BoundsMarginPx))
	}
	if _, err := navigator.ParseLowConfidencePolicy(n.LowConfidence); err != nil {
		errs = append(errs, fmt.Errorf("navigation.low_confidence: %w", err))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts))
	}
	if c.Retry.BackoffBaseSeconds < 0 {
		errs = append(errs, fmt.Errorf("retry.backoff_base_seconds must be >= 0, got %v", c.Retry.BackoffBaseSeconds))
	}

	if _, err := userinteraction.ParseMode(c.Confirm.Mode); err != nil {
		errs = append(errs, fmt.Errorf("confirm.mode: %w", err))
	}

	if c.Audit.Enabled && c.Audit.Path == "" {
		errs = append(errs, errors.New("audit.path is required when audit.enabled is set"))
	}
	if c.Screen.Width <= 0 || c.Screen.Height <= 0 {
		errs = append(errs, fmt.Errorf("screen size must be positive, got %dx%d", c.Screen.Width, c.Screen.Height))
	}

	return errors.Join(errs...)
}

// RequireVision reports missing oracle credentials.
func (c Config) RequireVision() error {
	var missing []string
	if c.Vision.APIKey == "" {
		missing = append(missing, "vision.api_key (OPENROUTER_API_KEY)")
	}
	if c.Vision.Model == "" {
		missing = append(missing, "vision.model (OPENROUTER_MODEL_NAME)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Vision.APIKey != "" {
		c.Vision.APIKey = "***"
	}
	c.Navigation.CriticalKeywords = append([]string(nil), c.Navigation.CriticalKeywords...)
	return c
}

// YAML renders the redacted configuration.
func (c Config) YAML() (string, error) {
	out, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(out), nil
}
