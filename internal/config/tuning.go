package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// EnvPrefix is prepended to upper-cased keys for environment overrides,
// e.g. CUTPLANE_PINCH_THRESHOLD=0.025.
const EnvPrefix = "CUTPLANE"

// TuningConfig holds the gesture and cutting-plane tuning parameters.
// Fields are pointers so a partial file only overrides what it names; the
// Get* methods supply the defaults for everything else.
type TuningConfig struct {
	// Pinch detector params
	PinchThreshold *float64 `json:"pinch_threshold,omitempty" mapstructure:"pinch_threshold"`
	UIDebounce     *string  `json:"ui_debounce,omitempty" mapstructure:"ui_debounce"` // duration string like "2s"
	MinHold        *string  `json:"min_hold,omitempty" mapstructure:"min_hold"`
	MaxHold        *string  `json:"max_hold,omitempty" mapstructure:"max_hold"`
	Hand           *string  `json:"hand,omitempty" mapstructure:"hand"` // "left" or "right"

	// Plane params
	PlaneSize        *float64 `json:"plane_size,omitempty" mapstructure:"plane_size"`
	CollinearEpsilon *float64 `json:"collinear_epsilon,omitempty" mapstructure:"collinear_epsilon"`

	// Frame loop / marker animation params
	FrameInterval *string  `json:"frame_interval,omitempty" mapstructure:"frame_interval"`
	PulsePeriod   *string  `json:"pulse_period,omitempty" mapstructure:"pulse_period"`
	PulseScale    *float64 `json:"pulse_scale,omitempty" mapstructure:"pulse_scale"`
}

var tuningKeys = []string{
	"pinch_threshold", "ui_debounce", "min_hold", "max_hold", "hand",
	"plane_size", "collinear_epsilon",
	"frame_interval", "pulse_period", "pulse_scale",
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated with
// the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		PinchThreshold:   ptrFloat64(0.03),
		UIDebounce:       ptrString("2s"),
		MinHold:          ptrString("300ms"),
		MaxHold:          ptrString("3s"),
		Hand:             ptrString("right"),
		PlaneSize:        ptrFloat64(1.0),
		CollinearEpsilon: ptrFloat64(0.001),
		FrameInterval:    ptrString("16ms"),
		PulsePeriod:      ptrString("1s"),
		PulseScale:       ptrFloat64(1.2),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON or YAML file. Values from
// CUTPLANE_* environment variables take precedence over the file.
// Fields omitted from both retain their default values, so partial configs
// are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	switch ext := filepath.Ext(cleanPath); ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	v := viper.New()
	v.SetConfigFile(cleanPath)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range tuningKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from cmd/tools/pinch-replay/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.PinchThreshold != nil && *c.PinchThreshold <= 0 {
		return fmt.Errorf("pinch_threshold must be positive, got %f", *c.PinchThreshold)
	}

	for name, s := range map[string]*string{
		"ui_debounce":    c.UIDebounce,
		"min_hold":       c.MinHold,
		"max_hold":       c.MaxHold,
		"frame_interval": c.FrameInterval,
		"pulse_period":   c.PulsePeriod,
	} {
		if s == nil || *s == "" {
			continue
		}
		d, err := time.ParseDuration(*s)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *s, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, d)
		}
	}

	if c.GetMinHold() > c.GetMaxHold() {
		return fmt.Errorf("min_hold (%s) must not exceed max_hold (%s)", c.GetMinHold(), c.GetMaxHold())
	}

	if c.Hand != nil {
		switch strings.ToLower(*c.Hand) {
		case "left", "right":
		default:
			return fmt.Errorf("hand must be 'left' or 'right', got %q", *c.Hand)
		}
	}

	if c.PlaneSize != nil && *c.PlaneSize <= 0 {
		return fmt.Errorf("plane_size must be positive, got %f", *c.PlaneSize)
	}
	if c.CollinearEpsilon != nil && (*c.CollinearEpsilon < 0 || *c.CollinearEpsilon >= 1) {
		return fmt.Errorf("collinear_epsilon is a sine and must be in [0, 1), got %f", *c.CollinearEpsilon)
	}
	if c.PulseScale != nil && *c.PulseScale < 1 {
		return fmt.Errorf("pulse_scale must be at least 1, got %f", *c.PulseScale)
	}

	return nil
}

func durationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def // default on parse error
	}
	return d
}

// GetPinchThreshold returns the pinch_threshold value or the default.
func (c *TuningConfig) GetPinchThreshold() float64 {
	if c.PinchThreshold == nil {
		return 0.03
	}
	return *c.PinchThreshold
}

// GetUIDebounce parses and returns the UIDebounce as a time.Duration.
func (c *TuningConfig) GetUIDebounce() time.Duration {
	return durationOr(c.UIDebounce, 2*time.Second)
}

// GetMinHold parses and returns the MinHold as a time.Duration.
func (c *TuningConfig) GetMinHold() time.Duration {
	return durationOr(c.MinHold, 300*time.Millisecond)
}

// GetMaxHold parses and returns the MaxHold as a time.Duration.
func (c *TuningConfig) GetMaxHold() time.Duration {
	return durationOr(c.MaxHold, 3*time.Second)
}

// GetHand returns the monitored hand ("left" or "right"), default right.
func (c *TuningConfig) GetHand() string {
	if c.Hand == nil || *c.Hand == "" {
		return "right"
	}
	return strings.ToLower(*c.Hand)
}

// GetPlaneSize returns the plane_size value or the default.
func (c *TuningConfig) GetPlaneSize() float64 {
	if c.PlaneSize == nil {
		return 1.0
	}
	return *c.PlaneSize
}

// GetCollinearEpsilon returns the collinear_epsilon value or the default.
func (c *TuningConfig) GetCollinearEpsilon() float64 {
	if c.CollinearEpsilon == nil {
		return 0.001
	}
	return *c.CollinearEpsilon
}

// GetFrameInterval parses and returns the FrameInterval as a time.Duration.
func (c *TuningConfig) GetFrameInterval() time.Duration {
	return durationOr(c.FrameInterval, 16*time.Millisecond)
}

// GetPulsePeriod parses and returns the PulsePeriod as a time.Duration.
func (c *TuningConfig) GetPulsePeriod() time.Duration {
	return durationOr(c.PulsePeriod, time.Second)
}

// GetPulseScale returns the pulse_scale value or the default.
func (c *TuningConfig) GetPulseScale() float64 {
	if c.PulseScale == nil {
		return 1.2
	}
	return *c.PulseScale
}
