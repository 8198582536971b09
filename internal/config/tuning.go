package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/headlink/internal/servo"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the on-disk servo tuning schema. Every field is optional;
// omitted fields fall back to the hardware defaults, so partial configs are
// safe. The same JSON shape is accepted at startup and by the debug
// inject-line interface.
type TuningConfig struct {
	GainYawDegPerPx   *float64 `json:"gain_yaw_deg_per_px,omitempty"`
	GainPitchDegPerPx *float64 `json:"gain_pitch_deg_per_px,omitempty"`

	SmoothYaw   *float64 `json:"smooth_yaw,omitempty"`
	SmoothPitch *float64 `json:"smooth_pitch,omitempty"`

	DeadzoneYawPx   *float64 `json:"deadzone_yaw_px,omitempty"`
	DeadzonePitchPx *float64 `json:"deadzone_pitch_px,omitempty"`

	InvertYaw   *bool `json:"invert_yaw,omitempty"`
	InvertPitch *bool `json:"invert_pitch,omitempty"`

	YawMinDeg   *float64 `json:"yaw_min_deg,omitempty"`
	YawMaxDeg   *float64 `json:"yaw_max_deg,omitempty"`
	PitchMinDeg *float64 `json:"pitch_min_deg,omitempty"`
	PitchMaxDeg *float64 `json:"pitch_max_deg,omitempty"`

	TrimYawDeg   *float64 `json:"trim_yaw_deg,omitempty"`
	TrimPitchDeg *float64 `json:"trim_pitch_deg,omitempty"`

	MinPulseUs *uint32 `json:"min_pulse_us,omitempty"`
	MaxPulseUs *uint32 `json:"max_pulse_us,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must have
// a .json extension and be under the max file size. Fields omitted from the
// JSON retain their defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching upward from the working directory. Panics if
// the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable.
func (c *TuningConfig) Validate() error {
	for name, v := range map[string]*float64{
		"smooth_yaw":   c.SmoothYaw,
		"smooth_pitch": c.SmoothPitch,
	} {
		if v != nil && (*v <= 0 || *v > 1) {
			return fmt.Errorf("%s must be in (0, 1], got %f", name, *v)
		}
	}

	for name, v := range map[string]*float64{
		"gain_yaw_deg_per_px":   c.GainYawDegPerPx,
		"gain_pitch_deg_per_px": c.GainPitchDegPerPx,
	} {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", name, *v)
		}
	}

	for name, v := range map[string]*float64{
		"deadzone_yaw_px":   c.DeadzoneYawPx,
		"deadzone_pitch_px": c.DeadzonePitchPx,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, *v)
		}
	}

	if c.YawMinDeg != nil && c.YawMaxDeg != nil && *c.YawMinDeg >= *c.YawMaxDeg {
		return fmt.Errorf("yaw_min_deg %f must be below yaw_max_deg %f", *c.YawMinDeg, *c.YawMaxDeg)
	}
	if c.PitchMinDeg != nil && c.PitchMaxDeg != nil && *c.PitchMinDeg >= *c.PitchMaxDeg {
		return fmt.Errorf("pitch_min_deg %f must be below pitch_max_deg %f", *c.PitchMinDeg, *c.PitchMaxDeg)
	}

	minUs, maxUs := c.GetMinPulseUs(), c.GetMaxPulseUs()
	if minUs >= maxUs {
		return fmt.Errorf("min_pulse_us %d must be below max_pulse_us %d", minUs, maxUs)
	}

	return nil
}

// GetGainYawDegPerPx returns the gain_yaw_deg_per_px value or the default.
func (c *TuningConfig) GetGainYawDegPerPx() float64 {
	if c.GainYawDegPerPx == nil {
		return 0.06
	}
	return *c.GainYawDegPerPx
}

// GetGainPitchDegPerPx returns the gain_pitch_deg_per_px value or the default.
func (c *TuningConfig) GetGainPitchDegPerPx() float64 {
	if c.GainPitchDegPerPx == nil {
		return 0.10
	}
	return *c.GainPitchDegPerPx
}

// GetSmoothYaw returns the smooth_yaw value or the default.
func (c *TuningConfig) GetSmoothYaw() float64 {
	if c.SmoothYaw == nil {
		return 0.25
	}
	return *c.SmoothYaw
}

// GetSmoothPitch returns the smooth_pitch value or the default.
func (c *TuningConfig) GetSmoothPitch() float64 {
	if c.SmoothPitch == nil {
		return 0.25
	}
	return *c.SmoothPitch
}

// GetDeadzoneYawPx returns the deadzone_yaw_px value or the default.
func (c *TuningConfig) GetDeadzoneYawPx() float64 {
	if c.DeadzoneYawPx == nil {
		return 10.0
	}
	return *c.DeadzoneYawPx
}

// GetDeadzonePitchPx returns the deadzone_pitch_px value or the default.
func (c *TuningConfig) GetDeadzonePitchPx() float64 {
	if c.DeadzonePitchPx == nil {
		return 10.0
	}
	return *c.DeadzonePitchPx
}

// GetInvertYaw returns the invert_yaw value or the default.
func (c *TuningConfig) GetInvertYaw() bool {
	if c.InvertYaw == nil {
		return true
	}
	return *c.InvertYaw
}

// GetInvertPitch returns the invert_pitch value or the default.
func (c *TuningConfig) GetInvertPitch() bool {
	if c.InvertPitch == nil {
		return false
	}
	return *c.InvertPitch
}

// GetYawMinDeg returns the yaw_min_deg value or the default.
func (c *TuningConfig) GetYawMinDeg() float64 {
	if c.YawMinDeg == nil {
		return -70.0
	}
	return *c.YawMinDeg
}

// GetYawMaxDeg returns the yaw_max_deg value or the default.
func (c *TuningConfig) GetYawMaxDeg() float64 {
	if c.YawMaxDeg == nil {
		return 70.0
	}
	return *c.YawMaxDeg
}

// GetPitchMinDeg returns the pitch_min_deg value or the default.
func (c *TuningConfig) GetPitchMinDeg() float64 {
	if c.PitchMinDeg == nil {
		return -65.0
	}
	return *c.PitchMinDeg
}

// GetPitchMaxDeg returns the pitch_max_deg value or the default.
func (c *TuningConfig) GetPitchMaxDeg() float64 {
	if c.PitchMaxDeg == nil {
		return 65.0
	}
	return *c.PitchMaxDeg
}

// GetTrimYawDeg returns the trim_yaw_deg value or the default.
func (c *TuningConfig) GetTrimYawDeg() float64 {
	if c.TrimYawDeg == nil {
		return 0.0
	}
	return *c.TrimYawDeg
}

// GetTrimPitchDeg returns the trim_pitch_deg value or the default.
func (c *TuningConfig) GetTrimPitchDeg() float64 {
	if c.TrimPitchDeg == nil {
		return 0.0
	}
	return *c.TrimPitchDeg
}

// GetMinPulseUs returns the min_pulse_us value or the default.
func (c *TuningConfig) GetMinPulseUs() uint32 {
	if c.MinPulseUs == nil {
		return 500
	}
	return *c.MinPulseUs
}

// GetMaxPulseUs returns the max_pulse_us value or the default.
func (c *TuningConfig) GetMaxPulseUs() uint32 {
	if c.MaxPulseUs == nil {
		return 2400
	}
	return *c.MaxPulseUs
}

// ServoTuning materializes the config into the complete snapshot the servo
// controller consumes.
func (c *TuningConfig) ServoTuning() servo.Tuning {
	return servo.Tuning{
		GainYawDegPerPx:   c.GetGainYawDegPerPx(),
		GainPitchDegPerPx: c.GetGainPitchDegPerPx(),
		SmoothYaw:         c.GetSmoothYaw(),
		SmoothPitch:       c.GetSmoothPitch(),
		DeadzoneYawPx:     c.GetDeadzoneYawPx(),
		DeadzonePitchPx:   c.GetDeadzonePitchPx(),
		InvertYaw:         c.GetInvertYaw(),
		InvertPitch:       c.GetInvertPitch(),
		YawMinDeg:         c.GetYawMinDeg(),
		YawMaxDeg:         c.GetYawMaxDeg(),
		PitchMinDeg:       c.GetPitchMinDeg(),
		PitchMaxDeg:       c.GetPitchMaxDeg(),
		TrimYawDeg:        c.GetTrimYawDeg(),
		TrimPitchDeg:      c.GetTrimPitchDeg(),
		MinPulseUs:        c.GetMinPulseUs(),
		MaxPulseUs:        c.GetMaxPulseUs(),
	}
}
