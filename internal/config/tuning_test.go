package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/headlink/internal/servo"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestEmptyConfigYieldsHardwareDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()
	require.NoError(t, cfg.Validate())

	if diff := cmp.Diff(servo.DefaultTuning(), cfg.ServoTuning()); diff != "" {
		t.Errorf("empty config should match hardware defaults (-want +got):\n%s", diff)
	}
}

func TestLoadTuningConfigPartial(t *testing.T) {
	path := writeConfig(t, `{"gain_yaw_deg_per_px": 0.08, "invert_yaw": false}`)

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)

	tuning := cfg.ServoTuning()
	assert.Equal(t, 0.08, tuning.GainYawDegPerPx)
	assert.False(t, tuning.InvertYaw)
	// Unspecified fields keep their defaults.
	assert.Equal(t, 0.25, tuning.SmoothYaw)
	assert.Equal(t, uint32(2400), tuning.MaxPulseUs)
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	_, err := LoadTuningConfig(path)
	assert.Error(t, err)
}

func TestLoadTuningConfigMissingFile(t *testing.T) {
	_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadTuningConfigInvalidJSON(t *testing.T) {
	path := writeConfig(t, `{"gain_yaw_deg_per_px": `)
	_, err := LoadTuningConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		json    string
		wantErr bool
	}{
		{"valid full", `{"smooth_yaw": 0.5, "deadzone_yaw_px": 0}`, false},
		{"smoothing zero", `{"smooth_yaw": 0}`, true},
		{"smoothing above one", `{"smooth_pitch": 1.5}`, true},
		{"negative gain", `{"gain_pitch_deg_per_px": -0.1}`, true},
		{"negative deadzone", `{"deadzone_pitch_px": -1}`, true},
		{"inverted yaw range", `{"yaw_min_deg": 50, "yaw_max_deg": -50}`, true},
		{"inverted pitch range", `{"pitch_min_deg": 10, "pitch_max_deg": 10}`, true},
		{"inverted pulse range", `{"min_pulse_us": 2400, "max_pulse_us": 500}`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.json)
			_, err := LoadTuningConfig(path)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	require.NoError(t, cfg.Validate())

	// The shipped defaults file must agree with the in-code defaults.
	if diff := cmp.Diff(servo.DefaultTuning(), cfg.ServoTuning()); diff != "" {
		t.Errorf("tuning.defaults.json drifted from hardware defaults (-want +got):\n%s", diff)
	}
}
