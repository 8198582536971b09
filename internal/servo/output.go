package servo

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// PulseWriter renders pulse widths to hardware. Implementations must be
// idempotent: writing the same pair twice is harmless.
type PulseWriter interface {
	WritePulses(yawUs, pitchUs uint32) error
}

// NopPulseWriter discards pulse output. Used when the daemon runs without
// servo hardware attached (dev mode).
type NopPulseWriter struct{}

func (NopPulseWriter) WritePulses(yawUs, pitchUs uint32) error { return nil }

// SysfsPWM drives two channels of a Linux sysfs PWM chip
// (/sys/class/pwm/pwmchipN). The sysfs interface takes nanoseconds; pulse
// widths arrive in microseconds and the 20 ms period is fixed by
// PWMFrequencyHz.
type SysfsPWM struct {
	yawDir   string
	pitchDir string
}

// NewSysfsPWM exports the two channels on the given chip directory and sets
// their period. Typical chipDir is "/sys/class/pwm/pwmchip0".
func NewSysfsPWM(chipDir string, yawChannel, pitchChannel int) (*SysfsPWM, error) {
	p := &SysfsPWM{
		yawDir:   filepath.Join(chipDir, fmt.Sprintf("pwm%d", yawChannel)),
		pitchDir: filepath.Join(chipDir, fmt.Sprintf("pwm%d", pitchChannel)),
	}

	for _, ch := range []int{yawChannel, pitchChannel} {
		if err := exportChannel(chipDir, ch); err != nil {
			return nil, err
		}
	}

	periodNs := strconv.Itoa(PeriodUs * 1000)
	for _, dir := range []string{p.yawDir, p.pitchDir} {
		if err := writeAttr(dir, "period", periodNs); err != nil {
			return nil, fmt.Errorf("failed to set PWM period: %w", err)
		}
		if err := writeAttr(dir, "enable", "1"); err != nil {
			return nil, fmt.Errorf("failed to enable PWM channel: %w", err)
		}
	}
	return p, nil
}

// WritePulses sets the duty cycle of both channels.
func (p *SysfsPWM) WritePulses(yawUs, pitchUs uint32) error {
	if err := writeAttr(p.yawDir, "duty_cycle", strconv.FormatUint(uint64(yawUs)*1000, 10)); err != nil {
		return fmt.Errorf("yaw duty write: %w", err)
	}
	if err := writeAttr(p.pitchDir, "duty_cycle", strconv.FormatUint(uint64(pitchUs)*1000, 10)); err != nil {
		return fmt.Errorf("pitch duty write: %w", err)
	}
	return nil
}

// Close disables both channels, leaving the servos unpowered.
func (p *SysfsPWM) Close() error {
	var firstErr error
	for _, dir := range []string{p.yawDir, p.pitchDir} {
		if err := writeAttr(dir, "enable", "0"); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func exportChannel(chipDir string, channel int) error {
	chDir := filepath.Join(chipDir, fmt.Sprintf("pwm%d", channel))
	if _, err := os.Stat(chDir); err == nil {
		return nil // already exported
	}
	if err := writeAttr(chipDir, "export", strconv.Itoa(channel)); err != nil {
		return fmt.Errorf("failed to export PWM channel %d: %w", channel, err)
	}
	return nil
}

func writeAttr(dir, name, value string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(value), 0o644)
}
