package servo

import (
	"math"

	"github.com/banshee-data/headlink/internal/monitoring"
)

// PWM timing. 50 Hz with a 16-bit timer is the standard RC servo setup.
const (
	PWMFrequencyHz = 50
	PWMResBits     = 16
	DutyMax        = (1 << PWMResBits) - 1
	PeriodUs       = 1_000_000 / PWMFrequencyHz
)

// Unconditional pulse safety bounds, independent of tuning. A misconfigured
// pulse range cannot drive the hardware outside these.
const (
	PulseFloorUs uint32 = 500
	PulseCeilUs  uint32 = 2500
)

// PulseToDuty converts a pulse width in microseconds to a duty value for a
// 16-bit timer running at PWMFrequencyHz.
func PulseToDuty(pulseUs uint32) uint32 {
	return uint32(uint64(pulseUs) * DutyMax / PeriodUs)
}

// Controller holds the current angle for both axes and renders every change
// to pulse widths through a PulseWriter. Angles are mutated only here, on the
// control goroutine; pulse output is an idempotent last-write-wins effect.
type Controller struct {
	cfg Tuning
	out PulseWriter
	log *monitoring.Logger

	yawDeg   float64
	pitchDeg float64

	lastYawUs   uint32
	lastPitchUs uint32
}

// NewController returns a Controller with the given tuning, writing pulses to
// out. Call Center to move to neutral and produce the first pulse output.
func NewController(cfg Tuning, out PulseWriter, log *monitoring.Logger) *Controller {
	return &Controller{cfg: cfg, out: out, log: log}
}

// SetTuning replaces the whole tuning snapshot, effective from the next
// update.
func (c *Controller) SetTuning(t Tuning) {
	c.cfg = t
	c.log.Infof("servo tuning set: gain yaw=%.3f pitch=%.3f smooth yaw=%.2f pitch=%.2f deadzone yaw=%.1fpx pitch=%.1fpx inv(Y:%t,P:%t) yaw[%.1f..%.1f] pitch[%.1f..%.1f] trim(%.1f/%.1f) pulses %d..%d",
		t.GainYawDegPerPx, t.GainPitchDegPerPx,
		t.SmoothYaw, t.SmoothPitch,
		t.DeadzoneYawPx, t.DeadzonePitchPx,
		t.InvertYaw, t.InvertPitch,
		t.YawMinDeg, t.YawMaxDeg, t.PitchMinDeg, t.PitchMaxDeg,
		t.TrimYawDeg, t.TrimPitchDeg,
		t.MinPulseUs, t.MaxPulseUs)
}

// Tuning returns the active tuning snapshot.
func (c *Controller) Tuning() Tuning { return c.cfg }

// Center moves both axes to neutral (trim still applies at pulse mapping).
func (c *Controller) Center() error {
	c.yawDeg = 0
	c.pitchDeg = 0
	return c.apply()
}

// SetAngles applies an absolute angle pair immediately, with clamping but no
// smoothing. Used for calibration; it also becomes the new base the next
// error-driven update smooths from.
func (c *Controller) SetAngles(yawDeg, pitchDeg float64) error {
	c.yawDeg = clamp(yawDeg, c.cfg.YawMinDeg, c.cfg.YawMaxDeg)
	c.pitchDeg = clamp(pitchDeg, c.cfg.PitchMinDeg, c.cfg.PitchMaxDeg)
	err := c.apply()
	c.log.Debugf("servo abs: yaw=%.1f pitch=%.1f -> pulses Y=%dus P=%dus",
		c.yawDeg, c.pitchDeg, c.lastYawUs, c.lastPitchUs)
	return err
}

// UpdateFromError advances both axes toward the tracked target given a pixel
// error. dtMs is carried on the wire but unused by the math. Per axis:
// inversion, deadzone suppression, proportional target with clamping, then a
// smoothed partial step toward the target and a defensive re-clamp.
func (c *Controller) UpdateFromError(dxPx, dyPx float64, dtMs int64) error {
	ex, ey := dxPx, dyPx
	if c.cfg.InvertYaw {
		ex = -ex
	}
	if c.cfg.InvertPitch {
		ey = -ey
	}

	if math.Abs(ex) <= c.cfg.DeadzoneYawPx {
		ex = 0
	}
	if math.Abs(ey) <= c.cfg.DeadzonePitchPx {
		ey = 0
	}

	targetYaw := clamp(c.yawDeg+ex*c.cfg.GainYawDegPerPx, c.cfg.YawMinDeg, c.cfg.YawMaxDeg)
	targetPitch := clamp(c.pitchDeg+ey*c.cfg.GainPitchDegPerPx, c.cfg.PitchMinDeg, c.cfg.PitchMaxDeg)

	c.yawDeg += (targetYaw - c.yawDeg) * c.cfg.SmoothYaw
	c.pitchDeg += (targetPitch - c.pitchDeg) * c.cfg.SmoothPitch

	c.yawDeg = clamp(c.yawDeg, c.cfg.YawMinDeg, c.cfg.YawMaxDeg)
	c.pitchDeg = clamp(c.pitchDeg, c.cfg.PitchMinDeg, c.cfg.PitchMaxDeg)

	err := c.apply()
	c.log.Debugf("servo track: err(px)=(%.1f,%.1f) target=(%.2f,%.2f) angle=(%.2f,%.2f)",
		dxPx, dyPx, targetYaw, targetPitch, c.yawDeg, c.pitchDeg)
	return err
}

// CurrentYawDeg returns the current yaw angle.
func (c *Controller) CurrentYawDeg() float64 { return c.yawDeg }

// CurrentPitchDeg returns the current pitch angle.
func (c *Controller) CurrentPitchDeg() float64 { return c.pitchDeg }

// LastPulses returns the most recently written pulse widths in microseconds.
func (c *Controller) LastPulses() (yawUs, pitchUs uint32) {
	return c.lastYawUs, c.lastPitchUs
}

func (c *Controller) apply() error {
	yawUs := c.pulseForAngle(c.yawDeg + c.cfg.TrimYawDeg)
	pitchUs := c.pulseForAngle(c.pitchDeg + c.cfg.TrimPitchDeg)
	c.lastYawUs = yawUs
	c.lastPitchUs = pitchUs
	return c.out.WritePulses(yawUs, pitchUs)
}

// pulseForAngle maps an angle (trim already added) to a pulse width: shift
// -90..+90 into 0..180, interpolate into the configured pulse range, then
// clip to the unconditional safety bounds.
func (c *Controller) pulseForAngle(angleDeg float64) uint32 {
	a180 := clamp(angleDeg+90.0, 0.0, 180.0)
	pulse := c.cfg.MinPulseUs + uint32(float64(c.cfg.MaxPulseUs-c.cfg.MinPulseUs)*(a180/180.0))
	if pulse < PulseFloorUs {
		pulse = PulseFloorUs
	}
	if pulse > PulseCeilUs {
		pulse = PulseCeilUs
	}
	return pulse
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
