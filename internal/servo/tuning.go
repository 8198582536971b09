// Package servo owns the closed-loop head actuator control: per-axis angle
// state, the error-driven tracking update, absolute calibration sets, and the
// angle-to-pulse mapping with its unconditional safety clip.
package servo

// Tuning is the complete control snapshot for both axes. It is replaced as a
// whole, never field-by-field; all mutation happens on the single control
// goroutine, so a snapshot is effective from the next update with no torn
// state.
type Tuning struct {
	// Proportional gain: degrees of target movement per pixel of tracking
	// error. The defaults approximate camera field of view divided by frame
	// resolution (~38°/640px horizontal, ~62°/480px vertical).
	GainYawDegPerPx   float64
	GainPitchDegPerPx float64

	// Fraction of the remaining distance to the target covered per update.
	SmoothYaw   float64
	SmoothPitch float64

	// Pixel error at or below this magnitude is treated as zero.
	DeadzoneYawPx   float64
	DeadzonePitchPx float64

	// Axis sign flips for mechanically mirrored servos.
	InvertYaw   bool
	InvertPitch bool

	// Hard angle limits protecting the mechanism.
	YawMinDeg   float64
	YawMaxDeg   float64
	PitchMinDeg float64
	PitchMaxDeg float64

	// Constant angular offset correcting a non-centered neutral.
	TrimYawDeg   float64
	TrimPitchDeg float64

	// Pulse widths mapped to the -90°..+90° extremes.
	MinPulseUs uint32
	MaxPulseUs uint32
}

// DefaultTuning returns the tuning shipped with the head hardware.
func DefaultTuning() Tuning {
	return Tuning{
		GainYawDegPerPx:   0.06,
		GainPitchDegPerPx: 0.10,
		SmoothYaw:         0.25,
		SmoothPitch:       0.25,
		DeadzoneYawPx:     10.0,
		DeadzonePitchPx:   10.0,
		InvertYaw:         true,
		InvertPitch:       false,
		YawMinDeg:         -70.0,
		YawMaxDeg:         70.0,
		PitchMinDeg:       -65.0,
		PitchMaxDeg:       65.0,
		TrimYawDeg:        0.0,
		TrimPitchDeg:      0.0,
		MinPulseUs:        500,
		MaxPulseUs:        2400,
	}
}
