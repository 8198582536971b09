// Package dispatch routes decoded commands to their collaborators. It is
// pure routing: the only logic it owns is the mode-string mapping and the
// diagnostic-mirror toggle, everything else is a forward.
package dispatch

import (
	"io"

	"github.com/banshee-data/headlink/internal/monitoring"
	"github.com/banshee-data/headlink/internal/protocol"
)

// UIMode selects the display state. Sleep disables the screen; Boot and Run
// re-enable it.
type UIMode int

const (
	UISleep UIMode = iota
	UIBoot
	UIRun
)

func (m UIMode) String() string {
	switch m {
	case UIBoot:
		return "boot"
	case UIRun:
		return "run"
	default:
		return "sleep"
	}
}

// UIModeForPayload maps a mode payload string to a UIMode. Anything but
// "boot" or "run", including the empty default, selects Sleep.
func UIModeForPayload(payload string) UIMode {
	switch payload {
	case "boot":
		return UIBoot
	case "run":
		return UIRun
	default:
		return UISleep
	}
}

// Overlay receives the host-pushed status strings drawn over the face.
type Overlay interface {
	SetTime(string)
	SetWeather(string)
	SetText(string)
}

// Expression receives emotion keys. An unknown key is a silent no-op inside
// the collaborator.
type Expression interface {
	HandleEmotion(key string)
}

// Display receives UI mode transitions.
type Display interface {
	SetUIMode(UIMode)
}

// ServoDriver is the servo control loop as seen from routing.
type ServoDriver interface {
	UpdateFromError(dxPx, dyPx float64, dtMs int64) error
	SetAngles(yawDeg, pitchDeg float64) error
}

// Dispatcher routes decoded messages. Collaborators are injected at
// construction; nil collaborators are not supported.
type Dispatcher struct {
	overlay    Overlay
	expression Expression
	display    Display
	servo      ServoDriver
	log        *monitoring.Logger

	// mirror is the sink the "log on" command attaches to the logger,
	// normally the transport itself.
	mirror io.Writer
}

// New returns a Dispatcher wired to the given collaborators. mirror is the
// writer diagnostics are copied to while transport log mirroring is enabled.
func New(overlay Overlay, expression Expression, display Display, servo ServoDriver, log *monitoring.Logger, mirror io.Writer) *Dispatcher {
	return &Dispatcher{
		overlay:    overlay,
		expression: expression,
		display:    display,
		servo:      servo,
		log:        log,
		mirror:     mirror,
	}
}

// Dispatch routes one decoded message. Servo errors surface only on the
// diagnostic channel; the wire protocol has no error-reply kind.
func (d *Dispatcher) Dispatch(msg protocol.Message) {
	switch msg.Kind {
	case protocol.KindTime:
		d.overlay.SetTime(msg.Text)
	case protocol.KindWeather:
		d.overlay.SetWeather(msg.Text)
	case protocol.KindText:
		d.overlay.SetText(msg.Text)
	case protocol.KindEmotion:
		d.expression.HandleEmotion(msg.Text)
	case protocol.KindMode:
		d.display.SetUIMode(UIModeForPayload(msg.Text))
	case protocol.KindTrack:
		if err := d.servo.UpdateFromError(msg.Track.DXPixels, msg.Track.DYPixels, msg.Track.DTMillis); err != nil {
			d.log.Errorf("[link] track update failed: %v", err)
		}
		d.log.Debugf("[link] track: dx=%.1f dy=%.1f dt=%d", msg.Track.DXPixels, msg.Track.DYPixels, msg.Track.DTMillis)
	case protocol.KindServo:
		if err := d.servo.SetAngles(msg.Servo.YawDeg, msg.Servo.PitchDeg); err != nil {
			d.log.Errorf("[link] servo set failed: %v", err)
		}
	case protocol.KindLog:
		if msg.Text == "on" {
			d.log.EnableMirror(d.mirror)
			d.log.Infof("[link] transport log mirroring ON")
		} else {
			d.log.Infof("[link] transport log mirroring OFF")
			d.log.DisableMirror()
		}
	case protocol.KindHello:
		// keep-alive from the host; liveness is tracked by the session
	default:
		d.log.Warnf("[link] unknown kind %q", msg.RawKind)
	}
}
