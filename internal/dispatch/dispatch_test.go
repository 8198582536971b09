package dispatch

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/headlink/internal/monitoring"
	"github.com/banshee-data/headlink/internal/protocol"
)

type fakeOverlay struct {
	time, weather, text []string
}

func (f *fakeOverlay) SetTime(s string)    { f.time = append(f.time, s) }
func (f *fakeOverlay) SetWeather(s string) { f.weather = append(f.weather, s) }
func (f *fakeOverlay) SetText(s string)    { f.text = append(f.text, s) }

type fakeExpression struct {
	keys []string
}

func (f *fakeExpression) HandleEmotion(key string) { f.keys = append(f.keys, key) }

type fakeDisplay struct {
	modes []UIMode
}

func (f *fakeDisplay) SetUIMode(m UIMode) { f.modes = append(f.modes, m) }

type fakeServo struct {
	trackCalls []protocol.TrackPayload
	absCalls   []protocol.ServoPayload
}

func (f *fakeServo) UpdateFromError(dx, dy float64, dtMs int64) error {
	f.trackCalls = append(f.trackCalls, protocol.TrackPayload{DXPixels: dx, DYPixels: dy, DTMillis: dtMs})
	return nil
}

func (f *fakeServo) SetAngles(yaw, pitch float64) error {
	f.absCalls = append(f.absCalls, protocol.ServoPayload{YawDeg: yaw, PitchDeg: pitch})
	return nil
}

type harness struct {
	overlay    *fakeOverlay
	expression *fakeExpression
	display    *fakeDisplay
	servo      *fakeServo
	log        *monitoring.Logger
	logged     *[]string
	mirror     *bytes.Buffer
	d          *Dispatcher
}

func newHarness() *harness {
	h := &harness{
		overlay:    &fakeOverlay{},
		expression: &fakeExpression{},
		display:    &fakeDisplay{},
		servo:      &fakeServo{},
		log:        monitoring.New(),
		mirror:     &bytes.Buffer{},
	}
	var logged []string
	h.logged = &logged
	h.log.SetOutput(func(format string, v ...interface{}) {
		logged = append(logged, format)
	})
	h.d = New(h.overlay, h.expression, h.display, h.servo, h.log, h.mirror)
	return h
}

func msg(kind protocol.Kind, text string) protocol.Message {
	return protocol.Message{Kind: kind, RawKind: kind.String(), Text: text}
}

func TestDispatchOverlayKinds(t *testing.T) {
	h := newHarness()

	h.d.Dispatch(msg(protocol.KindTime, "12:34"))
	h.d.Dispatch(msg(protocol.KindWeather, "+21C"))
	h.d.Dispatch(msg(protocol.KindText, "hello"))

	assert.Equal(t, []string{"12:34"}, h.overlay.time)
	assert.Equal(t, []string{"+21C"}, h.overlay.weather)
	assert.Equal(t, []string{"hello"}, h.overlay.text)
}

func TestDispatchEmotion(t *testing.T) {
	h := newHarness()
	h.d.Dispatch(msg(protocol.KindEmotion, "happy"))
	assert.Equal(t, []string{"happy"}, h.expression.keys)
}

func TestDispatchModeTable(t *testing.T) {
	cases := []struct {
		payload string
		want    UIMode
	}{
		{"boot", UIBoot},
		{"run", UIRun},
		{"sleep", UISleep},
		{"", UISleep},
		{"anything-else", UISleep},
	}
	for _, tc := range cases {
		t.Run("payload "+tc.payload, func(t *testing.T) {
			h := newHarness()
			h.d.Dispatch(msg(protocol.KindMode, tc.payload))
			require.Len(t, h.display.modes, 1)
			assert.Equal(t, tc.want, h.display.modes[0])
		})
	}
}

func TestDispatchTrack(t *testing.T) {
	h := newHarness()
	h.d.Dispatch(protocol.Message{
		Kind:  protocol.KindTrack,
		Track: protocol.TrackPayload{DXPixels: 20, DYPixels: -3, DTMillis: 16},
	})
	require.Len(t, h.servo.trackCalls, 1)
	assert.Equal(t, protocol.TrackPayload{DXPixels: 20, DYPixels: -3, DTMillis: 16}, h.servo.trackCalls[0])
}

func TestDispatchServoAbsolute(t *testing.T) {
	h := newHarness()
	h.d.Dispatch(protocol.Message{
		Kind:  protocol.KindServo,
		Servo: protocol.ServoPayload{YawDeg: 10, PitchDeg: -5},
	})
	require.Len(t, h.servo.absCalls, 1)
	assert.Equal(t, protocol.ServoPayload{YawDeg: 10, PitchDeg: -5}, h.servo.absCalls[0])
}

func TestDispatchLogToggle(t *testing.T) {
	h := newHarness()

	h.d.Dispatch(msg(protocol.KindLog, "on"))
	assert.True(t, h.log.MirrorEnabled())

	h.d.Dispatch(msg(protocol.KindLog, "off"))
	assert.False(t, h.log.MirrorEnabled())

	// Anything but "on" means off.
	h.d.Dispatch(msg(protocol.KindLog, "on"))
	h.d.Dispatch(msg(protocol.KindLog, "banana"))
	assert.False(t, h.log.MirrorEnabled())
}

func TestDispatchHelloIsNoOp(t *testing.T) {
	h := newHarness()
	h.d.Dispatch(msg(protocol.KindHello, "ping"))

	assert.Empty(t, h.overlay.time)
	assert.Empty(t, h.expression.keys)
	assert.Empty(t, h.display.modes)
	assert.Empty(t, h.servo.trackCalls)
	assert.Empty(t, *h.logged)
}

func TestDispatchUnknownKindWarns(t *testing.T) {
	h := newHarness()
	h.d.Dispatch(protocol.Message{Kind: protocol.KindUnknown, RawKind: "ping"})

	require.NotEmpty(t, *h.logged)
	joined := strings.Join(*h.logged, "|")
	assert.Contains(t, joined, "unknown kind")

	// No collaborator state moved.
	assert.Empty(t, h.overlay.time)
	assert.Empty(t, h.servo.trackCalls)
	assert.Empty(t, h.servo.absCalls)
	assert.Empty(t, h.display.modes)
}
