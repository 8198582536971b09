package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStringKinds(t *testing.T) {
	cases := []struct {
		line string
		want Message
	}{
		{`{"kind":"time","payload":"12:34"}`, Message{Kind: KindTime, RawKind: "time", Text: "12:34"}},
		{`{"kind":"weather","payload":"+21C clear"}`, Message{Kind: KindWeather, RawKind: "weather", Text: "+21C clear"}},
		{`{"kind":"text","payload":"hi there"}`, Message{Kind: KindText, RawKind: "text", Text: "hi there"}},
		{`{"kind":"emotion","payload":"happy"}`, Message{Kind: KindEmotion, RawKind: "emotion", Text: "happy"}},
		{`{"kind":"mode","payload":"run"}`, Message{Kind: KindMode, RawKind: "mode", Text: "run"}},
		{`{"kind":"log","payload":"on"}`, Message{Kind: KindLog, RawKind: "log", Text: "on"}},
		{`{"kind":"hello","payload":"ready"}`, Message{Kind: KindHello, RawKind: "hello", Text: "ready"}},
	}
	for _, tc := range cases {
		t.Run(tc.want.Kind.String(), func(t *testing.T) {
			got, err := Decode(tc.line)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Decode mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeTrack(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		got, err := Decode(`{"kind":"track","payload":{"dx_px":20,"dy_px":-4.5,"dt_ms":16}}`)
		require.NoError(t, err)
		assert.Equal(t, KindTrack, got.Kind)
		assert.Equal(t, TrackPayload{DXPixels: 20, DYPixels: -4.5, DTMillis: 16}, got.Track)
	})

	t.Run("missing fields default to zero", func(t *testing.T) {
		got, err := Decode(`{"kind":"track","payload":{"dx_px":3}}`)
		require.NoError(t, err)
		assert.Equal(t, TrackPayload{DXPixels: 3}, got.Track)
	})

	t.Run("missing payload defaults to zero", func(t *testing.T) {
		got, err := Decode(`{"kind":"track"}`)
		require.NoError(t, err)
		assert.Equal(t, TrackPayload{}, got.Track)
	})
}

func TestDecodeServo(t *testing.T) {
	got, err := Decode(`{"kind":"servo","payload":{"yaw":15,"pitch":-10}}`)
	require.NoError(t, err)
	assert.Equal(t, KindServo, got.Kind)
	assert.Equal(t, ServoPayload{YawDeg: 15, PitchDeg: -10}, got.Servo)
}

func TestDecodeUnknownKind(t *testing.T) {
	got, err := Decode(`{"kind":"ping"}`)
	require.NoError(t, err, "an unrecognized tag is not a decode failure")
	assert.Equal(t, KindUnknown, got.Kind)
	assert.Equal(t, "ping", got.RawKind)
}

func TestDecodeMissingKind(t *testing.T) {
	got, err := Decode(`{"payload":"x"}`)
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, got.Kind)
	assert.Equal(t, "", got.RawKind)
}

func TestDecodeMalformed(t *testing.T) {
	for _, line := range []string{
		`{"kind":"track","payload":`,
		`not json at all`,
		`[1,2,3`,
	} {
		_, err := Decode(line)
		assert.Error(t, err, "line %q should fail decode", line)
	}
}

func TestDecodeOversizedLine(t *testing.T) {
	// Structurally valid JSON, but past the decode workspace bound.
	line := `{"kind":"text","payload":"` + strings.Repeat("x", MaxDecodeBytes) + `"}`
	_, err := Decode(line)
	assert.Error(t, err)
}

func TestDecodeMistypedStringPayload(t *testing.T) {
	// Payload of the wrong type falls back to the default, not an error.
	got, err := Decode(`{"kind":"text","payload":42}`)
	require.NoError(t, err)
	assert.Equal(t, "", got.Text)
}

func TestEncodeEventRoundTrip(t *testing.T) {
	b := EncodeEvent("hello", "ready")
	require.True(t, strings.HasSuffix(string(b), "\n"), "event must be newline-terminated")

	var e Event
	require.NoError(t, json.Unmarshal(b[:len(b)-1], &e))
	assert.Equal(t, Event{Kind: "hello", Payload: "ready"}, e)
}

func TestKindForTag(t *testing.T) {
	assert.Equal(t, KindTrack, KindForTag("track"))
	assert.Equal(t, KindUnknown, KindForTag("bogus"))
	assert.Equal(t, KindUnknown, KindForTag(""))
}
