package protocol

import (
	"encoding/json"
	"fmt"
)

// MaxDecodeBytes is the decode workspace bound. A framed line longer than
// this fails decode on its own; framing and decoding are separate stages, so
// subsequent lines are unaffected.
const MaxDecodeBytes = 256

// wireMessage is the raw shape of one line: a kind tag plus a payload whose
// type depends on the kind. The payload is deferred so each kind can apply
// its own defaults.
type wireMessage struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses one complete candidate line into a Message. It returns an
// error only for structural failures (oversized line, invalid JSON); a
// recognized kind with missing or mistyped payload fields decodes with
// defaults, and an unrecognized tag decodes into KindUnknown rather than an
// error. Callers log decode errors and drop the line; nothing propagates
// past this boundary.
func Decode(line string) (Message, error) {
	if len(line) > MaxDecodeBytes {
		return Message{}, fmt.Errorf("line exceeds decode limit: %d > %d bytes", len(line), MaxDecodeBytes)
	}

	var wire wireMessage
	if err := json.Unmarshal([]byte(line), &wire); err != nil {
		return Message{}, fmt.Errorf("invalid command line: %w", err)
	}

	msg := Message{
		Kind:    KindForTag(wire.Kind),
		RawKind: wire.Kind,
	}

	switch msg.Kind {
	case KindTime, KindWeather, KindText, KindEmotion, KindMode, KindLog, KindHello:
		// String payload; a missing or non-string payload defaults to "".
		if len(wire.Payload) > 0 {
			json.Unmarshal(wire.Payload, &msg.Text)
		}
	case KindTrack:
		if len(wire.Payload) > 0 {
			json.Unmarshal(wire.Payload, &msg.Track)
		}
	case KindServo:
		if len(wire.Payload) > 0 {
			json.Unmarshal(wire.Payload, &msg.Servo)
		}
	}

	return msg, nil
}
