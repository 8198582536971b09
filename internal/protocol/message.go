// Package protocol implements the newline-delimited JSON command protocol
// spoken between the host and the head: byte framing with a bounded
// accumulator, and decoding of candidate lines into a closed command variant.
package protocol

// Kind identifies a command from the closed wire vocabulary. The string tag
// on the wire is decoded into a Kind exactly once, at the protocol boundary;
// everything downstream switches on the variant, never on strings.
type Kind int

const (
	// KindUnknown covers any tag outside the closed vocabulary, including a
	// missing tag. The original string is retained on the Message for logging.
	KindUnknown Kind = iota
	KindTime
	KindWeather
	KindText
	KindEmotion
	KindMode
	KindTrack
	KindServo
	KindLog
	KindHello
)

var kindNames = map[Kind]string{
	KindUnknown: "unknown",
	KindTime:    "time",
	KindWeather: "weather",
	KindText:    "text",
	KindEmotion: "emotion",
	KindMode:    "mode",
	KindTrack:   "track",
	KindServo:   "servo",
	KindLog:     "log",
	KindHello:   "hello",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

var kindByTag = map[string]Kind{
	"time":    KindTime,
	"weather": KindWeather,
	"text":    KindText,
	"emotion": KindEmotion,
	"mode":    KindMode,
	"track":   KindTrack,
	"servo":   KindServo,
	"log":     KindLog,
	"hello":   KindHello,
}

// KindForTag maps a wire tag to its Kind. Unrecognized or empty tags map to
// KindUnknown.
func KindForTag(tag string) Kind {
	if k, ok := kindByTag[tag]; ok {
		return k
	}
	return KindUnknown
}

// TrackPayload is the pixel tracking error carried by a "track" command.
// Fields missing from the wire default to zero.
type TrackPayload struct {
	DXPixels float64 `json:"dx_px"`
	DYPixels float64 `json:"dy_px"`
	DTMillis int64   `json:"dt_ms"`
}

// ServoPayload is the absolute angle pair carried by a "servo" command.
type ServoPayload struct {
	YawDeg   float64 `json:"yaw"`
	PitchDeg float64 `json:"pitch"`
}

// Message is one decoded command. Exactly one payload field is meaningful,
// selected by Kind: Text for the string-payload kinds, Track for KindTrack,
// Servo for KindServo. Messages are transient; one per line, consumed
// immediately, never retained.
type Message struct {
	Kind Kind

	// RawKind is the tag exactly as it appeared on the wire. Populated for
	// every message so unrecognized kinds can be logged verbatim.
	RawKind string

	Text  string
	Track TrackPayload
	Servo ServoPayload
}
