package protocol

import "encoding/json"

// Event is a device-to-host announcement, currently only the "hello"
// handshake and its periodic "ping" beacon.
type Event struct {
	Kind    string `json:"kind"`
	Payload string `json:"payload"`
}

// EncodeEvent renders an event as a single newline-terminated wire line. The
// caller writes the returned bytes in one flushed write so the line is atomic
// from the host's perspective.
func EncodeEvent(kind, payload string) []byte {
	b, err := json.Marshal(Event{Kind: kind, Payload: payload})
	if err != nil {
		// Two plain strings cannot fail to marshal.
		panic("protocol: event marshal failed: " + err.Error())
	}
	return append(b, '\n')
}
