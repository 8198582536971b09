package protocol

import "github.com/banshee-data/headlink/internal/monitoring"

// MaxLineBytes is the framing bound: a line that grows past this without a
// terminator is dropped wholesale rather than buffered without limit.
const MaxLineBytes = 1024

// Framer accumulates raw transport bytes into newline-delimited candidate
// lines. It never blocks: callers feed it whatever is already buffered and
// collect whatever lines completed. Carriage returns are ignored so both
// "\n" and "\r\n" hosts work.
type Framer struct {
	buf []byte
	log *monitoring.Logger

	overflows int
}

// NewFramer returns a Framer reporting overflow warnings through log.
func NewFramer(log *monitoring.Logger) *Framer {
	return &Framer{
		buf: make([]byte, 0, 256),
		log: log,
	}
}

// Feed consumes a chunk of transport bytes and returns the candidate lines
// completed by this chunk, in arrival order. An empty line (bare newline) is
// ignored. If the accumulator exceeds MaxLineBytes without a terminator its
// contents are discarded and a warning is emitted; subsequent bytes start a
// fresh line.
func (f *Framer) Feed(chunk []byte) []string {
	var lines []string
	for _, b := range chunk {
		switch b {
		case '\n':
			if len(f.buf) > 0 {
				lines = append(lines, string(f.buf))
				f.buf = f.buf[:0]
			}
		case '\r':
			// ignored
		default:
			f.buf = append(f.buf, b)
			if len(f.buf) > MaxLineBytes {
				f.overflows++
				f.log.Warnf("[link] line overflow (%d bytes without terminator), dropping", len(f.buf))
				f.buf = f.buf[:0]
			}
		}
	}
	return lines
}

// Pending returns the number of bytes accumulated toward the next line.
func (f *Framer) Pending() int { return len(f.buf) }

// Overflows returns how many oversized lines have been dropped.
func (f *Framer) Overflows() int { return f.overflows }
