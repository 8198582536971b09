package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/headlink/internal/monitoring"
)

func quietLogger() *monitoring.Logger {
	l := monitoring.New()
	l.SetOutput(func(string, ...interface{}) {})
	return l
}

func TestFramerCompleteLines(t *testing.T) {
	f := NewFramer(quietLogger())

	lines := f.Feed([]byte("{\"kind\":\"hello\"}\n{\"kind\":\"text\"}\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, `{"kind":"hello"}`, lines[0])
	assert.Equal(t, `{"kind":"text"}`, lines[1])
	assert.Equal(t, 0, f.Pending())
}

func TestFramerSplitAcrossChunks(t *testing.T) {
	f := NewFramer(quietLogger())

	lines := f.Feed([]byte(`{"kind":`))
	assert.Empty(t, lines)
	assert.Equal(t, 8, f.Pending())

	lines = f.Feed([]byte("\"hello\"}\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, `{"kind":"hello"}`, lines[0])
}

func TestFramerIgnoresCarriageReturn(t *testing.T) {
	f := NewFramer(quietLogger())

	lines := f.Feed([]byte("abc\r\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, "abc", lines[0])
}

func TestFramerIgnoresEmptyLines(t *testing.T) {
	f := NewFramer(quietLogger())

	lines := f.Feed([]byte("\n\r\n\n"))
	assert.Empty(t, lines)

	lines = f.Feed([]byte("x\n\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, "x", lines[0])
}

func TestFramerOverflowDropsBuffer(t *testing.T) {
	log := monitoring.New()
	var warned bool
	log.SetOutput(func(format string, v ...interface{}) {
		if strings.Contains(format, "WARN") || strings.Contains(format, "overflow") {
			warned = true
		}
	})
	f := NewFramer(log)

	// One byte past the bound, no terminator anywhere.
	lines := f.Feed([]byte(strings.Repeat("a", MaxLineBytes+1)))
	assert.Empty(t, lines)
	assert.Equal(t, 0, f.Pending(), "buffer should be discarded on overflow")
	assert.Equal(t, 1, f.Overflows())
	assert.True(t, warned, "overflow should emit a warning")

	// Subsequent traffic frames normally.
	lines = f.Feed([]byte("ok\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, "ok", lines[0])
}

func TestFramerExactlyMaxLineBytes(t *testing.T) {
	f := NewFramer(quietLogger())

	payload := strings.Repeat("b", MaxLineBytes)
	lines := f.Feed([]byte(payload + "\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, payload, lines[0])
	assert.Equal(t, 0, f.Overflows())
}
