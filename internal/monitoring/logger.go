// Package monitoring is the diagnostic channel for the head controller. The
// host never sees these lines unless transport mirroring is switched on by a
// "log" command, in which case they are copied verbatim onto the wire.
package monitoring

import (
	"fmt"
	"io"
	"log"
	"sync"

	"golang.org/x/time/rate"
)

// Level tags a diagnostic line.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Logger is an owned diagnostic service. Components receive a *Logger rather
// than reaching for process-wide state, so tests can capture or mute output
// per instance. When a mirror sink is attached, lines are also written to it,
// throttled so a flood of bad input cannot saturate the transport the mirror
// usually points at.
type Logger struct {
	mu       sync.Mutex
	out      func(format string, v ...interface{})
	mirror   io.Writer
	throttle *rate.Limiter
}

// New returns a Logger writing through the package-level Logf.
func New() *Logger {
	return &Logger{
		out:      func(format string, v ...interface{}) { Logf(format, v...) },
		throttle: rate.NewLimiter(rate.Limit(10), 20),
	}
}

// SetOutput replaces the sink for diagnostic lines. Passing nil mutes the
// logger (the mirror, if enabled, still receives lines).
func (l *Logger) SetOutput(f func(format string, v ...interface{})) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	l.out = f
}

// EnableMirror starts copying diagnostic lines to w, one line per write.
func (l *Logger) EnableMirror(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mirror = w
}

// DisableMirror stops copying diagnostic lines to the transport.
func (l *Logger) DisableMirror() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mirror = nil
}

// MirrorEnabled reports whether a mirror sink is currently attached.
func (l *Logger) MirrorEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mirror != nil
}

func (l *Logger) logf(level Level, format string, v ...interface{}) {
	l.mu.Lock()
	out := l.out
	mirror := l.mirror
	l.mu.Unlock()

	out("[%s] "+format, append([]interface{}{level}, v...)...)

	if mirror != nil && l.throttle.Allow() {
		line := fmt.Sprintf("[%s] "+format+"\n", append([]interface{}{level}, v...)...)
		mirror.Write([]byte(line))
	}
}

func (l *Logger) Debugf(format string, v ...interface{}) { l.logf(LevelDebug, format, v...) }
func (l *Logger) Infof(format string, v ...interface{})  { l.logf(LevelInfo, format, v...) }
func (l *Logger) Warnf(format string, v ...interface{})  { l.logf(LevelWarn, format, v...) }
func (l *Logger) Errorf(format string, v ...interface{}) { l.logf(LevelError, format, v...) }
