// Package session runs the host link: one Session owns the receive framing,
// decode and dispatch of inbound lines, the liveness watchdog, and the hello
// beacon. Everything happens on a single control goroutine via Poll; no step
// blocks waiting for I/O.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/banshee-data/headlink/internal/dispatch"
	"github.com/banshee-data/headlink/internal/monitoring"
	"github.com/banshee-data/headlink/internal/protocol"
)

const (
	// AnnounceInterval is how often the unsolicited hello beacon goes out, so
	// a freshly (re)connected host can discover the device without sending
	// first.
	AnnounceInterval = 2000 * time.Millisecond

	// SilenceTimeout is how long the link may stay silent before the session
	// gives up. Post-timeout transport state is not trusted; recovery is a
	// cold restart of the process, not an in-place retry.
	SilenceTimeout = 5000 * time.Millisecond

	// RecentActivityWindow bounds QueryRecentActivity, consumed by the
	// power-management collaborator to decide dimming.
	RecentActivityWindow = 3000 * time.Millisecond
)

// ErrRestartRequested is the terminal outcome of the liveness watchdog. The
// hosting process exits on it and relies on its supervisor to restart the
// daemon.
var ErrRestartRequested = errors.New("host link silent, restart requested")

// Transport is the session's view of the serial link.
type Transport interface {
	// Chunks delivers raw inbound bytes; the session drains only what is
	// already buffered.
	Chunks() <-chan []byte
	// SendEvent writes one newline-terminated event line atomically.
	SendEvent(line []byte) error
	// Publish fans a completed inbound line out to diagnostic subscribers.
	Publish(line string)
}

// Recorder persists received commands for diagnostics. Optional.
type Recorder interface {
	RecordCommand(kind, raw string) error
}

// Session binds a transport to the dispatcher and tracks liveness. One per
// active transport, created at boot, alive for the process lifetime; a
// watchdog timeout ends its lifecycle via process restart rather than
// in-place reset.
type Session struct {
	transport  Transport
	dispatcher *dispatch.Dispatcher
	framer     *protocol.Framer
	log        *monitoring.Logger

	recorder Recorder
	now      func() time.Time

	lastRecv     time.Time
	lastAnnounce time.Time
	restartFired bool

	injectMu sync.Mutex
	injected []string
}

// New returns a Session over the given transport.
func New(transport Transport, dispatcher *dispatch.Dispatcher, log *monitoring.Logger) *Session {
	return &Session{
		transport:  transport,
		dispatcher: dispatcher,
		framer:     protocol.NewFramer(log),
		log:        log,
		now:        time.Now,
	}
}

// SetRecorder attaches a command recorder.
func (s *Session) SetRecorder(r Recorder) { s.recorder = r }

// SetClock replaces the time source, for tests driving simulated time.
func (s *Session) SetClock(now func() time.Time) { s.now = now }

// Start announces the device to the host and arms the watchdog. The "ready"
// hello must be the first bytes on the wire.
func (s *Session) Start() error {
	now := s.now()
	s.lastRecv = now
	s.lastAnnounce = now
	if err := s.transport.SendEvent(protocol.EncodeEvent("hello", "ready")); err != nil {
		return err
	}
	s.log.Infof("[link] session started, hello sent")
	return nil
}

// Inject queues a line as if it had arrived on the transport. Safe to call
// from other goroutines (the debug HTTP handler); the line is consumed on the
// next Poll.
func (s *Session) Inject(line string) {
	s.injectMu.Lock()
	defer s.injectMu.Unlock()
	s.injected = append(s.injected, line)
}

// Poll runs one control cycle: drain whatever transport bytes are buffered
// through frame, decode and dispatch, then run the watchdog. It returns
// ErrRestartRequested exactly once when the link has been silent too long;
// any other outcome is nil.
func (s *Session) Poll() error {
	for {
		select {
		case chunk, ok := <-s.transport.Chunks():
			if !ok {
				return s.tick()
			}
			for _, line := range s.framer.Feed(chunk) {
				s.handleLine(line)
			}
			continue
		default:
		}
		break
	}

	s.injectMu.Lock()
	injected := s.injected
	s.injected = nil
	s.injectMu.Unlock()
	for _, line := range injected {
		s.handleLine(line)
	}

	return s.tick()
}

func (s *Session) handleLine(line string) {
	s.transport.Publish(line)

	msg, err := protocol.Decode(line)
	if err != nil {
		s.log.Errorf("[link] decode error: %v | %q", err, line)
		return
	}

	// Any structurally valid line proves the host is alive, whatever its
	// kind.
	s.lastRecv = s.now()

	if s.recorder != nil {
		if err := s.recorder.RecordCommand(msg.Kind.String(), line); err != nil {
			s.log.Warnf("[link] failed to record command: %v", err)
		}
	}

	s.dispatcher.Dispatch(msg)
}

func (s *Session) tick() error {
	if s.restartFired {
		return nil
	}

	now := s.now()

	if now.Sub(s.lastAnnounce) >= AnnounceInterval {
		if err := s.transport.SendEvent(protocol.EncodeEvent("hello", "ping")); err != nil {
			s.log.Warnf("[link] beacon write failed: %v", err)
		}
		s.lastAnnounce = now
	}

	if now.Sub(s.lastRecv) >= SilenceTimeout {
		s.restartFired = true
		s.log.Errorf("[link] no traffic for %v, requesting restart", now.Sub(s.lastRecv))
		return ErrRestartRequested
	}

	return nil
}

// RecentActivity reports whether the host has been heard from within
// RecentActivityWindow.
func (s *Session) RecentActivity() bool {
	return s.now().Sub(s.lastRecv) < RecentActivityWindow
}
