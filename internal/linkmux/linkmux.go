// Package linkmux owns the transport side of the host link: it pumps raw
// bytes off a serial port for the control loop to frame and decode, writes
// device events as single flushed lines, and fans completed inbound lines out
// to diagnostic subscribers (the SSE tail on the debug listener).
package linkmux

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var ErrWriteFailed = fmt.Errorf("failed to write to serial port")

// readChunkBytes is the per-read buffer size for the port pump.
const readChunkBytes = 256

// LinkMux multiplexes a single transport port: one consumer of raw inbound
// chunks (the session), any number of line subscribers for diagnostics, and
// serialized writes.
type LinkMux[T SerialPorter] struct {
	port   T
	chunks chan []byte

	subscribers  map[string]chan string
	subscriberMu sync.Mutex

	writeMu sync.Mutex

	closing   bool
	closingMu sync.Mutex
}

// New creates a LinkMux backed by the given port.
func New[T SerialPorter](port T) *LinkMux[T] {
	return &LinkMux[T]{
		port:        port,
		chunks:      make(chan []byte, 64),
		subscribers: make(map[string]chan string),
	}
}

// Chunks returns the channel of raw inbound byte chunks. The control loop
// drains it without blocking; chunks arriving while the consumer is busy are
// buffered by the channel.
func (m *LinkMux[T]) Chunks() <-chan []byte {
	return m.chunks
}

// Monitor reads from the port and forwards raw chunks until the context is
// cancelled or the port fails. It returns nil on clean shutdown.
func (m *LinkMux[T]) Monitor(ctx context.Context) error {
	defer close(m.chunks)
	for {
		buf := make([]byte, readChunkBytes)
		n, err := m.port.Read(buf)
		if err != nil {
			m.closingMu.Lock()
			closing := m.closing
			m.closingMu.Unlock()
			if closing || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("port read: %w", err)
		}
		if n == 0 {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		select {
		case m.chunks <- buf[:n]:
		case <-ctx.Done():
			return nil
		}
	}
}

// Subscribe creates a new channel receiving every completed inbound line
// published by the control loop. The returned ID identifies the channel for
// Unsubscribe.
func (m *LinkMux[T]) Subscribe() (string, chan string) {
	id := uuid.NewString()
	ch := make(chan string, 16)
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (m *LinkMux[T]) Unsubscribe(id string) {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// Publish fans a completed inbound line out to all subscribers. Slow
// subscribers are skipped rather than blocking the control loop.
func (m *LinkMux[T]) Publish(line string) {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- line:
		default:
		}
	}
}

// SendEvent writes a device event as one newline-terminated line in a single
// write, so the host never observes a partial line.
func (m *LinkMux[T]) SendEvent(line []byte) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	n, err := m.port.Write(line)
	if err != nil {
		return err
	}
	if n != len(line) {
		return ErrWriteFailed
	}
	return nil
}

// Write implements io.Writer for plain byte output, used by the diagnostic
// mirror. Writes are serialized with SendEvent so mirrored log lines cannot
// interleave with protocol events.
func (m *LinkMux[T]) Write(p []byte) (int, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.port.Write(p)
}

// Close closes all subscriber channels and the underlying port.
func (m *LinkMux[T]) Close() error {
	m.closingMu.Lock()
	m.closing = true
	m.closingMu.Unlock()

	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
	return m.port.Close()
}
