package linkmux

import (
	"bytes"
	"errors"
	"sync"
)

// TestablePort implements SerialPorter with scripted reads and captured
// writes. Reads block until data is added or the port is closed, which is how
// a real serial port behaves with no traffic.
type TestablePort struct {
	mu       sync.Mutex
	readable bytes.Buffer
	written  bytes.Buffer
	closed   bool

	// WriteError is returned by the next Write call if set.
	WriteError error

	// ShortWrite makes Write report one byte fewer than requested,
	// exercising the ErrWriteFailed path.
	ShortWrite bool

	readCond *sync.Cond
}

// NewTestablePort returns an empty TestablePort.
func NewTestablePort() *TestablePort {
	p := &TestablePort{}
	p.readCond = sync.NewCond(&p.mu)
	return p
}

// Read returns buffered data, blocking until some arrives or the port closes.
func (p *TestablePort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.closed && p.readable.Len() == 0 {
		p.readCond.Wait()
	}
	if p.closed {
		return 0, errors.New("serial port closed")
	}
	return p.readable.Read(buf)
}

// Write captures outbound data.
func (p *TestablePort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("serial port closed")
	}
	if p.WriteError != nil {
		err := p.WriteError
		p.WriteError = nil
		return 0, err
	}
	n, err := p.written.Write(data)
	if p.ShortWrite && n > 0 {
		return n - 1, err
	}
	return n, err
}

// Close marks the port closed and wakes blocked readers.
func (p *TestablePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.readCond.Broadcast()
	return nil
}

// AddReadData queues data for subsequent Read calls.
func (p *TestablePort) AddReadData(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readable.Write(data)
	p.readCond.Broadcast()
}

// WrittenData returns everything written to the port so far.
func (p *TestablePort) WrittenData() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}
