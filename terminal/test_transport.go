package terminal

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// TestTransport is a test helper that simulates a blocking transport using channels.
// This is needed because the poll loop's reader goroutine continuously reads from the
// transport, and reads must block until data is available (like a real serial port would).
type TestTransport struct {
	mu       sync.Mutex
	readChan chan readResult
	written  strings.Builder
	writeErr error
	closed   bool
}

type readResult struct {
	data []byte
	err  error
}

// NewTestTransport creates a new test transport for testing.
// Exported for use in tests of other packages.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		readChan: make(chan readResult, 10),
	}
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, errors.New("transport closed")
	}
	if t.writeErr != nil {
		return 0, t.writeErr
	}
	t.written.Write(p)
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (n int, err error) {
	res, ok := <-t.readChan
	if !ok {
		return 0, io.EOF
	}
	return copy(p, res.data), res.err
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.readChan)
	return nil
}

// SendData queues data to be read by the transport.
// This simulates receiving data from the device.
func (t *TestTransport) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.readChan <- readResult{data: []byte(data)}
	}
}

// FailRead makes the next read return err, as an unplugged device would.
func (t *TestTransport) FailRead(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.readChan <- readResult{err: err}
	}
}

// FailWrite makes every following write return err.
func (t *TestTransport) FailWrite(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeErr = err
}

// Written returns everything written to the transport so far.
func (t *TestTransport) Written() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.written.String()
}

// Closed reports whether Close has been called.
func (t *TestTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Dial lets a TestTransport act as its own Dialer.
func (t *TestTransport) Dial(ctx context.Context) (Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t, nil
}
