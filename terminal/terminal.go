package terminal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"i4.energy/across/atkit/at"
)

// Terminal owns the link to a device. It writes commands terminated by CRLF,
// polls for inbound bytes on a fixed interval and keeps everything it sees in
// a rolling text log.
//
// A Terminal can be connected and disconnected any number of times. All
// methods are safe for concurrent use.
type Terminal struct {
	config Config

	// writeMu serialises writes so t.mu is free while one blocks
	writeMu sync.Mutex

	mu sync.Mutex
	// transport is the open link, nil while disconnected
	transport Transport
	// log holds the text shown to the user
	log *Log
	// cancel stops the poll loop of the current connection
	cancel context.CancelFunc
	// done is closed when the poll loop of the current connection returns
	done chan struct{}
}

// New creates a disconnected Terminal.
func New(config Config) *Terminal {
	config.setDefaults()
	return &Terminal{
		config: config,
		log:    NewLog(config.logLimit),
	}
}

// Connect opens a Transport through the dialer and starts polling it.
//
// The context only bounds dialing; the connection stays open until
// Disconnect is called or a read fails.
func (t *Terminal) Connect(ctx context.Context, dialer Dialer) error {
	if dialer == nil {
		return ErrNoDialer
	}
	if t.Connected() {
		return ErrAlreadyConnected
	}

	transport, err := dialer.Dial(ctx)
	if err != nil {
		return err
	}
	if transport == nil {
		return ErrNotInitialized
	}

	t.mu.Lock()
	if t.transport != nil {
		t.mu.Unlock()
		transport.Close()
		return ErrAlreadyConnected
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	t.transport = transport
	t.cancel = cancel
	t.done = done
	t.mu.Unlock()

	t.config.logger.Info("Connected", "poll_interval", t.config.pollInterval)
	go t.poll(loopCtx, transport, done)
	return nil
}

// Connected reports whether a link is open.
func (t *Terminal) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transport != nil
}

// Disconnect stops polling and closes the link. It waits for the poll loop
// to return.
func (t *Terminal) Disconnect() error {
	t.mu.Lock()
	transport, cancel, done := t.transport, t.cancel, t.done
	if transport == nil {
		t.mu.Unlock()
		return ErrNotConnected
	}
	t.transport = nil
	t.cancel = nil
	t.mu.Unlock()

	cancel()
	err := transport.Close()
	<-done

	t.config.logger.Info("Disconnected")
	if err != nil {
		return fmt.Errorf("close port: %w", err)
	}
	return nil
}

// Send writes a command to the device. Leading and trailing white space is
// removed and empty commands are ignored. The command marker is added to the
// log before the write is attempted.
func (t *Terminal) Send(command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.Lock()
	transport := t.transport
	if transport == nil {
		t.mu.Unlock()
		return ErrNotConnected
	}
	marker := t.log.Mark()
	t.mu.Unlock()

	_, err := transport.Write(at.Frame(command))

	t.emit(Event{Kind: EventCommand, Data: marker, Command: command})

	if err != nil {
		t.config.logger.Error("Write failed", "command", command, "error", err)
		return fmt.Errorf("%w: write command %q: %w", ErrCommunication, command, err)
	}
	t.config.logger.Debug("Command sent", "command", command)
	return nil
}

// Log returns the current contents of the log.
func (t *Terminal) Log() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.log.String()
}

// Clear empties the log.
func (t *Terminal) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.log.Clear()
}

// poll is the per-connection loop. A reader goroutine feeds whatever the
// transport delivers into a channel; on every tick everything waiting there
// is decoded and appended to the log. It is the ONLY place that reads from
// the transport.
func (t *Terminal) poll(ctx context.Context, transport Transport, done chan struct{}) {
	defer close(done)

	chunks := make(chan []byte, 64)
	readErrs := make(chan error, 1)

	go func() {
		buf := make([]byte, t.config.readBufferSize)
		for {
			n, err := transport.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				select {
				case chunks <- data:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				select {
				case readErrs <- err:
				case <-ctx.Done():
				}
				return
			}
		}
	}()

	var decoder at.Decoder
	ticker := time.NewTicker(t.config.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			t.drain(chunks, &decoder, false)

		case err := <-readErrs:
			t.drain(chunks, &decoder, true)
			t.fail(ctx, transport, err)
			return
		}
	}
}

// drain moves every chunk waiting in the channel into the log. Bytes the
// decoder holds back are flushed when a tick brings nothing new or when
// flush is set.
func (t *Terminal) drain(chunks <-chan []byte, decoder *at.Decoder, flush bool) {
	var pending []byte
	for waiting := true; waiting; {
		select {
		case chunk := <-chunks:
			pending = append(pending, chunk...)
		default:
			waiting = false
		}
	}
	var raw string
	if len(pending) > 0 {
		raw = decoder.Decode(pending)
	}
	if flush || len(pending) == 0 {
		raw += decoder.Flush()
	}

	text := at.Normalize(raw)
	if text == "" {
		return
	}

	t.mu.Lock()
	t.log.Append(text)
	t.mu.Unlock()

	t.emit(Event{Kind: EventData, Data: text})
}

// fail tears the connection down after a read error and reports it. It does
// nothing if Disconnect already took the transport away.
func (t *Terminal) fail(ctx context.Context, transport Transport, err error) {
	if ctx.Err() != nil {
		return
	}

	t.mu.Lock()
	if t.transport != transport {
		t.mu.Unlock()
		return
	}
	t.cancel()
	t.transport = nil
	t.cancel = nil
	t.mu.Unlock()

	if closeErr := transport.Close(); closeErr != nil {
		t.config.logger.Warn("Close after read failure", "error", closeErr)
	}

	commErr := fmt.Errorf("%w: read: %w", ErrCommunication, err)
	t.config.logger.Error("Connection lost", "error", err)
	t.emit(Event{Kind: EventConnectionError, Err: commErr})
}

func (t *Terminal) emit(ev Event) {
	if t.config.handler == nil {
		return
	}
	ev.Time = time.Now()
	t.config.handler(ev)
}
