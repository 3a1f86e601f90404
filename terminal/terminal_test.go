package terminal_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"i4.energy/across/atkit/terminal"
)

// newTerminal builds a fast-polling terminal whose events land in the
// returned channel.
func newTerminal(t *testing.T, opts ...func(*terminal.ConfigBuilder)) (*terminal.Terminal, chan terminal.Event) {
	t.Helper()
	events := make(chan terminal.Event, 256)
	b := terminal.NewConfigBuilder().
		WithPollInterval(5 * time.Millisecond).
		WithHandler(func(ev terminal.Event) { events <- ev })
	for _, opt := range opts {
		opt(b)
	}
	config, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}
	return terminal.New(config), events
}

func waitFor(t *testing.T, events <-chan terminal.Event, kind terminal.EventKind) terminal.Event {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s event within timeout", kind)
			return terminal.Event{}
		}
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestTerminalConnect(t *testing.T) {
	t.Run("ErrNoDialer when no dialer provided", func(t *testing.T) {
		term, _ := newTerminal(t)
		if err := term.Connect(context.Background(), nil); !errors.Is(err, terminal.ErrNoDialer) {
			t.Errorf("expected ErrNoDialer, got: %v", err)
		}
	})

	t.Run("Dialer error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDialer := terminal.NewMockDialer(ctrl)
		dialErr := errors.New("open /dev/ttyUSB9: no such file or directory")
		mockDialer.EXPECT().Dial(gomock.Any()).Return(nil, dialErr)

		term, _ := newTerminal(t)
		err := term.Connect(context.Background(), mockDialer)
		if !errors.Is(err, dialErr) {
			t.Errorf("expected dial error, got: %v", err)
		}
		if term.Connected() {
			t.Error("terminal should not be connected after dial failure")
		}
	})

	t.Run("ErrNotInitialized on nil transport", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDialer := terminal.NewMockDialer(ctrl)
		mockDialer.EXPECT().Dial(gomock.Any()).Return(nil, nil)

		term, _ := newTerminal(t)
		if err := term.Connect(context.Background(), mockDialer); !errors.Is(err, terminal.ErrNotInitialized) {
			t.Errorf("expected ErrNotInitialized, got: %v", err)
		}
	})

	t.Run("ErrAlreadyConnected on second connect", func(t *testing.T) {
		term, _ := newTerminal(t)
		tr := terminal.NewTestTransport()
		if err := term.Connect(context.Background(), tr); err != nil {
			t.Fatalf("unexpected error from Connect(): %v", err)
		}
		defer term.Disconnect()

		if err := term.Connect(context.Background(), terminal.NewTestTransport()); !errors.Is(err, terminal.ErrAlreadyConnected) {
			t.Errorf("expected ErrAlreadyConnected, got: %v", err)
		}
	})
}

func TestTerminalDisconnect(t *testing.T) {
	t.Run("Closes the transport and allows reconnecting", func(t *testing.T) {
		term, _ := newTerminal(t)
		tr := terminal.NewTestTransport()
		if err := term.Connect(context.Background(), tr); err != nil {
			t.Fatalf("unexpected error from Connect(): %v", err)
		}

		if err := term.Disconnect(); err != nil {
			t.Errorf("unexpected error from Disconnect(): %v", err)
		}
		if !tr.Closed() {
			t.Error("transport should be closed after Disconnect()")
		}
		if term.Connected() {
			t.Error("terminal should not be connected after Disconnect()")
		}

		if err := term.Disconnect(); !errors.Is(err, terminal.ErrNotConnected) {
			t.Errorf("expected ErrNotConnected on second Disconnect(), got: %v", err)
		}

		if err := term.Connect(context.Background(), terminal.NewTestTransport()); err != nil {
			t.Errorf("unexpected error reconnecting: %v", err)
		}
		term.Disconnect()
	})

	t.Run("Returns transport error on close failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDialer := terminal.NewMockDialer(ctrl)
		mockTransport := terminal.NewMockTransport(ctrl)

		closed := make(chan struct{})
		closeErr := errors.New("transport close failed")
		mockDialer.EXPECT().Dial(gomock.Any()).Return(mockTransport, nil)
		mockTransport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
			<-closed
			return 0, io.EOF
		}).AnyTimes()
		mockTransport.EXPECT().Close().DoAndReturn(func() error {
			close(closed)
			return closeErr
		})

		term, _ := newTerminal(t)
		if err := term.Connect(context.Background(), mockDialer); err != nil {
			t.Fatalf("unexpected error from Connect(): %v", err)
		}

		if err := term.Disconnect(); !errors.Is(err, closeErr) {
			t.Errorf("expected close error, got: %v", err)
		}
	})
}

func TestTerminalSend(t *testing.T) {
	t.Run("Writes the command terminated by CRLF", func(t *testing.T) {
		term, events := newTerminal(t)
		tr := terminal.NewTestTransport()
		if err := term.Connect(context.Background(), tr); err != nil {
			t.Fatalf("unexpected error from Connect(): %v", err)
		}
		defer term.Disconnect()

		if err := term.Send("  AT+CGSN \t"); err != nil {
			t.Fatalf("unexpected error from Send(): %v", err)
		}
		if got := tr.Written(); got != "AT+CGSN\r\n" {
			t.Errorf("expected %q on the wire, got %q", "AT+CGSN\r\n", got)
		}

		ev := waitFor(t, events, terminal.EventCommand)
		if ev.Command != "AT+CGSN" || ev.Data != "> " {
			t.Errorf("unexpected command event %+v", ev)
		}
		if term.Log() != "> " {
			t.Errorf("expected marker in log, got %q", term.Log())
		}
	})

	t.Run("Empty command is ignored", func(t *testing.T) {
		term, _ := newTerminal(t)
		tr := terminal.NewTestTransport()
		if err := term.Connect(context.Background(), tr); err != nil {
			t.Fatalf("unexpected error from Connect(): %v", err)
		}
		defer term.Disconnect()

		if err := term.Send("   "); err != nil {
			t.Errorf("unexpected error from Send(): %v", err)
		}
		if tr.Written() != "" {
			t.Errorf("nothing should be written, got %q", tr.Written())
		}
		if term.Log() != "" {
			t.Errorf("log should stay empty, got %q", term.Log())
		}
	})

	t.Run("ErrNotConnected while disconnected", func(t *testing.T) {
		term, _ := newTerminal(t)
		if err := term.Send("AT"); !errors.Is(err, terminal.ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got: %v", err)
		}
	})

	t.Run("Write failure keeps the link open", func(t *testing.T) {
		term, _ := newTerminal(t)
		tr := terminal.NewTestTransport()
		if err := term.Connect(context.Background(), tr); err != nil {
			t.Fatalf("unexpected error from Connect(): %v", err)
		}
		defer term.Disconnect()

		tr.FailWrite(errors.New("input/output error"))
		err := term.Send("AT+CIMI")
		if !errors.Is(err, terminal.ErrCommunication) {
			t.Errorf("expected ErrCommunication, got: %v", err)
		}
		if !term.Connected() {
			t.Error("a write failure must not disconnect")
		}
		if term.Log() != "> " {
			t.Errorf("marker should be logged before the write, got %q", term.Log())
		}
	})
}

func TestTerminalBlockedWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockTransport := terminal.NewMockTransport(ctrl)

	closed := make(chan struct{})
	writing := make(chan struct{})
	release := make(chan struct{})
	mockTransport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
		<-closed
		return 0, io.EOF
	}).AnyTimes()
	mockTransport.EXPECT().Write([]byte("ATD12345;\r\n")).DoAndReturn(func(p []byte) (int, error) {
		close(writing)
		<-release
		return len(p), nil
	})
	mockTransport.EXPECT().Close().DoAndReturn(func() error {
		close(closed)
		return nil
	})

	term, _ := newTerminal(t)
	if err := term.Connect(context.Background(), staticDialer{transport: mockTransport}); err != nil {
		t.Fatalf("unexpected error from Connect(): %v", err)
	}

	sent := make(chan error, 1)
	go func() { sent <- term.Send("ATD12345;") }()
	<-writing

	logged := make(chan string, 1)
	go func() {
		log := term.Log()
		term.Clear()
		logged <- log
	}()
	select {
	case log := <-logged:
		if log != "> " {
			t.Errorf("expected the marker in the log, got %q", log)
		}
	case <-time.After(time.Second):
		t.Fatal("Log() blocked behind a pending write")
	}

	close(release)
	if err := <-sent; err != nil {
		t.Errorf("unexpected error from Send(): %v", err)
	}
	if err := term.Disconnect(); err != nil {
		t.Errorf("unexpected error from Disconnect(): %v", err)
	}
}

// staticDialer hands out the same transport on every Dial.
type staticDialer struct {
	transport terminal.Transport
}

func (d staticDialer) Dial(context.Context) (terminal.Transport, error) {
	return d.transport, nil
}

func TestTerminalPoll(t *testing.T) {
	t.Run("Inbound data is normalized into the log", func(t *testing.T) {
		term, events := newTerminal(t)
		tr := terminal.NewTestTransport()
		if err := term.Connect(context.Background(), tr); err != nil {
			t.Fatalf("unexpected error from Connect(): %v", err)
		}
		defer term.Disconnect()

		if err := term.Send("AT+CGSN"); err != nil {
			t.Fatalf("unexpected error from Send(): %v", err)
		}
		tr.SendData("AT+CGSN\r\n490154203237518\r\n\r\nOK\r\n")

		want := "> AT+CGSN\n490154203237518\n\nOK\n"
		eventually(t, func() bool { return term.Log() == want }, "log never matched the response")

		ev := waitFor(t, events, terminal.EventData)
		if !strings.HasPrefix(ev.Data, "AT+CGSN\n") {
			t.Errorf("unexpected data event %q", ev.Data)
		}
	})

	t.Run("Lone carriage returns are dropped", func(t *testing.T) {
		term, _ := newTerminal(t)
		tr := terminal.NewTestTransport()
		if err := term.Connect(context.Background(), tr); err != nil {
			t.Fatalf("unexpected error from Connect(): %v", err)
		}
		defer term.Disconnect()

		tr.SendData("a\r\nb\rc")
		eventually(t, func() bool { return term.Log() == "a\nbc" }, "log never matched")
	})

	t.Run("Trailing Latin-1 byte reaches the log", func(t *testing.T) {
		term, _ := newTerminal(t)
		tr := terminal.NewTestTransport()
		if err := term.Connect(context.Background(), tr); err != nil {
			t.Fatalf("unexpected error from Connect(): %v", err)
		}
		defer term.Disconnect()

		tr.SendData("Caf\xe9")
		eventually(t, func() bool { return term.Log() == "Café" }, "trailing byte never reached the log")
	})

	t.Run("Held back bytes are kept when the link fails", func(t *testing.T) {
		term, events := newTerminal(t, func(b *terminal.ConfigBuilder) { b.WithPollInterval(time.Hour) })
		tr := terminal.NewTestTransport()
		if err := term.Connect(context.Background(), tr); err != nil {
			t.Fatalf("unexpected error from Connect(): %v", err)
		}

		tr.SendData("Caf\xe9")
		tr.FailRead(errors.New("device unplugged"))

		waitFor(t, events, terminal.EventConnectionError)
		if term.Log() != "Café" {
			t.Errorf("expected %q, got %q", "Café", term.Log())
		}
	})

	t.Run("Read failure tears the connection down", func(t *testing.T) {
		term, events := newTerminal(t)
		tr := terminal.NewTestTransport()
		if err := term.Connect(context.Background(), tr); err != nil {
			t.Fatalf("unexpected error from Connect(): %v", err)
		}

		tr.SendData("RING\r\n")
		tr.FailRead(errors.New("device unplugged"))

		ev := waitFor(t, events, terminal.EventConnectionError)
		if !errors.Is(ev.Err, terminal.ErrCommunication) {
			t.Errorf("expected ErrCommunication, got: %v", ev.Err)
		}
		if term.Connected() {
			t.Error("terminal should be disconnected after a read failure")
		}
		if !tr.Closed() {
			t.Error("transport should be closed after a read failure")
		}
		if term.Log() != "RING\n" {
			t.Errorf("data read before the failure should be kept, got %q", term.Log())
		}
		if err := term.Disconnect(); !errors.Is(err, terminal.ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got: %v", err)
		}
	})

	t.Run("Log limit applies to inbound data", func(t *testing.T) {
		term, _ := newTerminal(t, func(b *terminal.ConfigBuilder) { b.WithLogLimit(2) })
		tr := terminal.NewTestTransport()
		if err := term.Connect(context.Background(), tr); err != nil {
			t.Fatalf("unexpected error from Connect(): %v", err)
		}
		defer term.Disconnect()

		tr.SendData("RING\r\nRING\r\nNO CARRIER\r\n")
		eventually(t, func() bool { return term.Log() == "RING\nNO CARRIER\n" }, "log was not trimmed")
	})

	t.Run("Clear empties the log", func(t *testing.T) {
		term, _ := newTerminal(t)
		tr := terminal.NewTestTransport()
		if err := term.Connect(context.Background(), tr); err != nil {
			t.Fatalf("unexpected error from Connect(): %v", err)
		}
		defer term.Disconnect()

		tr.SendData("OK\r\n")
		eventually(t, func() bool { return term.Log() == "OK\n" }, "data never arrived")
		term.Clear()
		if term.Log() != "" {
			t.Errorf("expected empty log, got %q", term.Log())
		}
	})
}
