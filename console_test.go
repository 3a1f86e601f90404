package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"i4.energy/across/atkit/session"
	"i4.energy/across/atkit/settings"
	"i4.energy/across/atkit/terminal"
)

// syncBuffer is a bytes.Buffer safe for the console's concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type consoleFixture struct {
	device *fakeDevice
	sess   *session.Session
	in     *io.PipeWriter
	out    *syncBuffer
	done   chan error
}

func startConsole(t *testing.T) *consoleFixture {
	t.Helper()
	f := &consoleFixture{device: &fakeDevice{}, out: &syncBuffer{}, done: make(chan error, 1)}

	var c *console
	var ready sync.WaitGroup
	ready.Add(1)
	sess, err := session.New(session.Config{
		Store:        settings.NewStore(filepath.Join(t.TempDir(), "settings.yaml")),
		PollInterval: 5 * time.Millisecond,
		Dialer:       f.device.dialer,
		OnEvent: func(ev terminal.Event) {
			ready.Wait()
			c.show(ev)
		},
	})
	if err != nil {
		t.Fatalf("unexpected error from session.New(): %v", err)
	}
	f.sess = sess

	pr, pw := io.Pipe()
	f.in = pw
	c = newConsole(sess, terminal.DefaultParams("/dev/ttyUSB0"), pr, f.out)
	ready.Done()

	go func() { f.done <- c.run(context.Background()) }()
	eventually(t, "the console to connect", sess.Connected)

	t.Cleanup(func() {
		pw.Close()
		sess.Close()
	})
	return f
}

func (f *consoleFixture) send(t *testing.T, line string) {
	t.Helper()
	if _, err := io.WriteString(f.in, line+"\n"); err != nil {
		t.Fatalf("unexpected error writing input: %v", err)
	}
}

func TestConsole(t *testing.T) {
	t.Run("Lines are sent and responses printed", func(t *testing.T) {
		f := startConsole(t)

		f.send(t, "  AT+CGMI  ")
		eventually(t, "the command to be written", func() bool {
			return f.device.transport().Written() == "AT+CGMI\r\n"
		})

		f.device.transport().SendData("AT+CGMI\r\nACME\r\n\r\nOK\r\n")
		eventually(t, "the response to be printed", func() bool {
			return strings.Contains(f.out.String(), "> AT+CGMI\nACME\n\nOK\n")
		})
	})

	t.Run("Panel shortcuts", func(t *testing.T) {
		f := startConsole(t)

		f.send(t, "/info imsi")
		f.send(t, "/dial 12345")
		f.send(t, "/cfun 4")
		eventually(t, "the panel commands", func() bool {
			return f.device.transport().Written() == "AT+CIMI\r\nATD12345;\r\nAT+CFUN=4\r\n"
		})
	})

	t.Run("Validation messages are printed", func(t *testing.T) {
		f := startConsole(t)

		f.send(t, "/dtmf 1,x")
		eventually(t, "the validation message", func() bool {
			return strings.Contains(f.out.String(), `Character "x" is invalid.`)
		})
	})

	t.Run("Disconnect and reconnect", func(t *testing.T) {
		f := startConsole(t)

		f.send(t, "/disconnect")
		eventually(t, "the session to disconnect", func() bool { return !f.sess.Connected() })

		f.send(t, "ATI")
		eventually(t, "the disconnected notice", func() bool {
			return strings.Contains(f.out.String(), "Not connected.")
		})

		f.send(t, "/connect")
		eventually(t, "the session to reconnect", f.sess.Connected)
		if n := f.device.connections(); n != 2 {
			t.Errorf("expected a second connection, got %d", n)
		}
	})

	t.Run("Connection errors are announced", func(t *testing.T) {
		f := startConsole(t)

		f.device.transport().FailRead(errors.New("device unplugged"))
		eventually(t, "the error notice", func() bool {
			return strings.Contains(f.out.String(), "Serial Port Error:")
		})
		if f.sess.Connected() {
			t.Error("session should be disconnected")
		}
	})

	t.Run("Quit ends the console", func(t *testing.T) {
		f := startConsole(t)

		f.send(t, "/quit")
		select {
		case err := <-f.done:
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("console did not stop")
		}
		if f.sess.Connected() {
			t.Error("session should be closed after /quit")
		}
	})

	t.Run("End of input ends the console", func(t *testing.T) {
		f := startConsole(t)

		f.in.Close()
		select {
		case err := <-f.done:
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("console did not stop")
		}
	})

	t.Run("Font is remembered", func(t *testing.T) {
		f := startConsole(t)

		f.send(t, "/font Courier 10")
		eventually(t, "the font to be stored", func() bool {
			font, ok := f.sess.Font()
			return ok && font == settings.Font{Family: "Courier", Size: 10}
		})
	})
}
