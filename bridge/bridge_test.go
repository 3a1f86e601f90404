package bridge

import (
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"i4.energy/across/atkit/terminal"
)

type fakeToken struct {
	err error
}

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }
func (t fakeToken) Done() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type published struct {
	topic    string
	payload  string
	retained bool
}

type fakeClient struct {
	mu           sync.Mutex
	subscribeErr error
	handlers     map[string]mqtt.MessageHandler
	published    []published
	unsubscribed []string
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, published{topic: topic, payload: payload.(string), retained: retained})
	return fakeToken{}
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribeErr != nil {
		return fakeToken{err: c.subscribeErr}
	}
	if c.handlers == nil {
		c.handlers = make(map[string]mqtt.MessageHandler)
	}
	c.handlers[topic] = callback
	return fakeToken{}
}

func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribed = append(c.unsubscribed, topics...)
	return fakeToken{}
}

func (c *fakeClient) deliver(topic, payload string) {
	c.mu.Lock()
	handler := c.handlers[topic]
	c.mu.Unlock()
	if handler != nil {
		handler(nil, fakeMessage{topic: topic, payload: []byte(payload)})
	}
}

func (c *fakeClient) messages() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.published...)
}

type recorder struct {
	mu       sync.Mutex
	commands []string
	err      error
}

func (r *recorder) Send(command string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, command)
	return r.err
}

func TestBridgeAttach(t *testing.T) {
	t.Run("Subscribes and announces itself", func(t *testing.T) {
		client := &fakeClient{}
		b := New(&recorder{}, "lab/modem1/", nil)

		if err := b.Attach(client); err != nil {
			t.Fatalf("unexpected error from Attach(): %v", err)
		}
		if _, ok := client.handlers["lab/modem1/command"]; !ok {
			t.Errorf("command topic not subscribed: %v", client.handlers)
		}
		msgs := client.messages()
		if len(msgs) != 1 || msgs[0] != (published{topic: "lab/modem1/status", payload: StatusOnline, retained: true}) {
			t.Errorf("unexpected messages: %+v", msgs)
		}
	})

	t.Run("Subscribe failure", func(t *testing.T) {
		client := &fakeClient{subscribeErr: errors.New("not authorized")}
		b := New(&recorder{}, "atkit", nil)

		if err := b.Attach(client); err == nil {
			t.Error("expected an error from Attach()")
		}
	})

	t.Run("Detach goes offline", func(t *testing.T) {
		client := &fakeClient{}
		b := New(&recorder{}, "atkit", nil)
		if err := b.Attach(client); err != nil {
			t.Fatalf("unexpected error from Attach(): %v", err)
		}

		b.Detach()
		msgs := client.messages()
		last := msgs[len(msgs)-1]
		if last.topic != "atkit/status" || last.payload != StatusOffline || !last.retained {
			t.Errorf("unexpected last message: %+v", last)
		}
		if len(client.unsubscribed) != 1 || client.unsubscribed[0] != "atkit/command" {
			t.Errorf("unexpected unsubscribe: %v", client.unsubscribed)
		}

		b.HandleEvent(terminal.Event{Kind: terminal.EventData, Data: "OK\n"})
		if n := len(client.messages()); n != len(msgs) {
			t.Error("detached bridge should not publish")
		}
	})
}

func TestBridgeCommands(t *testing.T) {
	t.Run("Commands are forwarded", func(t *testing.T) {
		client := &fakeClient{}
		rec := &recorder{}
		b := New(rec, "atkit", nil)
		if err := b.Attach(client); err != nil {
			t.Fatalf("unexpected error from Attach(): %v", err)
		}

		client.deliver("atkit/command", " AT+CGSN \n")
		client.deliver("atkit/command", "   ")

		if len(rec.commands) != 1 || rec.commands[0] != "AT+CGSN" {
			t.Errorf("unexpected commands: %q", rec.commands)
		}
	})

	t.Run("Refused commands are reported", func(t *testing.T) {
		client := &fakeClient{}
		rec := &recorder{err: errors.New("no serial port connected")}
		b := New(rec, "atkit", nil)
		if err := b.Attach(client); err != nil {
			t.Fatalf("unexpected error from Attach(): %v", err)
		}

		client.deliver("atkit/command", "ATI")

		msgs := client.messages()
		last := msgs[len(msgs)-1]
		if last.topic != "atkit/error" || last.payload != "no serial port connected" {
			t.Errorf("unexpected last message: %+v", last)
		}
	})
}

func TestBridgeEvents(t *testing.T) {
	client := &fakeClient{}
	b := New(&recorder{}, "atkit", nil)
	if err := b.Attach(client); err != nil {
		t.Fatalf("unexpected error from Attach(): %v", err)
	}

	b.HandleEvent(terminal.Event{Kind: terminal.EventCommand, Data: "> ", Command: "ATI"})
	b.HandleEvent(terminal.Event{Kind: terminal.EventData, Data: "ATI\nOK\n"})
	b.HandleEvent(terminal.Event{Kind: terminal.EventConnectionError, Err: terminal.ErrCommunication})

	want := []published{
		{topic: "atkit/status", payload: StatusOnline, retained: true},
		{topic: "atkit/data", payload: "ATI\nOK\n"},
		{topic: "atkit/status", payload: StatusOffline, retained: true},
		{topic: "atkit/error", payload: terminal.ErrCommunication.Error()},
	}
	got := client.messages()
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestBridgeConnectRequiresBroker(t *testing.T) {
	b := New(&recorder{}, "atkit", nil)
	if _, err := b.Connect(t.Context(), Options{}); err == nil {
		t.Error("expected an error without a broker")
	}
}

func TestBridgeReattachAfterLinkFailure(t *testing.T) {
	client := &fakeClient{}
	b := New(&recorder{}, "atkit", nil)
	if err := b.Attach(client); err != nil {
		t.Fatalf("unexpected error from Attach(): %v", err)
	}

	b.HandleEvent(terminal.Event{Kind: terminal.EventConnectionError, Err: terminal.ErrCommunication})
	if err := b.Attach(client); err != nil {
		t.Fatalf("unexpected error from second Attach(): %v", err)
	}

	var status string
	for _, m := range client.messages() {
		if m.topic == "atkit/status" && m.retained {
			status = m.payload
		}
	}
	if status != StatusOffline {
		t.Errorf("expected retained status %q after reconnect, got %q", StatusOffline, status)
	}
}
