// Package bridge exposes a terminal over MQTT.
//
// Commands published on <prefix>/command are written to the device. Device
// output is published on <prefix>/data, refused commands on <prefix>/error
// and the link state, retained, on <prefix>/status.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"i4.energy/across/atkit/terminal"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Sender writes a command to the device.
type Sender interface {
	Send(command string) error
}

// Client is the part of an MQTT client the bridge uses. mqtt.Client
// satisfies it.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

// Options describe how to reach the broker.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Timeout bounds connecting and every publish, default 10s.
	Timeout time.Duration
}

// Bridge forwards MQTT commands to a Sender and terminal events to MQTT.
type Bridge struct {
	prefix  string
	qos     byte
	sender  Sender
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	client Client
	// linkDown is set once the serial link failed
	linkDown bool
}

// New creates a Bridge publishing below prefix. It does nothing until a
// client is attached.
func New(sender Sender, prefix string, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bridge{
		prefix:  strings.TrimSuffix(prefix, "/"),
		qos:     1,
		sender:  sender,
		logger:  logger,
		timeout: 10 * time.Second,
	}
}

// Topic returns the full topic name for suffix.
func (b *Bridge) Topic(suffix string) string {
	return b.prefix + "/" + suffix
}

// Connect dials the broker and attaches the resulting client. The command
// subscription is renewed on every reconnect.
func (b *Bridge) Connect(ctx context.Context, o Options) (mqtt.Client, error) {
	if o.Broker == "" {
		return nil, errors.New("bridge: broker address is required")
	}
	if o.Timeout > 0 {
		b.timeout = o.Timeout
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.Broker)
	opts.SetClientID(o.ClientID)
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(b.timeout)
	opts.SetWill(b.Topic("status"), StatusOffline, b.qos, true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		b.logger.Warn("MQTT connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		b.logger.Info("MQTT connected", "broker", o.Broker)
		if err := b.Attach(c); err != nil {
			b.logger.Error("MQTT subscribe failed", "error", err)
		}
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		client.Disconnect(250)
		return nil, ctx.Err()
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("bridge: connect to %s: %w", o.Broker, err)
	}
	return client, nil
}

// Attach starts using c: the command topic is subscribed and the current
// state of the serial link is published.
func (b *Bridge) Attach(c Client) error {
	b.mu.Lock()
	b.client = c
	status := StatusOnline
	if b.linkDown {
		status = StatusOffline
	}
	b.mu.Unlock()

	if err := b.wait(c.Subscribe(b.Topic("command"), b.qos, b.handleCommand)); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.Topic("command"), err)
	}
	b.publish(b.Topic("status"), status, true)
	return nil
}

// Detach publishes the offline status and drops the subscription.
func (b *Bridge) Detach() {
	b.mu.Lock()
	c := b.client
	b.client = nil
	b.mu.Unlock()
	if c == nil {
		return
	}

	if err := b.wait(c.Publish(b.Topic("status"), b.qos, true, StatusOffline)); err != nil {
		b.logger.Warn("MQTT publish failed", "topic", b.Topic("status"), "error", err)
	}
	if err := b.wait(c.Unsubscribe(b.Topic("command"))); err != nil {
		b.logger.Warn("MQTT unsubscribe failed", "error", err)
	}
}

// HandleEvent publishes a terminal event.
func (b *Bridge) HandleEvent(ev terminal.Event) {
	switch ev.Kind {
	case terminal.EventData:
		b.publish(b.Topic("data"), ev.Data, false)
	case terminal.EventConnectionError:
		b.mu.Lock()
		b.linkDown = true
		b.mu.Unlock()
		b.publish(b.Topic("status"), StatusOffline, true)
		b.publish(b.Topic("error"), ev.Err.Error(), false)
	}
}

func (b *Bridge) handleCommand(_ mqtt.Client, m mqtt.Message) {
	command := strings.TrimSpace(string(m.Payload()))
	if command == "" {
		return
	}
	b.logger.Debug("MQTT command", "command", command)
	if err := b.sender.Send(command); err != nil {
		b.logger.Warn("Command refused", "command", command, "error", err)
		b.publish(b.Topic("error"), err.Error(), false)
	}
}

func (b *Bridge) publish(topic, payload string, retained bool) {
	b.mu.Lock()
	c := b.client
	b.mu.Unlock()
	if c == nil {
		return
	}
	// events arrive on the terminal's poll goroutine, which must not wait
	// for the broker
	token := c.Publish(topic, b.qos, retained, payload)
	go func() {
		if err := b.wait(token); err != nil {
			b.logger.Warn("MQTT publish failed", "topic", topic, "error", err)
		}
	}()
}

func (b *Bridge) wait(t mqtt.Token) error {
	if !t.WaitTimeout(b.timeout) {
		return errors.New("timed out")
	}
	return t.Error()
}
