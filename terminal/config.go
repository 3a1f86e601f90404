package terminal

import (
	"errors"
	"log/slog"
	"time"
)

const (
	// DefaultPollInterval is how often buffered input is moved into the log.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultLogLimit is the number of lines kept in the rolling log.
	DefaultLogLimit = 5000
	// DefaultReadBufferSize is the size of a single read from the transport.
	DefaultReadBufferSize = 4096
)

// Config controls a Terminal. Build one with NewConfigBuilder; the zero
// value is usable and falls back to the defaults.
type Config struct {
	pollInterval   time.Duration
	logLimit       int
	readBufferSize int
	handler        func(Event)
	logger         *slog.Logger
}

func (c *Config) validate() error {
	if c.pollInterval < 0 {
		return errors.New("poll interval must not be negative")
	}
	if c.logLimit < 0 {
		return errors.New("log limit must not be negative")
	}
	if c.readBufferSize < 0 {
		return errors.New("read buffer size must not be negative")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.pollInterval == 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.logLimit == 0 {
		c.logLimit = DefaultLogLimit
	}
	if c.readBufferSize == 0 {
		c.readBufferSize = DefaultReadBufferSize
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
}

// ConfigBuilder assembles a Config step by step.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder returns a builder holding an empty Config.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithPollInterval sets how often the terminal drains inbound data.
func (b *ConfigBuilder) WithPollInterval(d time.Duration) *ConfigBuilder {
	b.config.pollInterval = d
	return b
}

// WithLogLimit caps the number of lines kept in the log.
func (b *ConfigBuilder) WithLogLimit(lines int) *ConfigBuilder {
	b.config.logLimit = lines
	return b
}

// WithReadBufferSize sets the size of the buffer handed to Transport.Read.
func (b *ConfigBuilder) WithReadBufferSize(size int) *ConfigBuilder {
	b.config.readBufferSize = size
	return b
}

// WithHandler registers the callback that receives terminal events. It is
// called from the poll goroutine and from Send, never with a lock held.
func (b *ConfigBuilder) WithHandler(h func(Event)) *ConfigBuilder {
	b.config.handler = h
	return b
}

// WithLogger sets the structured logger used for diagnostics.
func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.logger = l
	return b
}

// Build validates the collected settings and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	c := b.config
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	c.setDefaults()
	return c, nil
}
