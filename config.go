package main

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"i4.energy/across/atkit/terminal"
)

// Config holds the application configuration
type Config struct {
	// SerialPort is the path to the device's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string
	// BaudRate is the baud rate for serial communication (e.g. 115200)
	BaudRate int
	// DataBits is the number of data bits per character (5 to 8)
	DataBits int
	// StopBits is "1", "1.5" or "2"
	StopBits string
	// Parity is none, even, odd, mark or space
	Parity string
	// RTSCTS enables hardware flow control
	RTSCTS bool
	// XONXOFF enables software flow control
	XONXOFF bool
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string
	// SettingsPath is the YAML file holding remembered preferences
	SettingsPath string
	// BindAddress is the address the HTTP front end listens on
	BindAddress string
	// Wait is how long one-shot commands collect the response
	Wait time.Duration
	// DryRun prints commands instead of sending them
	DryRun bool

	// MQTTBroker is the broker the bridge connects to (e.g. "tcp://localhost:1883")
	MQTTBroker string
	// MQTTTopic is the topic prefix of the bridge
	MQTTTopic string
	// MQTTClientID identifies the bridge to the broker
	MQTTClientID string
	// MQTTUsername and MQTTPassword authenticate the bridge, if set
	MQTTUsername string
	MQTTPassword string
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		defaults := terminal.DefaultParams("/dev/ttyUSB0")
		c.SerialPort = defaults.Port
		c.BaudRate = defaults.BaudRate
		c.DataBits = defaults.DataBits
		c.StopBits = string(defaults.StopBits)
		c.Parity = string(defaults.Parity)
		c.LogLevel = "warn"
		c.BindAddress = "127.0.0.1:8080"
		c.Wait = 2 * time.Second
		c.MQTTTopic = "atkit"
		return nil
	}
}

// WithLastConnection applies the serial settings remembered from the
// previous run, if there are any
func WithLastConnection(p *terminal.ConnectionParams) ConfigOption {
	return func(c *Config) error {
		if p == nil {
			return nil
		}
		c.SerialPort = p.Port
		c.BaudRate = p.BaudRate
		c.DataBits = p.DataBits
		c.StopBits = string(p.StopBits)
		c.Parity = string(p.Parity)
		c.RTSCTS = p.RTSCTS
		c.XONXOFF = p.XONXOFF
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if bits := os.Getenv("DATA_BITS"); bits != "" {
			if b, err := strconv.Atoi(bits); err == nil {
				c.DataBits = b
			}
		}

		if stop := os.Getenv("STOP_BITS"); stop != "" {
			c.StopBits = stop
		}

		if parity := os.Getenv("PARITY"); parity != "" {
			c.Parity = parity
		}

		if v := os.Getenv("RTSCTS"); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.RTSCTS = b
			}
		}

		if v := os.Getenv("XONXOFF"); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.XONXOFF = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if path := os.Getenv("ATKIT_CONFIG"); path != "" {
			c.SettingsPath = path
		}

		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if broker := os.Getenv("MQTT_BROKER"); broker != "" {
			c.MQTTBroker = broker
		}

		if topic := os.Getenv("MQTT_TOPIC"); topic != "" {
			c.MQTTTopic = topic
		}

		if id := os.Getenv("MQTT_CLIENT_ID"); id != "" {
			c.MQTTClientID = id
		}

		if user := os.Getenv("MQTT_USERNAME"); user != "" {
			c.MQTTUsername = user
			c.MQTTPassword = os.Getenv("MQTT_PASSWORD")
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags that were set
func WithFlags(fSet *pflag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *pflag.Flag) {
			switch f.Name {
			case "port":
				c.SerialPort = f.Value.String()
			case "baud":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "data-bits":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.DataBits = b
				}
			case "stop-bits":
				c.StopBits = f.Value.String()
			case "parity":
				c.Parity = f.Value.String()
			case "rtscts":
				c.RTSCTS = f.Value.String() == "true"
			case "xonxoff":
				c.XONXOFF = f.Value.String() == "true"
			case "log-level":
				c.LogLevel = f.Value.String()
			case "config":
				c.SettingsPath = f.Value.String()
			case "addr":
				c.BindAddress = f.Value.String()
			case "wait":
				if d, err := time.ParseDuration(f.Value.String()); err == nil {
					c.Wait = d
				}
			case "dry-run":
				c.DryRun = f.Value.String() == "true"
			case "broker":
				c.MQTTBroker = f.Value.String()
			case "topic":
				c.MQTTTopic = f.Value.String()
			case "client-id":
				c.MQTTClientID = f.Value.String()
			case "mqtt-username":
				c.MQTTUsername = f.Value.String()
			case "mqtt-password":
				c.MQTTPassword = f.Value.String()
			}
		})
		return nil
	}
}

// ConnectionParams converts the serial settings for the terminal
func (c *Config) ConnectionParams() (terminal.ConnectionParams, error) {
	parity, err := terminal.ParseParity(c.Parity)
	if err != nil {
		return terminal.ConnectionParams{}, err
	}
	stopBits, err := terminal.ParseStopBits(c.StopBits)
	if err != nil {
		return terminal.ConnectionParams{}, err
	}

	params := terminal.ConnectionParams{
		Port:     c.SerialPort,
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		StopBits: stopBits,
		Parity:   parity,
		RTSCTS:   c.RTSCTS,
		XONXOFF:  c.XONXOFF,
	}
	return params, params.Validate()
}
