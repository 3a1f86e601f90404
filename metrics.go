package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"i4.energy/across/atkit/terminal"
)

// metrics counts terminal traffic for the HTTP front end
type metrics struct {
	commandsSent     prometheus.Counter
	receivedBytes    prometheus.Counter
	connectionErrors prometheus.Counter
	connected        prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		commandsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "atkit_commands_sent_total",
			Help: "AT commands written to the serial port",
		}),
		receivedBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "atkit_received_text_bytes_total",
			Help: "Bytes of decoded text appended to the terminal log",
		}),
		connectionErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "atkit_connection_errors_total",
			Help: "Serial connections torn down after a communication error",
		}),
		connected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "atkit_serial_connected",
			Help: "1 while the serial port is open",
		}),
	}
}

func (m *metrics) observe(ev terminal.Event) {
	switch ev.Kind {
	case terminal.EventCommand:
		m.commandsSent.Inc()
	case terminal.EventData:
		m.receivedBytes.Add(float64(len(ev.Data)))
	case terminal.EventConnectionError:
		m.connectionErrors.Inc()
		m.connected.Set(0)
	}
}
