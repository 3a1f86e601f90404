package terminal

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Transport represents an established, bidirectional byte stream to a device.
//
// A Transport is assumed to be already connected and ready for use. Reads may
// return zero bytes and no error when the read timeout expires; the terminal
// simply reads again. Typical implementations are serial ports or in-memory
// fakes used for testing.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to a device.
//
// Dialer abstracts how the link is created and is only used while connecting.
// Once a Transport is obtained, the Dialer is no longer needed.
type Dialer interface {
	// Dial creates and returns a connected Transport. It should respect
	// cancellation of the context before doing any blocking work.
	Dial(ctx context.Context) (Transport, error)
}

// SerialDialer opens a serial port with go.bug.st/serial.
type SerialDialer struct {
	Params ConnectionParams
	// Logger receives warnings about settings the driver cannot apply.
	Logger *slog.Logger
}

// Dial validates the parameters, opens the port and sets the fixed read
// timeout.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if d.Params.Port == "" {
		return nil, errors.New("atkit: serial port name is required")
	}
	if ctx == nil {
		return nil, errors.New("atkit: context is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.Params.Validate(); err != nil {
		return nil, fmt.Errorf("atkit: %w", err)
	}

	if d.Params.XONXOFF && d.Logger != nil {
		d.Logger.Warn("Software flow control is not supported by the serial driver", "port", d.Params.Port)
	}

	port, err := serial.Open(d.Params.Port, d.Params.Mode())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Params.Port, err)
	}

	if err := port.SetReadTimeout(ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", d.Params.Port, err)
	}

	return port, nil
}

// PortInfo describes a serial port found on the system.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// ListPorts enumerates the serial ports currently present.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, p := range details {
		ports = append(ports, PortInfo{
			Name:         p.Name,
			IsUSB:        p.IsUSB,
			VID:          p.VID,
			PID:          p.PID,
			SerialNumber: p.SerialNumber,
			Product:      p.Product,
		})
	}
	return ports, nil
}
