package terminal

import "errors"

var (
	// ErrNoDialer is returned when Connect is called without a Dialer.
	//
	// This indicates a programming error. A Dialer is required in order to
	// open the link to the device.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when a Dialer reports success but hands
	// back no Transport.
	ErrNotInitialized = errors.New("transport not initialized")

	// ErrNotConnected is returned when an operation needs an open link and
	// there is none, including a second call to Disconnect.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected is returned when Connect is called while a link is
	// already open.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrCommunication wraps every I/O failure on an open link.
	//
	// It is the only runtime error kind the terminal produces. A failed
	// write leaves the link open; a failed read tears it down and is
	// reported through an EventConnectionError.
	ErrCommunication = errors.New("there was a communication error with the serial port")
)
