// Package panels turns user selections into AT command strings.
//
// Each panel covers one group of 3GPP TS 27.007 commands. A panel validates
// its input, formats exactly one command and hands it to a Sender. Nothing
// here reads or interprets the device's response.
package panels

import (
	"fmt"
	"io"
	"strings"
)

// Sender delivers a command to the device.
type Sender interface {
	Send(command string) error
}

// Readier is implemented by senders that can refuse every command up
// front, such as a session without an open port. Panels ask it before
// validating their input.
type Readier interface {
	Ready() error
}

func ready(s Sender) error {
	if r, ok := s.(Readier); ok {
		return r.Ready()
	}
	return nil
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(command string) error

func (f SenderFunc) Send(command string) error {
	return f(command)
}

// WriterSender writes every command on its own line to W instead of a
// device. It lets a panel run without a port so its output can be inspected.
type WriterSender struct {
	W io.Writer
}

func (s WriterSender) Send(command string) error {
	_, err := fmt.Fprintln(s.W, command)
	return err
}

// ValidationError reports input a panel refused to turn into a command.
// Message is meant to be shown to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateNetworkPassword checks a facility or network password. It must
// not be empty and may only contain the digits 0-9.
func ValidateNetworkPassword(password string) error {
	if len(password) == 0 {
		return &ValidationError{Field: "password", Message: "Please enter a network password."}
	}
	if strings.Trim(password, "0123456789") != "" {
		return &ValidationError{Field: "password", Message: "The network password can only contain digits."}
	}
	return nil
}

// send forwards a finished command and returns it so callers can show what
// went out.
func send(s Sender, command string) (string, error) {
	if err := s.Send(command); err != nil {
		return command, err
	}
	return command, nil
}

// Set groups one instance of every panel around a shared Sender.
type Set struct {
	BasicInfo       *BasicInfo
	CallBarring     *CallBarring
	CallControl     *CallControl
	ChangePasswords *ChangePasswords
	DTMF            *DTMFKeypad
	Functionality   *Functionality
}

// NewSet creates all panels on top of s.
func NewSet(s Sender) *Set {
	return &Set{
		BasicInfo:       NewBasicInfo(s),
		CallBarring:     NewCallBarring(s),
		CallControl:     NewCallControl(s),
		ChangePasswords: NewChangePasswords(s),
		DTMF:            NewDTMFKeypad(s),
		Functionality:   NewFunctionality(s),
	}
}
