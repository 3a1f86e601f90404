package panels

import (
	"fmt"
	"strings"

	"i4.energy/across/atkit/at"
)

// CallType selects between a voice and a data call.
type CallType int

const (
	CallVoice CallType = iota
	CallData
)

// ParseCallType accepts "voice" or "data".
func ParseCallType(s string) (CallType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "voice", "":
		return CallVoice, nil
	case "data":
		return CallData, nil
	}
	return 0, fmt.Errorf("unknown call type %q", s)
}

// DialCommand formats ATD for the dial string. Voice calls end with ";".
func DialCommand(t CallType, dial string) (string, error) {
	dial = strings.TrimSpace(dial)
	if dial == "" {
		return "", &ValidationError{Field: "dial", Message: "Please enter a string to dial"}
	}
	if t == CallVoice {
		return at.CmdDial + dial + ";", nil
	}
	return at.CmdDial + dial, nil
}

// CallControl places, answers and ends calls.
type CallControl struct {
	sender Sender
}

func NewCallControl(s Sender) *CallControl {
	return &CallControl{sender: s}
}

func (p *CallControl) Title() string { return "Call Control" }

// Dial starts a call to the dial string.
func (p *CallControl) Dial(t CallType, dial string) (string, error) {
	if err := ready(p.sender); err != nil {
		return "", err
	}
	command, err := DialCommand(t, dial)
	if err != nil {
		return "", err
	}
	return send(p.sender, command)
}

// Answer picks up an incoming call.
func (p *CallControl) Answer() (string, error) {
	if err := ready(p.sender); err != nil {
		return "", err
	}
	return send(p.sender, at.CmdAnswer)
}

// HangUp terminates the active call.
func (p *CallControl) HangUp() (string, error) {
	if err := ready(p.sender); err != nil {
		return "", err
	}
	return send(p.sender, at.CmdHangUp)
}
