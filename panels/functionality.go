package panels

import (
	"fmt"

	"i4.energy/across/atkit/at"
)

// Level is a phone functionality level for AT+CFUN.
type Level int

const (
	LevelOff          Level = iota // turn handset off
	LevelFull                      // full functionality
	LevelNoTransmit                // disable transmit RF circuits only
	LevelNoReceive                 // disable receive RF circuits only
	LevelFlight                    // disable transmit and receive RF circuits
	LevelGSMOnly                   // WCDMA radio off
	LevelWCDMAOnly                 // GSM radio off
)

// DefaultLevel is the level selected when none is given.
const DefaultLevel = LevelFull

var levelLabels = []string{
	"Turn handset off",
	"Full functionality",
	"Disable phone transmit RF circuits only",
	"Disable phone receive RF circuits only",
	"Disable phone receive & transmit RF circuits (i.e. Flight mode)",
	"GSM only (WCDMA radio off)",
	"WCDMA only (GSM radio off)",
}

// Levels lists every level in ascending order.
var Levels = []Level{LevelOff, LevelFull, LevelNoTransmit, LevelNoReceive, LevelFlight, LevelGSMOnly, LevelWCDMAOnly}

func (l Level) Valid() bool {
	return l >= LevelOff && l <= LevelWCDMAOnly
}

// Label describes the level.
func (l Level) Label() string {
	if !l.Valid() {
		return ""
	}
	return levelLabels[l]
}

// Functionality switches the phone between functionality levels.
type Functionality struct {
	sender Sender
}

func NewFunctionality(s Sender) *Functionality {
	return &Functionality{sender: s}
}

func (p *Functionality) Title() string { return "Set Functionality" }

// Set sends AT+CFUN for level.
func (p *Functionality) Set(level Level) (string, error) {
	if err := ready(p.sender); err != nil {
		return "", err
	}
	if !level.Valid() {
		return "", &ValidationError{Field: "level", Message: fmt.Sprintf("Functionality level %d is invalid, choose 0 to 6.", level)}
	}
	return send(p.sender, fmt.Sprintf("%s=%d", at.CmdFunctionality, level))
}
