package panels

import (
	"fmt"
	"strings"

	"i4.energy/across/atkit/at"
)

// DTMFKeys holds every tone the keypad can send.
const DTMFKeys = "0123456789ABCD*#"

// ValidateTones checks a comma separated string of single DTMF tones.
// Letters may be lower case and spaces may surround each tone.
func ValidateTones(tones string) error {
	for _, r := range tones {
		char := strings.TrimSpace(string(r))
		upper := strings.ToUpper(char)
		if upper != "" && !strings.Contains(DTMFKeys+",", upper) {
			return &ValidationError{Field: "tones", Message: fmt.Sprintf(`Character "%s" is invalid.`, char)}
		}
	}

	tones = strings.Trim(tones, " ,")
	for _, item := range strings.Split(tones, ",") {
		if len(strings.TrimSpace(item)) != 1 {
			return &ValidationError{Field: "tones", Message: "The specified tone string is invalid, please check."}
		}
	}
	return nil
}

// TonesCommand formats AT+VTS for a tone string such as "1, 2, a".
func TonesCommand(tones string) (string, error) {
	tones = strings.Trim(tones, " ,")
	if err := ValidateTones(tones); err != nil {
		return "", err
	}

	items := strings.Split(tones, ",")
	for i, item := range items {
		items[i] = strings.ToUpper(strings.TrimSpace(item))
	}
	return fmt.Sprintf(`%s="%s"`, at.CmdDTMF, strings.Join(items, ",")), nil
}

// DTMFKeypad sends DTMF tones during a call.
type DTMFKeypad struct {
	sender Sender
}

func NewDTMFKeypad(s Sender) *DTMFKeypad {
	return &DTMFKeypad{sender: s}
}

func (p *DTMFKeypad) Title() string { return "DTMF Keypad" }

// Key sends a single tone.
func (p *DTMFKeypad) Key(key string) (string, error) {
	if err := ready(p.sender); err != nil {
		return "", err
	}
	k := strings.ToUpper(strings.TrimSpace(key))
	if len(k) != 1 || !strings.Contains(DTMFKeys, k) {
		return "", &ValidationError{Field: "key", Message: fmt.Sprintf(`Key "%s" is invalid.`, key)}
	}
	return send(p.sender, fmt.Sprintf(`%s="%s"`, at.CmdDTMF, k))
}

// Tones sends a comma separated string of tones in one command.
func (p *DTMFKeypad) Tones(tones string) (string, error) {
	if err := ready(p.sender); err != nil {
		return "", err
	}
	command, err := TonesCommand(tones)
	if err != nil {
		return "", err
	}
	return send(p.sender, command)
}
