package panels

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"i4.energy/across/atkit/at"
)

// BarringFacilities lists the facilities the call barring panel offers.
var BarringFacilities = []Facility{
	FacilityAO, FacilityOI, FacilityOX, FacilityAI,
	FacilityIR, FacilityAC, FacilityAG, FacilityAB,
}

// disableOnly facilities group several barring services and can only be
// switched off.
var disableOnly = []Facility{FacilityAC, FacilityAG, FacilityAB}

// ParseBarringFacility accepts one of BarringFacilities in any case.
func ParseBarringFacility(s string) (Facility, error) {
	return parseFacility(s, BarringFacilities)
}

// DisableOnly reports whether f may only be disabled. Enabling and
// interrogating such a facility is refused.
func DisableOnly(f Facility) bool {
	return slices.Contains(disableOnly, f)
}

// Class is a bit set of 3GPP information classes. Zero means the device's
// default classes.
type Class int

const (
	ClassVoice              Class = 1
	ClassData               Class = 2
	ClassFax                Class = 4
	ClassSMS                Class = 8
	ClassDataCircuitSync    Class = 16
	ClassDataCircuitAsync   Class = 32
	ClassDedicatedPacket    Class = 64
	ClassDedicatedPADAccess Class = 128

	AllClasses Class = 255
)

// Classes lists every single class bit in ascending order.
var Classes = []Class{
	ClassVoice, ClassData, ClassFax, ClassSMS,
	ClassDataCircuitSync, ClassDataCircuitAsync,
	ClassDedicatedPacket, ClassDedicatedPADAccess,
}

// ParseClasses combines class values given as numbers, or "all". An empty
// list yields zero.
func ParseClasses(values []string) (Class, error) {
	var c Class
	for _, v := range values {
		v = strings.TrimSpace(v)
		if strings.EqualFold(v, "all") {
			c |= AllClasses
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || !slices.Contains(Classes, Class(n)) {
			return 0, &ValidationError{Field: "class", Message: fmt.Sprintf("Class %q is invalid.", v)}
		}
		c |= Class(n)
	}
	return c, nil
}

// CallBarringCommand formats an enable or disable request for f. Classes are
// only included when non-zero.
func CallBarringCommand(f Facility, enable bool, password string, classes Class) (string, error) {
	if !slices.Contains(BarringFacilities, f) {
		return "", &ValidationError{Field: "facility", Message: fmt.Sprintf("Facility %q is not a barring facility.", f)}
	}
	if err := ValidateNetworkPassword(password); err != nil {
		return "", err
	}

	mode := 0
	if enable {
		mode = 1
	}
	if classes != 0 {
		return fmt.Sprintf(`%s="%s", %d, "%s", %d`, at.CmdFacilityLock, f, mode, password, classes), nil
	}
	return fmt.Sprintf(`%s="%s", %d, "%s"`, at.CmdFacilityLock, f, mode, password), nil
}

// CallBarring enables, disables and interrogates call barring services.
type CallBarring struct {
	sender Sender
}

func NewCallBarring(s Sender) *CallBarring {
	return &CallBarring{sender: s}
}

func (p *CallBarring) Title() string { return "Call Barring" }

// Enable switches barring on for f.
func (p *CallBarring) Enable(f Facility, password string, classes Class) (string, error) {
	if err := ready(p.sender); err != nil {
		return "", err
	}
	if DisableOnly(f) {
		return "", &ValidationError{Field: "facility", Message: fmt.Sprintf("Facility %s can only be disabled.", f)}
	}
	return p.barring(f, true, password, classes)
}

// Disable switches barring off for f.
func (p *CallBarring) Disable(f Facility, password string, classes Class) (string, error) {
	if err := ready(p.sender); err != nil {
		return "", err
	}
	return p.barring(f, false, password, classes)
}

// Interrogate queries the status of f.
func (p *CallBarring) Interrogate(f Facility) (string, error) {
	if err := ready(p.sender); err != nil {
		return "", err
	}
	if !slices.Contains(BarringFacilities, f) {
		return "", &ValidationError{Field: "facility", Message: fmt.Sprintf("Facility %q is not a barring facility.", f)}
	}
	if DisableOnly(f) {
		return "", &ValidationError{Field: "facility", Message: fmt.Sprintf("Facility %s can only be disabled.", f)}
	}
	return send(p.sender, fmt.Sprintf(`%s="%s", 2`, at.CmdFacilityLock, f))
}

func (p *CallBarring) barring(f Facility, enable bool, password string, classes Class) (string, error) {
	command, err := CallBarringCommand(f, enable, password, classes)
	if err != nil {
		return "", err
	}
	return send(p.sender, command)
}
