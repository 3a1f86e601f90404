package panels

import (
	"fmt"
	"slices"

	"i4.energy/across/atkit/at"
)

// PasswordFacilities lists the facilities whose password can be changed.
var PasswordFacilities = []Facility{
	FacilityPS, FacilitySC, FacilityP2, FacilityAO, FacilityOI, FacilityAI,
	FacilityIR, FacilityOX, FacilityAB, FacilityAG, FacilityAC,
}

// ParsePasswordFacility accepts one of PasswordFacilities in any case.
func ParsePasswordFacility(s string) (Facility, error) {
	return parseFacility(s, PasswordFacilities)
}

// ChangePasswordCommand formats AT+CPWD after validating both passwords.
func ChangePasswordCommand(f Facility, oldPassword, newPassword string) (string, error) {
	if !slices.Contains(PasswordFacilities, f) {
		return "", &ValidationError{Field: "facility", Message: fmt.Sprintf("Facility %q has no password.", f)}
	}
	if err := ValidateNetworkPassword(oldPassword); err != nil {
		return "", &ValidationError{Field: "old-password", Message: "Old password: " + err.Error()}
	}
	if err := ValidateNetworkPassword(newPassword); err != nil {
		return "", &ValidationError{Field: "new-password", Message: "New password: " + err.Error()}
	}
	return fmt.Sprintf(`%s="%s", "%s", "%s"`, at.CmdChangePassword, f, oldPassword, newPassword), nil
}

// ChangePasswords changes facility passwords.
type ChangePasswords struct {
	sender Sender
}

func NewChangePasswords(s Sender) *ChangePasswords {
	return &ChangePasswords{sender: s}
}

func (p *ChangePasswords) Title() string { return "Change Passwords" }

// Change replaces the password of f.
func (p *ChangePasswords) Change(f Facility, oldPassword, newPassword string) (string, error) {
	if err := ready(p.sender); err != nil {
		return "", err
	}
	command, err := ChangePasswordCommand(f, oldPassword, newPassword)
	if err != nil {
		return "", err
	}
	return send(p.sender, command)
}

// Test asks the device which facilities support a password and how long
// each may be.
func (p *ChangePasswords) Test() (string, error) {
	if err := ready(p.sender); err != nil {
		return "", err
	}
	return send(p.sender, at.CmdChangePasswordTest)
}
