package panels

import (
	"fmt"
	"slices"
	"strings"
)

// Facility is a 3GPP lock or barring facility, identified by its two
// letter code.
type Facility string

const (
	FacilityPS Facility = "PS" // lock phone to SIM card
	FacilitySC Facility = "SC" // lock SIM card
	FacilityP2 Facility = "P2" // SIM PIN2
	FacilityAO Facility = "AO" // BAOC, barr all outgoing calls
	FacilityOI Facility = "OI" // BOIC, barr outgoing international calls
	FacilityOX Facility = "OX" // BOIC-exHC, outgoing international except to home country
	FacilityAI Facility = "AI" // BAIC, barr all incoming calls
	FacilityIR Facility = "IR" // BIC-Roam, barr incoming calls when roaming
	FacilityAC Facility = "AC" // all incoming barring services
	FacilityAG Facility = "AG" // all outgoing barring services
	FacilityAB Facility = "AB" // all barring services
)

var facilityLabels = map[Facility]string{
	FacilityPS: "Lock phone to SIM card",
	FacilitySC: "Lock SIM card",
	FacilityP2: "SIM PIN2",
	FacilityAO: "BAOC",
	FacilityOI: "BOIC",
	FacilityOX: "BOIC-exHC",
	FacilityAI: "BAIC",
	FacilityIR: "BIC-Roam",
	FacilityAC: "All Incoming Barring",
	FacilityAG: "All Outgoing Barring",
	FacilityAB: "All Barring",
}

// Label returns a short description of the facility.
func (f Facility) Label() string {
	return facilityLabels[f]
}

// parseFacility accepts a facility code in any case, provided it is one of
// allowed.
func parseFacility(s string, allowed []Facility) (Facility, error) {
	f := Facility(strings.ToUpper(strings.TrimSpace(s)))
	if !slices.Contains(allowed, f) {
		return "", &ValidationError{
			Field:   "facility",
			Message: fmt.Sprintf("Facility %q is not available here.", s),
		}
	}
	return f, nil
}
