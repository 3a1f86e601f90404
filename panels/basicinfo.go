package panels

import (
	"fmt"
	"slices"
	"strings"

	"i4.energy/across/atkit/at"
)

// InfoItem names a piece of identification the device can report.
type InfoItem string

const (
	InfoIMEI         InfoItem = "imei"
	InfoIMSI         InfoItem = "imsi"
	InfoManufacturer InfoItem = "manufacturer"
	InfoModel        InfoItem = "model"
	InfoSoftware     InfoItem = "software"
	InfoCapabilities InfoItem = "capabilities"
	InfoCommands     InfoItem = "commands"
)

// InfoItems lists every item in display order.
var InfoItems = []InfoItem{
	InfoIMEI, InfoIMSI, InfoManufacturer, InfoModel,
	InfoSoftware, InfoCapabilities, InfoCommands,
}

var infoCommands = map[InfoItem]string{
	InfoIMEI:         at.CmdIMEI,
	InfoIMSI:         at.CmdIMSI,
	InfoManufacturer: at.CmdManufacturer,
	InfoModel:        at.CmdModel,
	InfoSoftware:     at.CmdRevision,
	InfoCapabilities: at.CmdCapabilities,
	InfoCommands:     at.CmdListCommands,
}

var infoLabels = map[InfoItem]string{
	InfoIMEI:         "IMEI",
	InfoIMSI:         "IMSI",
	InfoManufacturer: "Manufacturer",
	InfoModel:        "Model",
	InfoSoftware:     "Software Revision",
	InfoCapabilities: "Modem Capabilities",
	InfoCommands:     "Available AT Commands",
}

// Label returns the human readable name of the item.
func (i InfoItem) Label() string {
	return infoLabels[i]
}

// ParseInfoItem accepts an item name in any case.
func ParseInfoItem(s string) (InfoItem, error) {
	item := InfoItem(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(InfoItems, item) {
		return "", fmt.Errorf("unknown information item %q", s)
	}
	return item, nil
}

// BasicInfo requests identification and capability information.
type BasicInfo struct {
	sender Sender
}

func NewBasicInfo(s Sender) *BasicInfo {
	return &BasicInfo{sender: s}
}

func (p *BasicInfo) Title() string { return "Basic Info" }

// Request sends the query command for item.
func (p *BasicInfo) Request(item InfoItem) (string, error) {
	if err := ready(p.sender); err != nil {
		return "", err
	}
	command, ok := infoCommands[item]
	if !ok {
		return "", &ValidationError{Field: "item", Message: fmt.Sprintf("Unknown information item %q.", item)}
	}
	return send(p.sender, command)
}
