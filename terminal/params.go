package terminal

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"go.bug.st/serial"
)

// ReadTimeout is the fixed timeout applied to every read from the port.
const ReadTimeout = 500 * time.Millisecond

// BaudRates lists the standard rates a port may be opened with.
var BaudRates = []int{
	50, 75, 110, 134, 150, 200, 300, 600, 1200, 1800, 2400, 4800,
	9600, 19200, 38400, 57600, 115200, 230400, 460800, 500000, 576000,
	921600, 1000000, 1152000, 1500000, 2000000, 2500000, 3000000,
	3500000, 4000000,
}

// DataBits lists the supported byte sizes.
var DataBits = []int{5, 6, 7, 8}

// Parity selects the parity bit of each character.
type Parity string

const (
	ParityNone  Parity = "none"
	ParityEven  Parity = "even"
	ParityOdd   Parity = "odd"
	ParityMark  Parity = "mark"
	ParitySpace Parity = "space"
)

// Parities lists every Parity in display order.
var Parities = []Parity{ParityNone, ParityEven, ParityOdd, ParityMark, ParitySpace}

// ParseParity accepts a parity name or its single letter (N, E, O, M, S).
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "n", "":
		return ParityNone, nil
	case "even", "e":
		return ParityEven, nil
	case "odd", "o":
		return ParityOdd, nil
	case "mark", "m":
		return ParityMark, nil
	case "space", "s":
		return ParitySpace, nil
	}
	return "", fmt.Errorf("unknown parity %q", s)
}

func (p Parity) mode() serial.Parity {
	switch p {
	case ParityEven:
		return serial.EvenParity
	case ParityOdd:
		return serial.OddParity
	case ParityMark:
		return serial.MarkParity
	case ParitySpace:
		return serial.SpaceParity
	default:
		return serial.NoParity
	}
}

// StopBits selects the number of stop bits.
type StopBits string

const (
	StopBitsOne     StopBits = "1"
	StopBitsOneHalf StopBits = "1.5"
	StopBitsTwo     StopBits = "2"
)

// StopBitChoices lists every StopBits value in display order.
var StopBitChoices = []StopBits{StopBitsOne, StopBitsOneHalf, StopBitsTwo}

// ParseStopBits accepts "1", "1.5" or "2".
func ParseStopBits(s string) (StopBits, error) {
	sb := StopBits(strings.TrimSpace(s))
	if sb == "" {
		return StopBitsOne, nil
	}
	if !slices.Contains(StopBitChoices, sb) {
		return "", fmt.Errorf("unknown stop bits %q", s)
	}
	return sb, nil
}

func (s StopBits) mode() serial.StopBits {
	switch s {
	case StopBitsOneHalf:
		return serial.OnePointFiveStopBits
	case StopBitsTwo:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}

// ConnectionParams holds the serial line settings chosen by the user.
type ConnectionParams struct {
	Port     string   `yaml:"port"`
	BaudRate int      `yaml:"baud_rate"`
	DataBits int      `yaml:"data_bits"`
	StopBits StopBits `yaml:"stop_bits"`
	Parity   Parity   `yaml:"parity"`
	RTSCTS   bool     `yaml:"rtscts"`
	XONXOFF  bool     `yaml:"xonxoff"`
}

// DefaultParams returns 9600 8N1 without flow control on the given port.
func DefaultParams(port string) ConnectionParams {
	return ConnectionParams{
		Port:     port,
		BaudRate: 9600,
		DataBits: 8,
		StopBits: StopBitsOne,
		Parity:   ParityNone,
	}
}

// Validate checks every field against the supported choices.
func (p ConnectionParams) Validate() error {
	if p.Port == "" {
		return fmt.Errorf("serial port name is required")
	}
	if !slices.Contains(BaudRates, p.BaudRate) {
		return fmt.Errorf("unsupported baud rate %d", p.BaudRate)
	}
	if !slices.Contains(DataBits, p.DataBits) {
		return fmt.Errorf("unsupported data bits %d", p.DataBits)
	}
	if !slices.Contains(StopBitChoices, p.StopBits) {
		return fmt.Errorf("unsupported stop bits %q", p.StopBits)
	}
	if !slices.Contains(Parities, p.Parity) {
		return fmt.Errorf("unsupported parity %q", p.Parity)
	}
	return nil
}

// Mode converts the parameters to a go.bug.st/serial mode. Hardware flow
// control asserts RTS and DTR when the port opens; the driver has no
// setting for automatic RTS/CTS or XON/XOFF handshaking.
func (p ConnectionParams) Mode() *serial.Mode {
	mode := &serial.Mode{
		BaudRate: p.BaudRate,
		DataBits: p.DataBits,
		Parity:   p.Parity.mode(),
		StopBits: p.StopBits.mode(),
	}
	if p.RTSCTS {
		mode.InitialStatusBits = &serial.ModemOutputBits{RTS: true, DTR: true}
	}
	return mode
}

// String renders the parameters the way serial settings are usually
// written, for example "/dev/ttyUSB0 115200 8N1".
func (p ConnectionParams) String() string {
	parity := "N"
	if p.Parity != "" {
		parity = strings.ToUpper(string(p.Parity[:1]))
	}
	s := fmt.Sprintf("%s %d %d%s%s", p.Port, p.BaudRate, p.DataBits, parity, p.StopBits)
	if p.RTSCTS {
		s += " rtscts"
	}
	if p.XONXOFF {
		s += " xonxoff"
	}
	return s
}
