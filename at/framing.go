package at

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Frame prepares a command for the wire. Leading and trailing white space
// is removed and the command is terminated with CRLF.
func Frame(command string) []byte {
	return []byte(strings.TrimSpace(command) + CRLF)
}

// Normalize converts line endings of inbound text for display: CRLF
// becomes LF and any remaining CR is dropped.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, CRLF, LF)
	return strings.ReplaceAll(text, CR, "")
}

// Decoder turns raw bytes read from the device into text.
//
// Input that is valid UTF-8 is passed through. Anything else is decoded as
// ISO-8859-1 so that every byte the device sent stays visible. A UTF-8
// sequence cut in half by a read boundary is held back until the next call.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	carry []byte
}

// Decode returns the text for data, prefixed by anything held back from
// the previous call.
func (d *Decoder) Decode(data []byte) string {
	if len(d.carry) > 0 {
		data = append(d.carry, data...)
		d.carry = nil
	}

	if n := incompleteTail(data); n > 0 && utf8.Valid(data[:len(data)-n]) {
		d.carry = append([]byte(nil), data[len(data)-n:]...)
		data = data[:len(data)-n]
	}

	if utf8.Valid(data) {
		return string(data)
	}

	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(text)
}

// Flush returns the bytes held back, decoded as ISO-8859-1, and forgets
// them. It is used once no more input is coming for the held bytes.
func (d *Decoder) Flush() string {
	if len(d.carry) == 0 {
		return ""
	}
	data := d.carry
	d.carry = nil
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(text)
}

// Pending reports how many bytes are held back waiting for the rest of a
// UTF-8 sequence.
func (d *Decoder) Pending() int {
	return len(d.carry)
}

// incompleteTail returns the length of a truncated UTF-8 sequence at the
// end of data, or 0 if data ends on a rune boundary.
func incompleteTail(data []byte) int {
	for i := 1; i < utf8.UTFMax && i <= len(data); i++ {
		if utf8.RuneStart(data[len(data)-i]) {
			if utf8.FullRune(data[len(data)-i:]) {
				return 0
			}
			return i
		}
	}
	return 0
}
