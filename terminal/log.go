package terminal

import (
	"bytes"
	"strings"

	"i4.energy/across/atkit/at"
)

// Log is the rolling text log of a terminal session. Once it holds more than
// its limit of complete lines, the oldest lines are discarded.
//
// A Log is not safe for concurrent use; Terminal guards its own.
type Log struct {
	text  []byte
	lines int
	limit int
}

// NewLog returns an empty log keeping at most limit lines. A limit of zero
// or less keeps everything.
func NewLog(limit int) *Log {
	return &Log{limit: limit}
}

// Append adds text to the end of the log.
func (l *Log) Append(text string) {
	if text == "" {
		return
	}
	l.text = append(l.text, text...)
	l.lines += strings.Count(text, at.LF)
	l.trim()
}

// Mark starts a new line holding the command marker and returns exactly
// what was appended.
func (l *Log) Mark() string {
	marker := at.CommandMarker
	if len(l.text) > 0 && l.text[len(l.text)-1] != '\n' {
		marker = at.LF + marker
	}
	l.Append(marker)
	return marker
}

// Clear empties the log.
func (l *Log) Clear() {
	l.text = nil
	l.lines = 0
}

// Lines returns the number of complete lines held.
func (l *Log) Lines() int {
	return l.lines
}

func (l *Log) String() string {
	return string(l.text)
}

func (l *Log) trim() {
	if l.limit <= 0 {
		return
	}
	for l.lines > l.limit {
		i := bytes.IndexByte(l.text, '\n')
		if i < 0 {
			return
		}
		l.text = l.text[i+1:]
		l.lines--
	}
}
