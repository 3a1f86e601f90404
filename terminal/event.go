package terminal

import "time"

// EventKind tells what happened on the link.
type EventKind int

const (
	EventData            EventKind = iota // inbound text appended to the log
	EventCommand                          // a command was written to the device
	EventConnectionError                  // the link failed and was closed
)

func (k EventKind) String() string {
	switch k {
	case EventData:
		return "data"
	case EventCommand:
		return "command"
	case EventConnectionError:
		return "connection-error"
	default:
		return "unknown"
	}
}

// Event is delivered to the handler registered with WithHandler.
type Event struct {
	Kind EventKind
	// Data is the exact text appended to the log, if any.
	Data string
	// Command is the command that was written, for EventCommand.
	Command string
	// Err is set for EventConnectionError and wraps ErrCommunication.
	Err  error
	Time time.Time
}
