// Package gtstoreerr defines the closed set of error kinds gtstore's
// storage nodes, manager, and clients can produce, modeled on
// froz-husain-PairDB's internal/errors/codes.go but without the gRPC
// status conversion — gtstore has no gRPC surface, errors travel as the
// human-readable string in a wire.ERROR payload (spec.md §7).
package gtstoreerr

import "fmt"

// Kind is one of the error kinds enumerated in spec.md §7.
type Kind int

const (
	// Unknown is the zero value and should never be returned deliberately.
	Unknown Kind = iota
	BadKey
	BadValue
	BadFormat
	Locked
	NodePaused
	Missing
	Transport
	UnknownType
)

func (k Kind) String() string {
	switch k {
	case BadKey:
		return "BAD_KEY"
	case BadValue:
		return "BAD_VALUE"
	case BadFormat:
		return "BAD_FORMAT"
	case Locked:
		return "LOCKED"
	case NodePaused:
		return "NODE_PAUSED"
	case Missing:
		return "MISSING"
	case Transport:
		return "TRANSPORT"
	case UnknownType:
		return "UNKNOWN_TYPE"
	default:
		return "UNKNOWN"
	}
}

// Error is a structured application error carrying a Kind and a
// human-readable message. Kind lets callers on this side of the wire
// branch on error category without string matching. Error() prefixes the
// message with the Kind (and appends any cause); WireMessage is the
// message alone.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WireMessage returns just the human-readable message, without the Kind
// or the cause, in the form an ERROR payload carries (spec.md §4.4, §7).
func (e *Error) WireMessage() string {
	return e.Message
}
