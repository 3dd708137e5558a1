package kvdb

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

// Kind classifies a store failure. Callers branch only on the kind;
// the message is diagnostic text and is never parsed.
type Kind uint64

const (
	NoError        Kind = iota // 0: No failure. Represented by a nil error, never by an Error value.
	KeyError                   // 1: Requested key not present in the applicable view. Expected and recoverable.
	BackendError               // 2: Engine-level failure (open, I/O, commit). Surfaced verbatim, never retried.
	ConditionError             // 3: Opaque native failure condition wrapped for uniformity.
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case NoError:
		return "NoError"
	case KeyError:
		return "KeyError"
	case BackendError:
		return "BackendError"
	case ConditionError:
		return "ConditionError"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the classified error every engine funnels its failures through.
// It wraps a Kind and a human-readable message.
type Error struct {
	Kind Kind   // The failure classification
	Msg  string // The diagnostic message
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("kvdb error (kind %s): %s", e.Kind, e.Msg)
}

// MakeError creates a new classified Error with the given kind and message.
func MakeError(kind Kind, msg string) *Error {
	return &Error{
		Kind: kind,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Classification Helpers
// --------------------------------------------------------------------------

// KindOf returns the classification of an error. A nil error maps to
// NoError; an error that is not a kvdb Error maps to ConditionError,
// so that native failures an engine forgot to translate still land in
// the taxonomy.
func KindOf(err error) Kind {
	if err == nil {
		return NoError
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ConditionError
}

// IsKeyError reports whether err represents a key lookup miss.
func IsKeyError(err error) bool {
	return KindOf(err) == KeyError
}
