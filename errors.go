// Package annsearch is the public facade over the HGraph and SINDI index
// cores: a named-index registry with a single functional-options
// configuration surface.
package annsearch

import (
	"errors"
	"fmt"
)

// Kind classifies an *Error, narrowed to the nine kinds listed in §7. No circuit-breaker/recovery-orchestrator machinery backs
// this type — see DESIGN.md for why.
type Kind int

const (
	KindInternal Kind = iota
	KindBuildTwice
	KindDimensionMismatch
	KindOutOfMemory
	KindIndexNotEmpty
	KindIndexEmpty
	KindInvalidBinary
	KindInvalidArgument
	KindUnsupportedIndex
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "InternalError"
	case KindBuildTwice:
		return "BuildTwice"
	case KindDimensionMismatch:
		return "DimensionMismatch"
	case KindOutOfMemory:
		return "OutOfMemory"
	case KindIndexNotEmpty:
		return "IndexNotEmpty"
	case KindIndexEmpty:
		return "IndexEmpty"
	case KindInvalidBinary:
		return "InvalidBinary"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindUnsupportedIndex:
		return "UnsupportedIndex"
	default:
		return "Unknown"
	}
}

// Error is the single structured error type this facade returns: kind,
// message, and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("annsearch: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("annsearch: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether target is an *Error of the same Kind, so callers can
// write errors.Is(err, annsearch.ErrBuildTwice) style comparisons against
// the sentinels below.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// Sentinel *Error values for errors.Is comparisons against a specific kind
// without caring about the message.
var (
	ErrBuildTwice         = &Error{Kind: KindBuildTwice, Message: "Build called on a non-empty index"}
	ErrDimensionMismatch  = &Error{Kind: KindDimensionMismatch, Message: "vector dimension mismatch"}
	ErrIndexNotEmpty      = &Error{Kind: KindIndexNotEmpty, Message: "Deserialize called on a non-empty index"}
	ErrIndexEmpty         = &Error{Kind: KindIndexEmpty, Message: "Serialize called on an empty index"}
	ErrInvalidBinary      = &Error{Kind: KindInvalidBinary, Message: "footer magic/version/section missing or corrupt"}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument, Message: "configuration rejected"}
	ErrUnsupportedIndex   = &Error{Kind: KindUnsupportedIndex, Message: "unknown index name"}
	ErrCollectionClosed   = &Error{Kind: KindInternal, Message: "collection is closed"}
	ErrCollectionNotFound = &Error{Kind: KindInternal, Message: "collection not found"}
)
