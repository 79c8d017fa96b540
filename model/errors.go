package model

import "fmt"

// Kind classifies an Error. Callers typically switch on Kind (or use
// errors.As to get at the *Error) rather than matching error strings.
type Kind int

const (
	// InvalidHeader means the %PDF- header is missing or malformed.
	InvalidHeader Kind = iota
	// UnsupportedVersion means the declared PDF version is not handled.
	UnsupportedVersion
	// InvalidXref means the cross-reference table/stream is malformed
	// beyond what reconstruction could repair.
	InvalidXref
	// InvalidPdf is a catch-all for structural violations that do not
	// fit a more specific kind.
	InvalidPdf
	// ParseError means the tokenizer/parser could not make sense of the
	// bytes at a given offset.
	ParseError
	// ObjectNotFound means a referenced object id/generation is absent
	// from the xref table (and reconstruction didn't find it either).
	ObjectNotFound
	// CircularReference means resolving an object would recurse into
	// itself.
	CircularReference
	// RecursionLimitExceeded means an internal depth guard (object
	// resolution, Prev chain, page tree) was tripped.
	RecursionLimitExceeded
	// InvalidObjectType means an object was resolved but does not have
	// the type a caller required (e.g. a dict was expected, an array
	// found).
	InvalidObjectType
	// Io wraps an underlying I/O error from the source reader.
	Io
	// UnexpectedEof means the source ended before a value could be
	// fully read.
	UnexpectedEof
)

func (k Kind) String() string {
	switch k {
	case InvalidHeader:
		return "InvalidHeader"
	case UnsupportedVersion:
		return "UnsupportedVersion"
	case InvalidXref:
		return "InvalidXref"
	case InvalidPdf:
		return "InvalidPdf"
	case ParseError:
		return "ParseError"
	case ObjectNotFound:
		return "ObjectNotFound"
	case CircularReference:
		return "CircularReference"
	case RecursionLimitExceeded:
		return "RecursionLimitExceeded"
	case InvalidObjectType:
		return "InvalidObjectType"
	case Io:
		return "Io"
	case UnexpectedEof:
		return "UnexpectedEof"
	default:
		return "Unknown"
	}
}

// Error is the single error type produced by this module. It carries a
// Kind for programmatic dispatch and wraps an underlying cause (if any)
// so errors.Is/errors.As compose through it.
type Error struct {
	Kind   Kind
	Reason string
	Offset int64 // byte offset in the source, -1 if not applicable
	Err    error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Offset >= 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s at offset %d: %s: %s", e.Kind, e.Offset, e.Reason, e.Err)
		}
		return fmt.Sprintf("%s at offset %d: %s", e.Kind, e.Offset, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error with no associated offset.
func NewError(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason, Offset: -1}
}

// NewErrorf builds an Error with no associated offset and a formatted reason.
func NewErrorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...), Offset: -1}
}

// WrapError builds an Error wrapping an underlying cause.
func WrapError(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Offset: -1, Err: err}
}

// AtOffset builds a ParseError-family Error anchored to a byte offset.
func AtOffset(kind Kind, offset int64, reason string) *Error {
	return &Error{Kind: kind, Reason: reason, Offset: offset}
}

// ObjectNotFoundError reports a missing object by reference.
func ObjectNotFoundError(ref Reference) *Error {
	return NewErrorf(ObjectNotFound, "object %d %d not found", ref.Number, ref.Generation)
}

// CircularReferenceError reports a reference that resolves into itself.
func CircularReferenceError(ref Reference) *Error {
	return NewErrorf(CircularReference, "circular reference to object %d %d", ref.Number, ref.Generation)
}

// RecursionLimitError reports a tripped depth guard.
func RecursionLimitError(limit int) *Error {
	return NewErrorf(RecursionLimitExceeded, "recursion limit of %d exceeded", limit)
}

// InvalidObjectTypeError reports a type mismatch after resolution.
func InvalidObjectTypeError(expected, found string) *Error {
	return NewErrorf(InvalidObjectType, "expected %s, found %s", expected, found)
}
