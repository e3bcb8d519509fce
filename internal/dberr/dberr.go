// Package dberr defines the error kinds surfaced by the storage engine.
//
// Every fallible operation returns either nil or an error carrying one of
// three kinds: I/O, corruption or invalid argument. Callers add context with
// github.com/pkg/errors; the kind survives wrapping and is recovered with
// the Is* predicates or with errors.Is against the sentinel values.
package dberr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an engine error.
type Kind uint8

const (
	// KindIO is an underlying read, write, seek or create failure.
	KindIO Kind = iota + 1
	// KindCorruption is malformed on-disk data: bad magic, key mismatch,
	// truncated framing.
	KindCorruption
	// KindInvalidArgument is rejected caller input.
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "I/O error"
	case KindCorruption:
		return "corruption"
	case KindInvalidArgument:
		return "invalid argument"
	default:
		return "unknown error"
	}
}

// Sentinels for use with errors.Is.
var (
	ErrIO              = &Error{Kind: KindIO}
	ErrCorruption      = &Error{Kind: KindCorruption}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
)

// Error is an engine error of a given Kind. Err holds the underlying cause
// for I/O errors and is nil otherwise.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err == nil:
		return e.Kind.String()
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Msg == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, ErrCorruption) matches any corruption error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// IO wraps err as an I/O error. A nil err yields nil.
func IO(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindIO, Msg: msg, Err: err}
}

// Corruption returns a corruption error with a formatted message.
func Corruption(format string, args ...any) error {
	return &Error{Kind: KindCorruption, Msg: fmt.Sprintf(format, args...)}
}

// InvalidArgument returns an invalid argument error with a formatted message.
func InvalidArgument(format string, args ...any) error {
	return &Error{Kind: KindInvalidArgument, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsIO reports whether err is an I/O error.
func IsIO(err error) bool { return KindOf(err) == KindIO }

// IsCorruption reports whether err is a corruption error.
func IsCorruption(err error) bool { return KindOf(err) == KindCorruption }

// IsInvalidArgument reports whether err is an invalid argument error.
func IsInvalidArgument(err error) bool { return KindOf(err) == KindInvalidArgument }
