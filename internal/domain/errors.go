package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a pipeline stage matches exactly one of
// these with errors.Is.
var (
	ErrNetwork       = errors.New("network error")
	ErrParse         = errors.New("parse error")
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrMissingField  = errors.New("missing field")
	ErrAuth          = errors.New("auth error")
	ErrSerialization = errors.New("serialization error")
	ErrStorageWrite  = errors.New("storage write error")
	ErrTimeout       = errors.New("timeout")
)

// ErrObjectExists is wrapped in a storage write error when the destination key
// is already taken. Objects are never overwritten.
var ErrObjectExists = errors.New("object already exists")

var kinds = []error{
	ErrNetwork,
	ErrParse,
	ErrShapeMismatch,
	ErrMissingField,
	ErrAuth,
	ErrSerialization,
	ErrStorageWrite,
	ErrTimeout,
}

// Error is a classified stage failure. Kind is one of the sentinel kinds above,
// Op names the failed operation, and Err carries the underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

// NewError classifies err under kind. A nil cause is allowed.
func NewError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error with a formatted cause.
func Errorf(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause so errors.Is matches either.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsClassified reports whether err already carries one of the error kinds.
func IsClassified(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// KindOf returns a short label for the kind of err, suitable for metric labels
// and logs. Unclassified errors report "unknown".
func KindOf(err error) string {
	if err == nil {
		return "none"
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return kindLabel(k)
		}
	}
	return "unknown"
}

func kindLabel(kind error) string {
	switch kind {
	case ErrNetwork:
		return "network"
	case ErrParse:
		return "parse"
	case ErrShapeMismatch:
		return "shape_mismatch"
	case ErrMissingField:
		return "missing_field"
	case ErrAuth:
		return "auth"
	case ErrSerialization:
		return "serialization"
	case ErrStorageWrite:
		return "storage_write"
	case ErrTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}
