package core

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrorValidation ErrorKind = "validation"
	ErrorNotFound   ErrorKind = "not_found"
	ErrorStorage    ErrorKind = "storage"
	ErrorDirectory  ErrorKind = "directory"
	ErrorCompletion ErrorKind = "completion"
)

// Error carries the failure kind the HTTP layer maps to a status code.
// Reason is the client-facing message for validation and not-found errors.
type Error struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("core: %s (%s)", e.Kind, e.Reason)
	}
	return fmt.Sprintf("core: %s (%s): %v", e.Kind, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(kind ErrorKind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
