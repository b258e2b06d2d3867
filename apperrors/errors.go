// Package apperrors defines the error taxonomy shared by services and controllers.
package apperrors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation       Kind = "validation"        // bounds violation, rejected before any write
	KindInvalidState     Kind = "invalid_state"     // transition attempted on a terminal session
	KindExpired          Kind = "expired"           // submit after the duration window
	KindInsufficientPool Kind = "insufficient_pool" // selector cannot meet the relaxed minimum
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict" // duplicate active quiz for the same child/subject/topic
)

type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// KindOf extracts the taxonomy kind from err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
