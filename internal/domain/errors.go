package domain

import (
	"errors"
	"fmt"
)

// Kind classifies errors that cross the service boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindPermissionDenied
	KindNotFound
	KindUnavailable
	KindInvalidReference
	KindInvalid
	KindConflict
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission denied"
	case KindNotFound:
		return "not found"
	case KindUnavailable:
		return "service unavailable"
	case KindInvalidReference:
		return "invalid reference"
	case KindInvalid:
		return "invalid input"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	}
	return "internal error"
}

// Error is a kinded error. Msg is safe to show to clients; Err is the cause
// and is only meant for logs.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of Op or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

var (
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrUnavailable      = &Error{Kind: KindUnavailable}
	ErrInvalidReference = &Error{Kind: KindInvalidReference}
	ErrInvalid          = &Error{Kind: KindInvalid}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrUnauthenticated  = &Error{Kind: KindUnauthenticated}
)

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the client-facing text for err. Causes of
// unavailable and internal errors are never included.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return KindInternal.String()
	}
	if e.Msg != "" && e.Kind != KindUnavailable && e.Kind != KindInternal {
		return e.Msg
	}
	return e.Kind.String()
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Denied(format string, args ...any) error {
	return &Error{Kind: KindPermissionDenied, Msg: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...any) error {
	return &Error{Kind: KindInvalid, Msg: fmt.Sprintf(format, args...)}
}

func InvalidReference(format string, args ...any) error {
	return &Error{Kind: KindInvalidReference, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func Unauthenticated(format string, args ...any) error {
	return &Error{Kind: KindUnauthenticated, Msg: fmt.Sprintf(format, args...)}
}

// Unavailable wraps a collaborator failure.
func Unavailable(op string, err error) error {
	return &Error{Kind: KindUnavailable, Op: op, Err: err}
}
