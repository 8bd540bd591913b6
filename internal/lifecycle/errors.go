package lifecycle

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindStageNotFound    Kind = "stage_not_found"
	KindForbidden        Kind = "forbidden"
	KindValidation       Kind = "validation_error"
	KindInvalidReference Kind = "invalid_reference"
	KindInvalidState     Kind = "invalid_state"
	KindConflict         Kind = "conflict"
)

// Error is a caller-recoverable failure of a lifecycle operation.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches on Kind only, so errors.Is(err, ErrForbidden) holds for any
// forbidden error regardless of its message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrStageNotFound    = &Error{Kind: KindStageNotFound}
	ErrForbidden        = &Error{Kind: KindForbidden}
	ErrValidation       = &Error{Kind: KindValidation}
	ErrInvalidReference = &Error{Kind: KindInvalidReference}
	ErrInvalidState     = &Error{Kind: KindInvalidState}
	ErrConflict         = &Error{Kind: KindConflict}
)

func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a lifecycle error anywhere in err's chain, or ""
// for infrastructure errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
