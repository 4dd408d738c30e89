package coordinator

import (
	"errors"
	"fmt"

	"reprieve/internal/types"
)

type ErrorKind string

const (
	ErrorInvalidRequest ErrorKind = "invalid_request"
	ErrorTooLate        ErrorKind = "too_late"
	ErrorStorageFailure ErrorKind = "storage_failure"
	ErrorClosed         ErrorKind = "closed"
)

// Error is the coordinator's error type. Sentinels match by kind:
// errors.Is(err, ErrTooLate) holds for every too-late error.
type Error struct {
	Kind    ErrorKind
	Scope   types.Scope
	Token   string
	Message string
	Err     error
}

var (
	ErrInvalidRequest = &Error{Kind: ErrorInvalidRequest}
	ErrTooLate        = &Error{Kind: ErrorTooLate}
	ErrStorageFailure = &Error{Kind: ErrorStorageFailure}
	ErrClosed         = &Error{Kind: ErrorClosed}
)

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// KindOf returns the coordinator error kind of err, or "" when err is not a
// coordinator error.
func KindOf(err error) ErrorKind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return ""
}

func invalidRequestError(scope types.Scope, token, message string) *Error {
	return &Error{Kind: ErrorInvalidRequest, Scope: scope, Token: token, Message: message}
}

func tooLateError(scope types.Scope, token string, state types.EpisodeState) *Error {
	return &Error{Kind: ErrorTooLate, Scope: scope, Token: token, Message: fmt.Sprintf("too late to undo: deletion is %s", state)}
}

func storageFailureError(scope types.Scope, token string, err error) *Error {
	return &Error{Kind: ErrorStorageFailure, Scope: scope, Token: token, Message: "delete failed", Err: err}
}

func closedError() *Error {
	return &Error{Kind: ErrorClosed, Message: "deletion coordinator is closed"}
}
