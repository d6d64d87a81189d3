package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable machine-readable identifier attached to every
// error the service returns. UIs switch on the code, never on the message.
type ErrorCode string

const (
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeAlreadyExists   ErrorCode = "ALREADY_EXISTS"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeNotATenant      ErrorCode = "NOT_A_TENANT"
	CodeAccessDenied    ErrorCode = "ACCESS_DENIED"
	CodeDirectory       ErrorCode = "DIRECTORY_ERROR"
)

// Error pairs an ErrorCode with a human-readable message.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on the code, so errors.Is(err, domain.ErrNotFound) works no
// matter how deeply the error has been wrapped.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// Canonical instances for errors.Is comparisons.
var (
	ErrInvalidArgument = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrAlreadyExists   = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrNotFound        = &Error{Code: CodeNotFound, Message: "not found"}
	ErrNotATenant      = &Error{Code: CodeNotATenant, Message: "not a tenant"}
	ErrAccessDenied    = &Error{Code: CodeAccessDenied, Message: "access denied"}
)

func InvalidArgument(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func AlreadyExists(format string, args ...any) *Error {
	return &Error{Code: CodeAlreadyExists, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func NotATenant(format string, args ...any) *Error {
	return &Error{Code: CodeNotATenant, Message: fmt.Sprintf(format, args...)}
}

func AccessDenied(format string, args ...any) *Error {
	return &Error{Code: CodeAccessDenied, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode from err, unwrapping as needed.
// DirectoryError collapses to CodeNotFound for 404 answers and
// CodeDirectory for everything else. Unknown errors yield "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var de *DirectoryError
	if errors.As(err, &de) {
		if de.NotFound() {
			return CodeNotFound
		}
		return CodeDirectory
	}
	return ""
}
