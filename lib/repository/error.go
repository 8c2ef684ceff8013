package repository

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode),
// an error message and optionally the underlying cause.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
	Err  error   // The cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("RepositoryError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("RepositoryError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the cause of the error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code. This makes the
// sentinels below usable with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// wrapError creates a new Error with the given code, message and cause.
func wrapError(code RetCode, msg string, err error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// Sentinels for errors.Is, only the code is compared.
var (
	ErrConfig      = NewError(RetCConfigError, "configuration error")
	ErrExternal    = NewError(RetCExternalError, "external store error")
	ErrInvalidPath = NewError(RetCInvalidPath, "invalid path")
	ErrEncoding    = NewError(RetCEncodingError, "encoding error")
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

// RetCode is a custom type for return codes.
type RetCode int

const (
	// RetCSuccess indicates the operation was successful.
	RetCSuccess RetCode = iota
	// RetCInternalError indicates an unexpected failure inside the repository.
	RetCInternalError
	// RetCConfigError indicates a missing hook or an invalid namespace.
	// These errors are never retried.
	RetCConfigError
	// RetCExternalError indicates that a fetch or write hook (or the cookie medium) failed.
	RetCExternalError
	// RetCInvalidPath indicates a malformed path.
	RetCInvalidPath
	// RetCEncodingError indicates that the repository could not be serialized.
	RetCEncodingError
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCConfigError:
		return "ConfigError"
	case RetCExternalError:
		return "ExternalError"
	case RetCInvalidPath:
		return "InvalidPath"
	case RetCEncodingError:
		return "EncodingError"
	default:
		return "Unknown"
	}
}
