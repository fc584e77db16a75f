// Package errors defines the coded errors shared by the CLI, the API server
// and the editor session.
//
// Every failure that crosses a package boundary carries a [Code]. The API
// maps codes to HTTP statuses with [HTTPStatus] and reports them in the
// response body; the CLI prints [UserMessage] and exits non-zero.
//
//	err := errors.New(errors.ErrCodeInvalidCategory, "unknown layer category: %s", name)
//	if errors.Is(err, errors.ErrCodeInvalidCategory) {
//	    ...
//	}
//
//	err = errors.Wrap(errors.ErrCodeStore, cause, "save fit %s", itemID)
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidCategory  Code = "INVALID_CATEGORY"
	ErrCodeInvalidPose      Code = "INVALID_POSE"
	ErrCodeInvalidTransform Code = "INVALID_TRANSFORM"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"
	ErrCodeInvalidPath      Code = "INVALID_PATH"

	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodePoseNotFound Code = "POSE_NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	ErrCodeTextureLoad Code = "TEXTURE_LOAD"
	ErrCodeGeometry    Code = "GEOMETRY"

	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"
	ErrCodeStore   Code = "STORE_ERROR"

	ErrCodeUnauthorized Code = "UNAUTHORIZED"

	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

var statusByCode = map[Code]int{
	ErrCodeInvalidInput:     http.StatusBadRequest,
	ErrCodeInvalidCategory:  http.StatusBadRequest,
	ErrCodeInvalidPose:      http.StatusBadRequest,
	ErrCodeInvalidTransform: http.StatusBadRequest,
	ErrCodeInvalidFormat:    http.StatusBadRequest,
	ErrCodeInvalidPath:      http.StatusBadRequest,
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodePoseNotFound:     http.StatusNotFound,
	ErrCodeFileNotFound:     http.StatusNotFound,
	ErrCodeTextureLoad:      http.StatusUnprocessableEntity,
	ErrCodeGeometry:         http.StatusUnprocessableEntity,
	ErrCodeNetwork:          http.StatusBadGateway,
	ErrCodeStore:            http.StatusBadGateway,
	ErrCodeTimeout:          http.StatusGatewayTimeout,
	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeUnsupported:      http.StatusNotImplemented,
}

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an error with code and a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error with code that wraps cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether any coded error in err's chain has code. A
// STORE_ERROR wrapping a TIMEOUT matches both.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// As is [errors.As], re-exported so callers need one errors import.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode returns the outermost code in err's chain, or "".
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of the outermost coded error, without
// the code prefix, or err.Error() for uncoded errors.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps err to the status the API responds with. Uncoded
// deadline errors map to 504; anything else uncoded maps to 500.
func HTTPStatus(err error) int {
	if s, ok := statusByCode[GetCode(err)]; ok {
		return s
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
