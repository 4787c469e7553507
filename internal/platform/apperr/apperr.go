// Package apperr defines the error classes shared by domain services and the
// HTTP error handler. Services wrap one of the sentinels with context; the
// handler maps the class to a status code with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrUnauthorized = errors.New("unauthorized")
)

// Validation returns an ErrValidation carrying msg as its text.
func Validation(format string, args ...interface{}) error {
	return &classified{class: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// Forbidden returns an ErrForbidden carrying msg as its text.
func Forbidden(format string, args ...interface{}) error {
	return &classified{class: ErrForbidden, msg: fmt.Sprintf(format, args...)}
}

// NotFound returns an ErrNotFound carrying msg as its text.
func NotFound(format string, args ...interface{}) error {
	return &classified{class: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

// Conflict returns an ErrConflict carrying msg as its text.
func Conflict(format string, args ...interface{}) error {
	return &classified{class: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

// Unauthorized returns an ErrUnauthorized carrying msg as its text.
func Unauthorized(format string, args ...interface{}) error {
	return &classified{class: ErrUnauthorized, msg: fmt.Sprintf(format, args...)}
}

// classified keeps the caller's message verbatim so responses read
// "Doctor not found" rather than "not found: Doctor not found".
type classified struct {
	class error
	msg   string
}

func (e *classified) Error() string { return e.msg }
func (e *classified) Unwrap() error { return e.class }

// StatusCode maps an error class to its HTTP status. Duplicate ids are a
// client error (400), not 409, to stay compatible with existing clients.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
