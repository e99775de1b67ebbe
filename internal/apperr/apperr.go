// Package apperr defines the error kinds shared by every layer of the API.
// Packages wrap these kinds with their own sentinels so handlers can map any
// error to a response without knowing where it came from.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrExpired         = errors.New("expired")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrDelivery        = errors.New("delivery failed")
	ErrTooManyRequests = errors.New("too many requests")
)

// ValidationError reports malformed input. Field is empty when the problem
// isn't tied to a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}

	return e.Field + ": " + e.Message
}

// Validation is a shorthand for building a *ValidationError.
func Validation(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Error pairs a kind with a message that can be shown to clients as is
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func New(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Message returns the text a client gets to see for err. Internal errors are
// never described.
func Message(err error) string {
	if err == nil {
		return ""
	}

	if Status(err) >= http.StatusInternalServerError {
		return "Internal server error"
	}

	var v *ValidationError
	if errors.As(err, &v) {
		return v.Message
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}

	return err.Error()
}

// Field returns the input field err is about, if any
func Field(err error) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Field
	}

	return ""
}

// Status maps an error to the HTTP status code it should be answered with.
// Expired codes are a client mistake, so they share 400 with validation
// errors and are told apart by the message.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err), errors.Is(err, ErrExpired):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
