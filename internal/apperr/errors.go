// Package apperr defines the error taxonomy shared by the stores, the
// booking engine and the HTTP layer. Every failure the core reports is an
// *Error carrying a stable code; handlers translate it into a JSON body and
// status code without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInvalidClass       = "INVALID_CLASS"
	CodeSeatsExhausted     = "SEATS_EXHAUSTED"
	CodePersistenceFailure = "PERSISTENCE_FAILURE"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error is a classified failure. Err holds the underlying cause, if any,
// and is never rendered to clients.
type Error struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetails attaches client-visible details and returns the same error.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

func NotFound(resource string, id any) *Error {
	return &Error{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"resource": resource, "id": id},
	}
}

func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message, HTTPStatus: http.StatusConflict}
}

// ConflictCause is Conflict with the driver error kept for logging.
func ConflictCause(message string, err error) *Error {
	e := Conflict(message)
	e.Err = err
	return e
}

func InvalidClass(value string) *Error {
	return &Error{
		Code:       CodeInvalidClass,
		Message:    fmt.Sprintf("invalid class %q", value),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"allowed": []string{"economy", "business", "first"}},
	}
}

func SeatsExhausted(flightID uint64) *Error {
	return &Error{
		Code:       CodeSeatsExhausted,
		Message:    "no seats remaining on this flight",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"flight_id": flightID},
	}
}

// PersistenceFailure reports a ledger write that failed after a seat was
// reserved. The reservation has already been compensated when this is
// returned.
func PersistenceFailure(err error) *Error {
	return &Error{
		Code:       CodePersistenceFailure,
		Message:    "ticket could not be recorded, seat released",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func Validation(message string, details map[string]any) *Error {
	return &Error{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *Error {
	return &Error{Code: CodeInvalidInput, Message: message, HTTPStatus: http.StatusBadRequest}
}

func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

func TooManyRequests(message string) *Error {
	return &Error{Code: CodeTooManyRequests, Message: message, HTTPStatus: http.StatusTooManyRequests}
}

func Internal(message string, err error) *Error {
	return &Error{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// From returns the *Error in err's chain or wraps err as an internal error.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("an unexpected error occurred", err)
}

// Is reports whether err carries an *Error with the given code.
func Is(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
