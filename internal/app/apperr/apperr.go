// Package apperr defines the structured error taxonomy shared by services and
// the HTTP layer. Handlers dispatch on Kind to pick an HTTP status instead of
// matching concrete error types.
package apperr

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Kind enumerates the error categories the API can surface.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindExpired
	KindRateLimited
	KindUnavailable
)

// Error carries enough context to render the API error envelope directly.
type Error struct {
	Kind       Kind
	Code       string
	Message    string
	Details    map[string]interface{}
	RetryAfter time.Duration
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps the error kind onto an HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindAuthentication:
		return fiber.StatusUnauthorized
	case KindAuthorization:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict:
		return fiber.StatusConflict
	case KindExpired:
		return fiber.StatusGone
	case KindRateLimited:
		return fiber.StatusTooManyRequests
	case KindUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// WithDetail attaches one detail entry and returns the error for chaining.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause records the underlying error without exposing it to clients.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(message string) *Error {
	return newError(KindValidation, "VALIDATION_ERROR", message)
}

func ValidationField(field, message string) *Error {
	return Validation(message).WithDetail("field", field)
}

func Authentication(message string) *Error {
	return newError(KindAuthentication, "AUTHENTICATION_ERROR", message)
}

func Authorization(message string) *Error {
	return newError(KindAuthorization, "AUTHORIZATION_ERROR", message)
}

func NotFound(message string) *Error {
	return newError(KindNotFound, "NOT_FOUND", message)
}

func Conflict(message string) *Error {
	return newError(KindConflict, "CONFLICT", message)
}

func Expired(message string) *Error {
	return newError(KindExpired, "URL_EXPIRED", message)
}

func RateLimited(message string, retryAfter time.Duration) *Error {
	e := newError(KindRateLimited, "RATE_LIMIT_EXCEEDED", message)
	e.RetryAfter = retryAfter
	return e
}

func Unavailable(message string) *Error {
	return newError(KindUnavailable, "SERVICE_UNAVAILABLE", message)
}

func Internal(message string) *Error {
	return newError(KindInternal, "INTERNAL_ERROR", message)
}

// From extracts an *Error from err, or wraps it as an internal error so the
// HTTP layer never leaks raw driver messages.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("an unexpected error occurred").WithCause(err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
