package apperr

import (
	"errors"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Validation("bad input"), fiber.StatusBadRequest},
		{Authentication("who are you"), fiber.StatusUnauthorized},
		{Authorization("not yours"), fiber.StatusForbidden},
		{NotFound("missing"), fiber.StatusNotFound},
		{Conflict("taken"), fiber.StatusConflict},
		{Expired("too late"), fiber.StatusGone},
		{RateLimited("slow down", time.Second), fiber.StatusTooManyRequests},
		{Unavailable("later"), fiber.StatusServiceUnavailable},
		{Internal("oops"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tt.err.HTTPStatus(); got != tt.want {
			t.Errorf("%s: expected status %d, got %d", tt.err.Code, tt.want, got)
		}
	}
}

func TestErrorCodes(t *testing.T) {
	if Validation("x").Code != "VALIDATION_ERROR" {
		t.Error("unexpected validation code")
	}
	if Expired("x").Code != "URL_EXPIRED" {
		t.Error("unexpected expired code")
	}
	if RateLimited("x", 0).Code != "RATE_LIMIT_EXCEEDED" {
		t.Error("unexpected rate limit code")
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("url", "url must not be empty")
	if err.Details["field"] != "url" {
		t.Fatalf("expected field detail, got %v", err.Details)
	}
}

func TestWithDetailAndCause(t *testing.T) {
	cause := errors.New("driver: connection reset")
	err := Unavailable("datastore operation failed").
		WithDetail("operation", "create mapping").
		WithCause(cause)

	if err.Details["operation"] != "create mapping" {
		t.Fatalf("expected operation detail, got %v", err.Details)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to unwrap")
	}
}

func TestFrom(t *testing.T) {
	original := NotFound("missing")
	if got := From(original); got != original {
		t.Fatal("expected From to return the original *Error")
	}

	wrapped := From(errors.New("raw driver error"))
	if wrapped.Kind != KindInternal {
		t.Fatalf("expected internal kind, got %v", wrapped.Kind)
	}
	if wrapped.Message == "raw driver error" {
		t.Fatal("raw error text must not leak into the client message")
	}
}

func TestIsKind(t *testing.T) {
	err := Conflict("taken")
	if !IsKind(err, KindConflict) {
		t.Fatal("expected IsKind to match")
	}
	if IsKind(err, KindNotFound) {
		t.Fatal("expected IsKind to reject a different kind")
	}
	if IsKind(errors.New("plain"), KindConflict) {
		t.Fatal("expected IsKind to reject plain errors")
	}
}

func TestRateLimitedRetryAfter(t *testing.T) {
	err := RateLimited("slow down", 42*time.Second)
	if err.RetryAfter != 42*time.Second {
		t.Fatalf("expected retry-after to be carried, got %v", err.RetryAfter)
	}
}
