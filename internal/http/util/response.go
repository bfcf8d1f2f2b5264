// Package util holds small helpers shared by handlers and middleware.
package util

import (
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/SnipURL/internal/app/apperr"
	"github.com/sifan077/SnipURL/internal/app/ratelimit"
	"go.uber.org/zap"
)

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse struct {
	ErrorCode string                 `json:"error_code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// WriteError renders err as the error envelope, picking the HTTP status from
// the error kind. Unclassified errors are logged and masked as 500s so driver
// internals never reach clients.
func WriteError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	appErr := apperr.From(err)

	switch appErr.Kind {
	case apperr.KindInternal, apperr.KindUnavailable:
		if logger != nil {
			logger.Error("request failed",
				zap.String("path", c.Path()),
				zap.String("error_code", appErr.Code),
				zap.Error(err))
		}
	}

	if appErr.Kind == apperr.KindRateLimited && appErr.RetryAfter > 0 {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(appErr.RetryAfter.Seconds()))))
	}

	return c.Status(appErr.HTTPStatus()).JSON(ErrorResponse{
		ErrorCode: appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		Timestamp: time.Now().UTC(),
	})
}

// SetRateLimitHeaders exposes the current window on the response.
func SetRateLimitHeaders(c *fiber.Ctx, d ratelimit.Decision) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}
