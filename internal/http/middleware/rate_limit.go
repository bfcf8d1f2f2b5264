package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/SnipURL/internal/app/apperr"
	"github.com/sifan077/SnipURL/internal/app/ratelimit"
	httpUtil "github.com/sifan077/SnipURL/internal/http/util"
	infraprom "github.com/sifan077/SnipURL/internal/infra/prometheus"
	"go.uber.org/zap"
)

// RateLimit gates a route group against its configured policy. The identifier
// is the authenticated user when present, otherwise the client IP.
func RateLimit(limiter *ratelimit.Limiter, endpoint string, metrics *infraprom.Metrics, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := c.IP()
		if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
			identifier = userID
		}

		decision := limiter.Allow(c.Context(), endpoint, identifier)
		httpUtil.SetRateLimitHeaders(c, decision)

		if !decision.Allowed {
			if metrics != nil {
				metrics.RateLimitRejections.WithLabelValues(endpoint).Inc()
			}
			logger.Debug("rate limit exceeded",
				zap.String("endpoint", endpoint),
				zap.String("identifier", identifier))
			return httpUtil.WriteError(c, logger,
				apperr.RateLimited("rate limit exceeded", decision.RetryAfter).
					WithDetail("endpoint", endpoint).
					WithDetail("limit", decision.Limit))
		}

		return c.Next()
	}
}
