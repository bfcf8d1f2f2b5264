package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	infraprom "github.com/sifan077/SnipURL/internal/infra/prometheus"
)

// Metrics counts every request by method, matched route and status.
func Metrics(metrics *infraprom.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(
			c.Method(),
			route,
			strconv.Itoa(c.Response().StatusCode()),
		).Inc()

		return err
	}
}
