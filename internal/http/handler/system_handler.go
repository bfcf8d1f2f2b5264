package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/SnipURL/internal/app/apperr"
	"github.com/sifan077/SnipURL/internal/app/ratelimit"
	"github.com/sifan077/SnipURL/internal/http/middleware"
	httpUtil "github.com/sifan077/SnipURL/internal/http/util"
	"go.uber.org/zap"
)

const healthCheckTimeout = 3 * time.Second

// SystemDeps groups dependencies required by the health and introspection
// handlers.
type SystemDeps struct {
	Logger  *zap.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	NATS    *nats.Conn
	Limiter *ratelimit.Limiter
}

// SystemHandler exposes health and rate-limit introspection endpoints.
type SystemHandler struct {
	logger  *zap.Logger
	pool    *pgxpool.Pool
	redis   *redis.Client
	nats    *nats.Conn
	limiter *ratelimit.Limiter
}

// NewSystemHandler creates a system handler with the provided dependencies.
func NewSystemHandler(deps SystemDeps) *SystemHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemHandler{
		logger:  logger,
		pool:    deps.Pool,
		redis:   deps.Redis,
		nats:    deps.NATS,
		limiter: deps.Limiter,
	}
}

// Info handles GET / with a minimal service banner.
func (h *SystemHandler) Info(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "SnipURL",
		"status":  "ok",
		"links": fiber.Map{
			"health":      "/health",
			"rate_limits": "/rate-limits/config",
		},
	})
}

// Health handles GET /health and reports per-dependency status.
func (h *SystemHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(reqCtx(c), healthCheckTimeout)
	defer cancel()

	checks := fiber.Map{}
	healthy := true

	if h.pool != nil {
		if err := h.pool.Ping(ctx); err != nil {
			healthy = false
			checks["postgres"] = fiber.Map{"status": "down", "error": err.Error()}
		} else {
			stat := h.pool.Stat()
			checks["postgres"] = fiber.Map{
				"status":            "up",
				"total_conns":       stat.TotalConns(),
				"idle_conns":        stat.IdleConns(),
				"acquired_conns":    stat.AcquiredConns(),
				"constructing_conn": stat.ConstructingConns(),
			}
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			healthy = false
			checks["redis"] = fiber.Map{"status": "down", "error": err.Error()}
		} else {
			checks["redis"] = fiber.Map{"status": "up"}
		}
	}

	if h.nats != nil {
		if h.nats.Status() != nats.CONNECTED {
			healthy = false
			checks["nats"] = fiber.Map{"status": "down", "state": h.nats.Status().String()}
		} else {
			checks["nats"] = fiber.Map{"status": "up"}
		}
	}

	status := "healthy"
	httpStatus := fiber.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = fiber.StatusServiceUnavailable
		h.logger.Warn("health check reported degraded dependencies")
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// RateLimitStatus handles GET /rate-limits/status. It reports the caller's
// current window without consuming a request. An explicit identifier query
// param overrides the caller's own identity.
func (h *SystemHandler) RateLimitStatus(c *fiber.Ctx) error {
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		return httpUtil.WriteError(c, h.logger, apperr.ValidationField("endpoint", "endpoint is required"))
	}

	identifier := c.Query("identifier")
	if identifier == "" {
		if actor, ok := middleware.ActorFromCtx(c); ok {
			identifier = actor.ID
		} else {
			identifier = c.IP()
		}
	}

	decision, err := h.limiter.Status(reqCtx(c), endpoint, identifier)
	if err != nil {
		return httpUtil.WriteError(c, h.logger,
			apperr.Unavailable("rate limit store unavailable").WithCause(err))
	}

	policy := h.limiter.Policy(endpoint)
	return c.JSON(fiber.Map{
		"endpoint":       endpoint,
		"identifier":     identifier,
		"limit":          decision.Limit,
		"remaining":      decision.Remaining,
		"window_seconds": policy.WindowSeconds(),
		"reset_at":       decision.ResetAt.UTC().Format(time.RFC3339),
	})
}

// RateLimitConfig handles GET /rate-limits/config and lists every policy.
func (h *SystemHandler) RateLimitConfig(c *fiber.Ctx) error {
	policies := h.limiter.Policies()

	out := make([]fiber.Map, 0, len(policies))
	for _, p := range policies {
		out = append(out, fiber.Map{
			"endpoint":       p.Endpoint,
			"requests":       p.Requests,
			"window_seconds": p.WindowSeconds(),
		})
	}
	return c.JSON(fiber.Map{"policies": out})
}
