package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/SnipURL/internal/app/apperr"
	"github.com/sifan077/SnipURL/internal/app/service"
	"github.com/sifan077/SnipURL/internal/http/middleware"
	httpUtil "github.com/sifan077/SnipURL/internal/http/util"
	infraprom "github.com/sifan077/SnipURL/internal/infra/prometheus"
	"go.uber.org/zap"
)

// RedirectDeps groups dependencies required by the redirect handler.
type RedirectDeps struct {
	Logger    *zap.Logger
	Shortener service.ShortenService
	Analytics service.AnalyticsService
	Metrics   *infraprom.Metrics
}

// RedirectHandler resolves short codes and records click events.
type RedirectHandler struct {
	logger    *zap.Logger
	shortener service.ShortenService
	analytics service.AnalyticsService
	metrics   *infraprom.Metrics
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:    logger,
		shortener: deps.Shortener,
		analytics: deps.Analytics,
		metrics:   deps.Metrics,
	}
}

// Resolve handles GET /:code and issues the redirect.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return httpUtil.WriteError(c, h.logger, apperr.ValidationField("code", "missing short code"))
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	mapping, err := h.shortener.Resolve(ctx, code)
	if err != nil {
		return httpUtil.WriteError(c, h.logger, err)
	}

	// Fire-and-forget: the redirect never waits on analytics durability.
	if h.analytics != nil {
		ip := c.IP()
		userAgent := c.Get(fiber.HeaderUserAgent)
		referrer := c.Get(fiber.HeaderReferer)
		var userID *string
		if actor, ok := middleware.ActorFromCtx(c); ok {
			userID = &actor.ID
		}
		go h.analytics.Record(code, ip, userAgent, referrer, userID)
	}

	if h.metrics != nil {
		h.metrics.RedirectsTotal.Inc()
	}

	h.logger.Debug("redirecting short link",
		zap.String("code", code), zap.String("target", mapping.LongURL))
	return c.Redirect(mapping.LongURL, fiber.StatusFound)
}
