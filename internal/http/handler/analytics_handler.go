package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/SnipURL/internal/app/apperr"
	"github.com/sifan077/SnipURL/internal/app/service"
	"github.com/sifan077/SnipURL/internal/http/middleware"
	httpUtil "github.com/sifan077/SnipURL/internal/http/util"
	"go.uber.org/zap"
)

// AnalyticsDeps groups dependencies required by the analytics handlers.
type AnalyticsDeps struct {
	Logger    *zap.Logger
	Analytics service.AnalyticsService
}

// AnalyticsHandler exposes aggregation endpoints per code, per user and global.
type AnalyticsHandler struct {
	logger    *zap.Logger
	analytics service.AnalyticsService
}

// NewAnalyticsHandler creates an analytics handler with the provided dependencies.
func NewAnalyticsHandler(deps AnalyticsDeps) *AnalyticsHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsHandler{logger: logger, analytics: deps.Analytics}
}

// URLAnalytics handles GET /analytics/url/:code
func (h *AnalyticsHandler) URLAnalytics(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return httpUtil.WriteError(c, h.logger, apperr.ValidationField("code", "code is required"))
	}

	from, to, err := parseRange(c)
	if err != nil {
		return httpUtil.WriteError(c, h.logger, err)
	}

	var actor *service.Actor
	if a, ok := middleware.ActorFromCtx(c); ok {
		actor = &a
	}

	stats, err := h.analytics.AggregateCode(reqCtx(c), code, actor, from, to)
	if err != nil {
		return httpUtil.WriteError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{
		"code":      code,
		"analytics": stats,
		"period":    periodMap(from, to),
	})
}

// UserAnalytics handles GET /analytics/user
func (h *AnalyticsHandler) UserAnalytics(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return httpUtil.WriteError(c, h.logger, apperr.Authentication("authentication required"))
	}

	from, to, err := parseRange(c)
	if err != nil {
		return httpUtil.WriteError(c, h.logger, err)
	}

	stats, err := h.analytics.AggregateOwner(reqCtx(c), actor, from, to)
	if err != nil {
		return httpUtil.WriteError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{
		"user_id":   actor.ID,
		"analytics": stats,
		"period":    periodMap(from, to),
	})
}

// GlobalAnalytics handles GET /analytics/global
func (h *AnalyticsHandler) GlobalAnalytics(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return httpUtil.WriteError(c, h.logger, apperr.Authentication("authentication required"))
	}

	from, to, err := parseRange(c)
	if err != nil {
		return httpUtil.WriteError(c, h.logger, err)
	}

	stats, err := h.analytics.AggregateGlobal(reqCtx(c), actor, from, to)
	if err != nil {
		return httpUtil.WriteError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{
		"analytics": stats,
		"period":    periodMap(from, to),
	})
}

// parseRange reads start_date/end_date query params as RFC3339 timestamps or
// bare dates.
func parseRange(c *fiber.Ctx) (*time.Time, *time.Time, error) {
	from, err := parseDate(c.Query("start_date"), "start_date", false)
	if err != nil {
		return nil, nil, err
	}
	to, err := parseDate(c.Query("end_date"), "end_date", true)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func parseDate(raw, field string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	return nil, apperr.ValidationField(field, "must be RFC3339 or YYYY-MM-DD").WithDetail("value", raw)
}

func periodMap(from, to *time.Time) fiber.Map {
	m := fiber.Map{"start_date": nil, "end_date": nil}
	if from != nil {
		m["start_date"] = from.UTC().Format(time.RFC3339)
	}
	if to != nil {
		m["end_date"] = to.UTC().Format(time.RFC3339)
	}
	return m
}

func reqCtx(c *fiber.Ctx) context.Context {
	if ctx := c.UserContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}
