package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/SnipURL/internal/app/apperr"
	"github.com/sifan077/SnipURL/internal/app/model"
	"github.com/sifan077/SnipURL/internal/app/service"
	"github.com/sifan077/SnipURL/internal/http/middleware"
	httpUtil "github.com/sifan077/SnipURL/internal/http/util"
	infraprom "github.com/sifan077/SnipURL/internal/infra/prometheus"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by the mapping management handlers.
type APIDeps struct {
	Logger    *zap.Logger
	Shortener service.ShortenService
	Metrics   *infraprom.Metrics
	BaseURL   string
}

// APIHandler implements shortening and mapping management endpoints.
type APIHandler struct {
	logger    *zap.Logger
	shortener service.ShortenService
	metrics   *infraprom.Metrics
	baseURL   string
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:    logger,
		shortener: deps.Shortener,
		metrics:   deps.Metrics,
		baseURL:   strings.TrimRight(deps.BaseURL, "/"),
	}
}

// ShortenRequest represents the request body for creating a mapping.
type ShortenRequest struct {
	URL         string     `json:"url"`
	CustomAlias string     `json:"custom_alias,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// MappingResponse represents one mapping over the API.
type MappingResponse struct {
	ShortURL     string     `json:"short_url"`
	Code         string     `json:"code"`
	LongURL      string     `json:"long_url"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	IsActive     bool       `json:"is_active"`
	TotalClicks  int64      `json:"total_clicks"`
	UniqueClicks int64      `json:"unique_clicks"`
	CreatedAt    time.Time  `json:"created_at"`
}

// BulkShortenRequest represents the request body for bulk creation.
type BulkShortenRequest struct {
	URLs      []string   `json:"urls"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// BulkItemResponse is one per-URL outcome in a bulk response.
type BulkItemResponse struct {
	URL       string           `json:"url"`
	Success   bool             `json:"success"`
	Mapping   *MappingResponse `json:"mapping,omitempty"`
	ErrorCode string           `json:"error_code,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Shorten handles POST /shorten/
func (h *APIHandler) Shorten(c *fiber.Ctx) error {
	var req ShortenRequest
	if err := c.BodyParser(&req); err != nil {
		return httpUtil.WriteError(c, h.logger, apperr.Validation("invalid request body"))
	}

	input := service.CreateInput{
		RawURL:      req.URL,
		CustomAlias: req.CustomAlias,
		ExpiresAt:   req.ExpiresAt,
	}
	if actor, ok := middleware.ActorFromCtx(c); ok {
		input.OwnerID = &actor.ID
	}

	mapping, err := h.shortener.Shorten(h.ctx(c), input)
	if err != nil {
		return httpUtil.WriteError(c, h.logger, err)
	}

	if h.metrics != nil {
		h.metrics.ShortensTotal.Inc()
	}
	return c.Status(fiber.StatusCreated).JSON(h.mappingResponse(mapping))
}

// BulkShorten handles POST /bulk-shorten/
func (h *APIHandler) BulkShorten(c *fiber.Ctx) error {
	var req BulkShortenRequest
	if err := c.BodyParser(&req); err != nil {
		return httpUtil.WriteError(c, h.logger, apperr.Validation("invalid request body"))
	}

	var ownerID *string
	if actor, ok := middleware.ActorFromCtx(c); ok {
		ownerID = &actor.ID
	}

	items, err := h.shortener.BulkShorten(h.ctx(c), req.URLs, req.ExpiresAt, ownerID)
	if err != nil {
		return httpUtil.WriteError(c, h.logger, err)
	}

	results := make([]BulkItemResponse, 0, len(items))
	created := 0
	for _, item := range items {
		out := BulkItemResponse{URL: item.URL}
		if item.Err != nil {
			itemErr := apperr.From(item.Err)
			out.ErrorCode = itemErr.Code
			out.Error = itemErr.Message
		} else {
			out.Success = true
			resp := h.mappingResponse(item.Mapping)
			out.Mapping = &resp
			created++
			if h.metrics != nil {
				h.metrics.ShortensTotal.Inc()
			}
		}
		results = append(results, out)
	}

	status := fiber.StatusOK
	if created < len(items) {
		status = fiber.StatusMultiStatus
	}
	return c.Status(status).JSON(fiber.Map{
		"results":         results,
		"total_requested": len(items),
		"total_created":   created,
		"total_failed":    len(items) - created,
	})
}

// ListURLs handles GET /urls/
func (h *APIHandler) ListURLs(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return httpUtil.WriteError(c, h.logger, apperr.Authentication("authentication required"))
	}

	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 20)

	mappings, total, err := h.shortener.ListOwner(h.ctx(c), actor.ID, page, pageSize)
	if err != nil {
		return httpUtil.WriteError(c, h.logger, err)
	}

	urls := make([]MappingResponse, len(mappings))
	for i := range mappings {
		urls[i] = h.mappingResponse(&mappings[i])
	}

	return c.JSON(fiber.Map{
		"urls":         urls,
		"total_count":  total,
		"page":         page,
		"page_size":    pageSize,
		"has_next":     int64(page*pageSize) < total,
		"has_previous": page > 1,
	})
}

// DeleteURL handles DELETE /urls/:code
func (h *APIHandler) DeleteURL(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return httpUtil.WriteError(c, h.logger, apperr.Authentication("authentication required"))
	}

	code := c.Params("code")
	if code == "" {
		return httpUtil.WriteError(c, h.logger, apperr.ValidationField("code", "code is required"))
	}

	if err := h.shortener.Deactivate(h.ctx(c), code, actor); err != nil {
		return httpUtil.WriteError(c, h.logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateExpiration handles PUT /urls/:code/expiration
func (h *APIHandler) UpdateExpiration(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return httpUtil.WriteError(c, h.logger, apperr.Authentication("authentication required"))
	}

	code := c.Params("code")
	if code == "" {
		return httpUtil.WriteError(c, h.logger, apperr.ValidationField("code", "code is required"))
	}

	raw := c.Query("expires_at")
	if raw == "" {
		return httpUtil.WriteError(c, h.logger, apperr.ValidationField("expires_at", "expires_at is required"))
	}
	expiresAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return httpUtil.WriteError(c, h.logger,
			apperr.ValidationField("expires_at", "expires_at must be RFC3339").WithDetail("value", raw))
	}

	mapping, err := h.shortener.UpdateExpiration(h.ctx(c), code, expiresAt, actor)
	if err != nil {
		return httpUtil.WriteError(c, h.logger, err)
	}
	return c.JSON(h.mappingResponse(mapping))
}

func (h *APIHandler) mappingResponse(m *model.Mapping) MappingResponse {
	return MappingResponse{
		ShortURL:     fmt.Sprintf("%s/%s", h.baseURL, m.Code),
		Code:         m.Code,
		LongURL:      m.LongURL,
		ExpiresAt:    m.ExpiresAt,
		IsActive:     m.IsActive,
		TotalClicks:  m.TotalClicks,
		UniqueClicks: m.UniqueClicks,
		CreatedAt:    m.CreatedAt,
	}
}

func (h *APIHandler) ctx(c *fiber.Ctx) context.Context {
	if ctx := c.UserContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}
