package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/SnipURL/internal/app/apperr"
	"github.com/sifan077/SnipURL/internal/app/model"
	"github.com/sifan077/SnipURL/internal/app/repository"
	"go.uber.org/zap"
)

// ClickSink receives click events for asynchronous persistence. The JetStream
// publisher implements it in production.
type ClickSink interface {
	Publish(event model.ClickEvent) error
}

// AnalyticsService records clicks (best-effort) and aggregates them with
// per-scope authorization.
type AnalyticsService interface {
	// Record never returns an error: analytics must not affect the redirect.
	Record(code, ip, userAgent, referrer string, userID *string)
	AggregateCode(ctx context.Context, code string, actor *Actor, from, to *time.Time) (*model.ClickStats, error)
	AggregateOwner(ctx context.Context, actor Actor, from, to *time.Time) (*model.ClickStats, error)
	AggregateGlobal(ctx context.Context, actor Actor, from, to *time.Time) (*model.ClickStats, error)
}

type analyticsService struct {
	sink     ClickSink
	clicks   repository.ClickEventRepository
	mappings repository.MappingRepository
	logger   *zap.Logger
	now      func() time.Time
}

// AnalyticsDeps groups the collaborators of the analytics service.
type AnalyticsDeps struct {
	Sink     ClickSink
	Clicks   repository.ClickEventRepository
	Mappings repository.MappingRepository
	Logger   *zap.Logger
}

// NewAnalyticsService wires an analytics service from its dependencies.
func NewAnalyticsService(deps AnalyticsDeps) AnalyticsService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &analyticsService{
		sink:     deps.Sink,
		clicks:   deps.Clicks,
		mappings: deps.Mappings,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *analyticsService) Record(code, ip, userAgent, referrer string, userID *string) {
	if s.sink == nil {
		return
	}

	event := model.ClickEvent{
		ID:        uuid.New().String(),
		Code:      code,
		IP:        ip,
		UserAgent: userAgent,
		Referrer:  referrer,
		UserID:    userID,
		Timestamp: s.now().UTC(),
	}

	if err := s.sink.Publish(event); err != nil {
		// Swallowed: the redirect already went out.
		s.logger.Error("failed to publish click event",
			zap.String("code", code), zap.Error(err))
	}
}

func (s *analyticsService) AggregateCode(ctx context.Context, code string, actor *Actor, from, to *time.Time) (*model.ClickStats, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	mapping, err := s.mappings.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return nil, apperr.NotFound("short link not found").WithDetail("code", code)
		}
		return nil, storeError("load mapping", err)
	}

	// Owned mappings expose analytics to their owner and admins only;
	// anonymous mappings have no owner to restrict to.
	if mapping.OwnerID != nil {
		if actor == nil {
			return nil, apperr.Authentication("authentication required")
		}
		if !actor.Admin && !mapping.OwnedBy(actor.ID) {
			return nil, apperr.Authorization("you can only view analytics for your own short links")
		}
	}

	return s.aggregate(ctx, model.ClickFilter{Codes: []string{code}, From: from, To: to})
}

func (s *analyticsService) AggregateOwner(ctx context.Context, actor Actor, from, to *time.Time) (*model.ClickStats, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	codes, err := s.mappings.CodesByOwner(ctx, actor.ID)
	if err != nil {
		return nil, storeError("list owner codes", err)
	}
	if len(codes) == 0 {
		return &model.ClickStats{
			ByDay:       []model.DayCount{},
			ByReferrer:  []model.LabelCount{},
			ByUserAgent: []model.LabelCount{},
		}, nil
	}

	return s.aggregate(ctx, model.ClickFilter{Codes: codes, From: from, To: to})
}

func (s *analyticsService) AggregateGlobal(ctx context.Context, actor Actor, from, to *time.Time) (*model.ClickStats, error) {
	if !actor.Admin {
		return nil, apperr.Authorization("global analytics require the admin role")
	}
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	return s.aggregate(ctx, model.ClickFilter{From: from, To: to})
}

func (s *analyticsService) aggregate(ctx context.Context, filter model.ClickFilter) (*model.ClickStats, error) {
	stats, err := s.clicks.Aggregate(ctx, filter)
	if err != nil {
		return nil, storeError("aggregate clicks", err)
	}
	return stats, nil
}

func validateRange(from, to *time.Time) error {
	if from != nil && to != nil && !from.Before(*to) {
		return apperr.ValidationField("date_range", "start date must be before end date")
	}
	return nil
}
