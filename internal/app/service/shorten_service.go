package service

import (
	"context"
	"errors"
	"time"

	"github.com/sifan077/SnipURL/internal/app/apperr"
	"github.com/sifan077/SnipURL/internal/app/model"
	"github.com/sifan077/SnipURL/internal/app/repository"
	"go.uber.org/zap"
)

// Actor identifies the authenticated requester for ownership checks.
type Actor struct {
	ID    string
	Admin bool
}

// CreateInput captures data required to create a mapping.
type CreateInput struct {
	RawURL      string
	CustomAlias string
	ExpiresAt   *time.Time
	OwnerID     *string
}

// BulkItem is the per-URL outcome of a bulk shorten request.
type BulkItem struct {
	URL     string
	Mapping *model.Mapping
	Err     error
}

// ShortenService implements the mapping lifecycle: creation with alias
// generation, redirect resolution, owner listing and ownership-checked
// mutation.
type ShortenService interface {
	Shorten(ctx context.Context, input CreateInput) (*model.Mapping, error)
	BulkShorten(ctx context.Context, urls []string, expiresAt *time.Time, ownerID *string) ([]BulkItem, error)
	Resolve(ctx context.Context, code string) (*model.Mapping, error)
	ListOwner(ctx context.Context, ownerID string, page, pageSize int) ([]model.Mapping, int64, error)
	UpdateExpiration(ctx context.Context, code string, expiresAt time.Time, actor Actor) (*model.Mapping, error)
	Deactivate(ctx context.Context, code string, actor Actor) error
}

type shortenService struct {
	repo        repository.MappingRepository
	validator   *URLValidator
	generator   *AliasGenerator
	filter      *CodeFilter
	maxAttempts int
	bulkMax     int
	logger      *zap.Logger
	now         func() time.Time
}

// ShortenDeps groups the collaborators of the shorten service.
type ShortenDeps struct {
	Mappings    repository.MappingRepository
	Validator   *URLValidator
	Generator   *AliasGenerator
	Filter      *CodeFilter
	MaxAttempts int
	BulkMaxURLs int
	Logger      *zap.Logger
}

// NewShortenService wires a shorten service from its dependencies.
func NewShortenService(deps ShortenDeps) ShortenService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxAttempts := deps.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxRetry
	}
	bulkMax := deps.BulkMaxURLs
	if bulkMax <= 0 {
		bulkMax = 50
	}
	return &shortenService{
		repo:        deps.Mappings,
		validator:   deps.Validator,
		generator:   deps.Generator,
		filter:      deps.Filter,
		maxAttempts: maxAttempts,
		bulkMax:     bulkMax,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *shortenService) Shorten(ctx context.Context, input CreateInput) (*model.Mapping, error) {
	normalized, err := s.validator.Validate(ctx, input.RawURL)
	if err != nil {
		return nil, err
	}

	if input.ExpiresAt != nil && !input.ExpiresAt.After(s.now()) {
		return nil, apperr.ValidationField("expires_at", "expiration date must be in the future")
	}

	if input.CustomAlias != "" {
		return s.createCustom(ctx, normalized, input)
	}
	return s.createGenerated(ctx, normalized, input)
}

func (s *shortenService) createCustom(ctx context.Context, normalized string, input CreateInput) (*model.Mapping, error) {
	if err := s.generator.ValidateCustom(input.CustomAlias); err != nil {
		return nil, err
	}

	mapping := &model.Mapping{
		Code:        input.CustomAlias,
		LongURL:     normalized,
		OwnerID:     input.OwnerID,
		CustomAlias: true,
		ExpiresAt:   input.ExpiresAt,
		IsActive:    true,
	}

	if err := s.repo.Create(ctx, mapping); err != nil {
		if errors.Is(err, repository.ErrCodeTaken) {
			return nil, apperr.Conflict("custom alias is already taken").
				WithDetail("custom_alias", input.CustomAlias)
		}
		return nil, storeError("create mapping", err)
	}

	s.rememberCode(mapping.Code)
	return mapping, nil
}

func (s *shortenService) createGenerated(ctx context.Context, normalized string, input CreateInput) (*model.Mapping, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		code, err := s.generator.Random()
		if err != nil {
			return nil, apperr.Internal("failed to generate short code").WithCause(err)
		}

		// The filter catches most collisions before the round trip; the
		// insert's uniqueness constraint settles races.
		if s.filter != nil && s.filter.MayExist(code) {
			continue
		}

		mapping := &model.Mapping{
			Code:      code,
			LongURL:   normalized,
			OwnerID:   input.OwnerID,
			ExpiresAt: input.ExpiresAt,
			IsActive:  true,
		}

		err = s.repo.Create(ctx, mapping)
		if err == nil {
			s.rememberCode(code)
			return mapping, nil
		}
		if errors.Is(err, repository.ErrCodeTaken) {
			s.logger.Debug("short code collision, retrying", zap.String("code", code))
			continue
		}
		return nil, storeError("create mapping", err)
	}

	return nil, apperr.Unavailable("could not generate a unique short code").
		WithDetail("attempts", s.maxAttempts)
}

func (s *shortenService) BulkShorten(ctx context.Context, urls []string, expiresAt *time.Time, ownerID *string) ([]BulkItem, error) {
	if len(urls) == 0 {
		return nil, apperr.ValidationField("urls", "urls must not be empty")
	}
	if len(urls) > s.bulkMax {
		return nil, apperr.ValidationField("urls", "too many urls in one request").
			WithDetail("max", s.bulkMax).
			WithDetail("got", len(urls))
	}

	items := make([]BulkItem, 0, len(urls))
	for _, raw := range urls {
		mapping, err := s.Shorten(ctx, CreateInput{
			RawURL:    raw,
			ExpiresAt: expiresAt,
			OwnerID:   ownerID,
		})
		items = append(items, BulkItem{URL: raw, Mapping: mapping, Err: err})
	}
	return items, nil
}

func (s *shortenService) Resolve(ctx context.Context, code string) (*model.Mapping, error) {
	if s.filter != nil && !s.filter.MayExist(code) {
		return nil, apperr.NotFound("short link not found").WithDetail("code", code)
	}

	mapping, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return nil, apperr.NotFound("short link not found").WithDetail("code", code)
		}
		return nil, storeError("load mapping", err)
	}

	// Expired wins over deactivated so a swept mapping still reports 410.
	if mapping.Expired(s.now()) {
		return nil, apperr.Expired("short link has expired").
			WithDetail("code", code).
			WithDetail("expired_at", mapping.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if !mapping.IsActive {
		return nil, apperr.NotFound("short link not found").WithDetail("code", code)
	}

	return mapping, nil
}

func (s *shortenService) ListOwner(ctx context.Context, ownerID string, page, pageSize int) ([]model.Mapping, int64, error) {
	if page < 1 {
		return nil, 0, apperr.ValidationField("page", "page must be positive")
	}
	if pageSize < 1 || pageSize > 100 {
		return nil, 0, apperr.ValidationField("page_size", "page_size must be between 1 and 100")
	}

	mappings, total, err := s.repo.ListByOwner(ctx, ownerID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, storeError("list mappings", err)
	}
	return mappings, total, nil
}

func (s *shortenService) UpdateExpiration(ctx context.Context, code string, expiresAt time.Time, actor Actor) (*model.Mapping, error) {
	if !expiresAt.After(s.now()) {
		return nil, apperr.ValidationField("expires_at", "expiration date must be in the future")
	}

	mapping, err := s.loadOwned(ctx, code, actor)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateExpiration(ctx, code, expiresAt); err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return nil, apperr.NotFound("short link not found").WithDetail("code", code)
		}
		return nil, storeError("update expiration", err)
	}

	mapping.ExpiresAt = &expiresAt
	return mapping, nil
}

func (s *shortenService) Deactivate(ctx context.Context, code string, actor Actor) error {
	if _, err := s.loadOwned(ctx, code, actor); err != nil {
		return err
	}

	if err := s.repo.Deactivate(ctx, code); err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return apperr.NotFound("short link not found").WithDetail("code", code)
		}
		return storeError("deactivate mapping", err)
	}
	return nil
}

// loadOwned fetches the mapping and enforces the mutation policy: owners and
// admins only. Anonymous mappings are immutable except by admins.
func (s *shortenService) loadOwned(ctx context.Context, code string, actor Actor) (*model.Mapping, error) {
	mapping, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return nil, apperr.NotFound("short link not found").WithDetail("code", code)
		}
		return nil, storeError("load mapping", err)
	}

	if actor.Admin || mapping.OwnedBy(actor.ID) {
		return mapping, nil
	}
	return nil, apperr.Authorization("you can only modify your own short links")
}

func (s *shortenService) rememberCode(code string) {
	if s.filter != nil {
		s.filter.Add(code)
	}
}

func storeError(operation string, err error) error {
	return apperr.Unavailable("datastore operation failed").
		WithDetail("operation", operation).
		WithCause(err)
}
