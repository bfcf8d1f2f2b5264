package service

import (
	"context"
	"testing"
	"time"

	"github.com/sifan077/SnipURL/config"
	"github.com/sifan077/SnipURL/internal/app/apperr"
	"github.com/sifan077/SnipURL/internal/app/model"
	"github.com/sifan077/SnipURL/internal/app/repository"
)

type mockMappingRepository struct {
	createFn        func(ctx context.Context, mapping *model.Mapping) error
	getFn           func(ctx context.Context, code string) (*model.Mapping, error)
	listFn          func(ctx context.Context, ownerID string, offset, limit int) ([]model.Mapping, int64, error)
	updateExpFn     func(ctx context.Context, code string, expiresAt time.Time) error
	deactivateFn    func(ctx context.Context, code string) error
	deactivateExpFn func(ctx context.Context, before time.Time) (int64, error)
	codeExistsFn    func(ctx context.Context, code string) (bool, error)
	codesFn         func(ctx context.Context) ([]string, error)
	codesByOwnerFn  func(ctx context.Context, ownerID string) ([]string, error)
	recordClickFn   func(ctx context.Context, code string, at time.Time, unique bool) error
}

func (m *mockMappingRepository) Create(ctx context.Context, mapping *model.Mapping) error {
	if m.createFn != nil {
		return m.createFn(ctx, mapping)
	}
	return nil
}

func (m *mockMappingRepository) GetByCode(ctx context.Context, code string) (*model.Mapping, error) {
	if m.getFn != nil {
		return m.getFn(ctx, code)
	}
	return nil, repository.ErrMappingNotFound
}

func (m *mockMappingRepository) ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]model.Mapping, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockMappingRepository) UpdateExpiration(ctx context.Context, code string, expiresAt time.Time) error {
	if m.updateExpFn != nil {
		return m.updateExpFn(ctx, code, expiresAt)
	}
	return nil
}

func (m *mockMappingRepository) Deactivate(ctx context.Context, code string) error {
	if m.deactivateFn != nil {
		return m.deactivateFn(ctx, code)
	}
	return nil
}

func (m *mockMappingRepository) DeactivateExpired(ctx context.Context, before time.Time) (int64, error) {
	if m.deactivateExpFn != nil {
		return m.deactivateExpFn(ctx, before)
	}
	return 0, nil
}

func (m *mockMappingRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	if m.codeExistsFn != nil {
		return m.codeExistsFn(ctx, code)
	}
	return false, nil
}

func (m *mockMappingRepository) Codes(ctx context.Context) ([]string, error) {
	if m.codesFn != nil {
		return m.codesFn(ctx)
	}
	return nil, nil
}

func (m *mockMappingRepository) CodesByOwner(ctx context.Context, ownerID string) ([]string, error) {
	if m.codesByOwnerFn != nil {
		return m.codesByOwnerFn(ctx, ownerID)
	}
	return nil, nil
}

func (m *mockMappingRepository) RecordClick(ctx context.Context, code string, at time.Time, unique bool) error {
	if m.recordClickFn != nil {
		return m.recordClickFn(ctx, code, at, unique)
	}
	return nil
}

func newTestShortener(repo repository.MappingRepository) ShortenService {
	return NewShortenService(ShortenDeps{
		Mappings:  repo,
		Validator: NewURLValidator(config.ValidatorConfig{}, nil),
		Generator: NewAliasGenerator(7),
		Filter:    NewCodeFilter(1000, 0.001),
	})
}

func TestShortenService_Shorten_GeneratedCode(t *testing.T) {
	var stored *model.Mapping
	repo := &mockMappingRepository{
		createFn: func(ctx context.Context, mapping *model.Mapping) error {
			stored = mapping
			return nil
		},
	}

	svc := newTestShortener(repo)
	mapping, err := svc.Shorten(context.Background(), CreateInput{
		RawURL: "HTTPS://Example.com/",
	})
	if err != nil {
		t.Fatalf("Shorten returned error: %v", err)
	}

	if len(mapping.Code) != 7 {
		t.Fatalf("expected 7-character code, got %q", mapping.Code)
	}
	if mapping.LongURL != "https://example.com" {
		t.Fatalf("expected normalized url, got %q", mapping.LongURL)
	}
	if !mapping.IsActive {
		t.Fatal("expected new mapping to be active")
	}
	if stored == nil || stored.Code != mapping.Code {
		t.Fatal("expected mapping to be persisted")
	}
}

func TestShortenService_Shorten_CustomAliasConflict(t *testing.T) {
	repo := &mockMappingRepository{
		createFn: func(ctx context.Context, mapping *model.Mapping) error {
			return repository.ErrCodeTaken
		},
	}

	svc := newTestShortener(repo)
	_, err := svc.Shorten(context.Background(), CreateInput{
		RawURL:      "https://example.com",
		CustomAlias: "my-link",
	})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestShortenService_Shorten_ReservedAlias(t *testing.T) {
	svc := newTestShortener(&mockMappingRepository{})
	_, err := svc.Shorten(context.Background(), CreateInput{
		RawURL:      "https://example.com",
		CustomAlias: "health",
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for reserved alias, got %v", err)
	}
}

func TestShortenService_Shorten_RetryExhaustion(t *testing.T) {
	attempts := 0
	repo := &mockMappingRepository{
		createFn: func(ctx context.Context, mapping *model.Mapping) error {
			attempts++
			return repository.ErrCodeTaken
		},
	}

	svc := NewShortenService(ShortenDeps{
		Mappings:    repo,
		Validator:   NewURLValidator(config.ValidatorConfig{}, nil),
		Generator:   NewAliasGenerator(7),
		MaxAttempts: 3,
	})

	_, err := svc.Shorten(context.Background(), CreateInput{RawURL: "https://example.com"})
	if !apperr.IsKind(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable error after exhaustion, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestShortenService_Shorten_PastExpiration(t *testing.T) {
	svc := newTestShortener(&mockMappingRepository{})
	past := time.Now().Add(-time.Hour)
	_, err := svc.Shorten(context.Background(), CreateInput{
		RawURL:    "https://example.com",
		ExpiresAt: &past,
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestShortenService_Resolve(t *testing.T) {
	now := time.Now()
	expired := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	mappings := map[string]*model.Mapping{
		"active1": {Code: "active1", LongURL: "https://example.com", IsActive: true},
		"gone123": {Code: "gone123", LongURL: "https://example.com", IsActive: false},
		"stale12": {Code: "stale12", LongURL: "https://example.com", IsActive: true, ExpiresAt: &expired},
		"fresh12": {Code: "fresh12", LongURL: "https://example.com", IsActive: true, ExpiresAt: &future},
	}
	repo := &mockMappingRepository{
		getFn: func(ctx context.Context, code string) (*model.Mapping, error) {
			if m, ok := mappings[code]; ok {
				return m, nil
			}
			return nil, repository.ErrMappingNotFound
		},
	}

	filter := NewCodeFilter(1000, 0.001)
	for code := range mappings {
		filter.Add(code)
	}
	svc := NewShortenService(ShortenDeps{
		Mappings:  repo,
		Validator: NewURLValidator(config.ValidatorConfig{}, nil),
		Generator: NewAliasGenerator(7),
		Filter:    filter,
	})

	if _, err := svc.Resolve(context.Background(), "active1"); err != nil {
		t.Fatalf("expected active mapping to resolve, got %v", err)
	}
	if _, err := svc.Resolve(context.Background(), "fresh12"); err != nil {
		t.Fatalf("expected unexpired mapping to resolve, got %v", err)
	}
	if _, err := svc.Resolve(context.Background(), "gone123"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for deactivated mapping, got %v", err)
	}
	if _, err := svc.Resolve(context.Background(), "stale12"); !apperr.IsKind(err, apperr.KindExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestShortenService_Resolve_FilterMiss(t *testing.T) {
	repoHit := false
	repo := &mockMappingRepository{
		getFn: func(ctx context.Context, code string) (*model.Mapping, error) {
			repoHit = true
			return nil, repository.ErrMappingNotFound
		},
	}

	svc := newTestShortener(repo)
	_, err := svc.Resolve(context.Background(), "unknown")
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if repoHit {
		t.Fatal("expected filter miss to short-circuit the repository lookup")
	}
}

func TestShortenService_BulkShorten_MixedResults(t *testing.T) {
	repo := &mockMappingRepository{}
	svc := newTestShortener(repo)

	items, err := svc.BulkShorten(context.Background(),
		[]string{"https://example.com/a", "ftp://bad.example", "https://example.com/b"}, nil, nil)
	if err != nil {
		t.Fatalf("BulkShorten returned error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Err != nil || items[2].Err != nil {
		t.Fatalf("expected valid urls to succeed: %v, %v", items[0].Err, items[2].Err)
	}
	if !apperr.IsKind(items[1].Err, apperr.KindValidation) {
		t.Fatalf("expected validation error for ftp url, got %v", items[1].Err)
	}
}

func TestShortenService_BulkShorten_TooMany(t *testing.T) {
	svc := NewShortenService(ShortenDeps{
		Mappings:    &mockMappingRepository{},
		Validator:   NewURLValidator(config.ValidatorConfig{}, nil),
		Generator:   NewAliasGenerator(7),
		BulkMaxURLs: 2,
	})

	_, err := svc.BulkShorten(context.Background(),
		[]string{"https://a.example", "https://b.example", "https://c.example"}, nil, nil)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestShortenService_Deactivate_Authorization(t *testing.T) {
	owner := "user-1"
	repo := &mockMappingRepository{
		getFn: func(ctx context.Context, code string) (*model.Mapping, error) {
			return &model.Mapping{Code: code, OwnerID: &owner, IsActive: true}, nil
		},
	}
	svc := newTestShortener(repo)

	err := svc.Deactivate(context.Background(), "abc1234", Actor{ID: "user-2"})
	if !apperr.IsKind(err, apperr.KindAuthorization) {
		t.Fatalf("expected authorization error for non-owner, got %v", err)
	}

	if err := svc.Deactivate(context.Background(), "abc1234", Actor{ID: owner}); err != nil {
		t.Fatalf("expected owner to deactivate, got %v", err)
	}
	if err := svc.Deactivate(context.Background(), "abc1234", Actor{ID: "someone", Admin: true}); err != nil {
		t.Fatalf("expected admin to deactivate, got %v", err)
	}
}

func TestShortenService_UpdateExpiration(t *testing.T) {
	owner := "user-1"
	repo := &mockMappingRepository{
		getFn: func(ctx context.Context, code string) (*model.Mapping, error) {
			return &model.Mapping{Code: code, OwnerID: &owner, IsActive: true}, nil
		},
	}
	svc := newTestShortener(repo)

	future := time.Now().Add(24 * time.Hour)
	mapping, err := svc.UpdateExpiration(context.Background(), "abc1234", future, Actor{ID: owner})
	if err != nil {
		t.Fatalf("UpdateExpiration returned error: %v", err)
	}
	if mapping.ExpiresAt == nil || !mapping.ExpiresAt.Equal(future) {
		t.Fatal("expected expiration to be updated")
	}

	_, err = svc.UpdateExpiration(context.Background(), "abc1234", time.Now().Add(-time.Hour), Actor{ID: owner})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for past expiration, got %v", err)
	}
}
