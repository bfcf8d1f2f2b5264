package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sifan077/SnipURL/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrMappingNotFound signals that the requested short code does not exist.
	ErrMappingNotFound = errors.New("mapping not found")
	// ErrCodeTaken signals a uniqueness violation on insert. Callers retry
	// with a fresh random code or surface a conflict for custom aliases.
	ErrCodeTaken = errors.New("short code already taken")
)

// MappingRepository defines the data access contract for URL mappings.
type MappingRepository interface {
	Create(ctx context.Context, mapping *model.Mapping) error
	GetByCode(ctx context.Context, code string) (*model.Mapping, error)
	ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]model.Mapping, int64, error)
	UpdateExpiration(ctx context.Context, code string, expiresAt time.Time) error
	Deactivate(ctx context.Context, code string) error
	DeactivateExpired(ctx context.Context, before time.Time) (int64, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	Codes(ctx context.Context) ([]string, error)
	CodesByOwner(ctx context.Context, ownerID string) ([]string, error)
	RecordClick(ctx context.Context, code string, at time.Time, unique bool) error
}

type mappingRepository struct {
	db *gorm.DB
}

// NewMappingRepository returns a GORM-backed MappingRepository.
func NewMappingRepository(db *gorm.DB) MappingRepository {
	return &mappingRepository{db: db}
}

func (r *mappingRepository) Create(ctx context.Context, mapping *model.Mapping) error {
	if err := r.db.WithContext(ctx).Create(mapping).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrCodeTaken
		}
		return err
	}
	return nil
}

func (r *mappingRepository) GetByCode(ctx context.Context, code string) (*model.Mapping, error) {
	var mapping model.Mapping
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&mapping).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMappingNotFound
		}
		return nil, err
	}
	return &mapping, nil
}

func (r *mappingRepository) ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]model.Mapping, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	base := r.db.WithContext(ctx).Model(&model.Mapping{}).Where("owner_id = ?", ownerID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var result []model.Mapping
	if err := base.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&result).Error; err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

func (r *mappingRepository) UpdateExpiration(ctx context.Context, code string, expiresAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Mapping{}).
		Where("code = ?", code).
		Update("expires_at", expiresAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMappingNotFound
	}
	return nil
}

func (r *mappingRepository) Deactivate(ctx context.Context, code string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Mapping{}).
		Where("code = ? AND is_active", code).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMappingNotFound
	}
	return nil
}

func (r *mappingRepository) DeactivateExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Mapping{}).
		Where("is_active AND expires_at IS NOT NULL AND expires_at < ?", before).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}

func (r *mappingRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.Mapping{}).
		Where("code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *mappingRepository) Codes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&model.Mapping{}).
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *mappingRepository) CodesByOwner(ctx context.Context, ownerID string) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&model.Mapping{}).
		Where("owner_id = ?", ownerID).
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *mappingRepository) RecordClick(ctx context.Context, code string, at time.Time, unique bool) error {
	updates := map[string]interface{}{
		"total_clicks":    gorm.Expr("total_clicks + 1"),
		"last_clicked_at": at,
	}
	if unique {
		updates["unique_clicks"] = gorm.Expr("unique_clicks + 1")
	}

	result := r.db.WithContext(ctx).
		Model(&model.Mapping{}).
		Where("code = ?", code).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMappingNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
