package repository

import (
	"context"

	"github.com/sifan077/SnipURL/internal/app/model"
	"gorm.io/gorm"
)

const topBreakdownLimit = 10

// ClickEventRepository defines the data access contract for click events.
// Events are append-only; aggregation reads them back for reporting.
type ClickEventRepository interface {
	Create(ctx context.Context, event *model.ClickEvent) error
	HasClickFromIP(ctx context.Context, code, ip string) (bool, error)
	Aggregate(ctx context.Context, filter model.ClickFilter) (*model.ClickStats, error)
}

type clickEventRepository struct {
	db *gorm.DB
}

// NewClickEventRepository returns a GORM-backed ClickEventRepository.
func NewClickEventRepository(db *gorm.DB) ClickEventRepository {
	return &clickEventRepository{db: db}
}

func (r *clickEventRepository) Create(ctx context.Context, event *model.ClickEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *clickEventRepository) HasClickFromIP(ctx context.Context, code, ip string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ClickEvent{}).
		Where("code = ? AND ip = ?", code, ip).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *clickEventRepository) Aggregate(ctx context.Context, filter model.ClickFilter) (*model.ClickStats, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.ClickEvent{})
		if len(filter.Codes) > 0 {
			q = q.Where("code IN ?", filter.Codes)
		}
		if filter.From != nil {
			q = q.Where("timestamp >= ?", *filter.From)
		}
		if filter.To != nil {
			q = q.Where("timestamp <= ?", *filter.To)
		}
		return q
	}

	stats := &model.ClickStats{
		ByDay:       []model.DayCount{},
		ByReferrer:  []model.LabelCount{},
		ByUserAgent: []model.LabelCount{},
	}

	if err := base().Count(&stats.TotalClicks).Error; err != nil {
		return nil, err
	}

	if err := base().Distinct("ip").Count(&stats.UniqueClicks).Error; err != nil {
		return nil, err
	}

	// Day buckets use UTC calendar days.
	if err := base().
		Select("to_char(timestamp AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, count(*) AS count").
		Group("day").
		Order("day").
		Scan(&stats.ByDay).Error; err != nil {
		return nil, err
	}

	if err := base().
		Select("referrer AS label, count(*) AS count").
		Where("referrer <> ''").
		Group("referrer").
		Order("count DESC").
		Limit(topBreakdownLimit).
		Scan(&stats.ByReferrer).Error; err != nil {
		return nil, err
	}

	if err := base().
		Select("user_agent AS label, count(*) AS count").
		Where("user_agent <> ''").
		Group("user_agent").
		Order("count DESC").
		Limit(topBreakdownLimit).
		Scan(&stats.ByUserAgent).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
