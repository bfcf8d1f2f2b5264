package model

import "time"

// Mapping describes the core short-code to long-URL entity stored in Postgres.
// A code is never reused: deactivation flips IsActive instead of deleting the
// row so click history stays queryable.
type Mapping struct {
	Code          string     `db:"code" gorm:"primaryKey;size:32"`
	LongURL       string     `db:"long_url" gorm:"type:text;not null"`
	OwnerID       *string    `db:"owner_id" gorm:"size:64;index"`
	CustomAlias   bool       `db:"custom_alias" gorm:"not null;default:false"`
	ExpiresAt     *time.Time `db:"expires_at" gorm:"index"`
	IsActive      bool       `db:"is_active" gorm:"not null;default:true"`
	TotalClicks   int64      `db:"total_clicks" gorm:"not null;default:0"`
	UniqueClicks  int64      `db:"unique_clicks" gorm:"not null;default:0"`
	LastClickedAt *time.Time `db:"last_clicked_at"`
	CreatedAt     time.Time  `db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `db:"updated_at" gorm:"autoUpdateTime"`
}

// Expired reports whether the mapping is past its expiry at the given instant.
func (m *Mapping) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && now.After(*m.ExpiresAt)
}

// OwnedBy reports whether userID matches the mapping owner. Anonymous
// mappings belong to nobody.
func (m *Mapping) OwnedBy(userID string) bool {
	return m.OwnerID != nil && *m.OwnerID == userID
}
