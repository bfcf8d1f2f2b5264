package model

import "time"

// ClickEvent represents one recorded visit against a mapping. Rows are
// append-only; analytics aggregation reads them back.
type ClickEvent struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Code      string    `json:"code" gorm:"size:32;not null;index"`
	IP        string    `json:"ip" gorm:"size:45"`
	UserAgent string    `json:"user_agent" gorm:"type:text"`
	Referrer  string    `json:"referrer" gorm:"size:2048"`
	UserID    *string   `json:"user_id,omitempty" gorm:"size:64;index"`
	Timestamp time.Time `json:"timestamp" gorm:"index"`
}

const (
	ClickStreamName     = "CLICKS"
	ClickStreamSubject  = "clicks.events"
	ClickConsumerName   = "click-recorder"
	ClickStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
