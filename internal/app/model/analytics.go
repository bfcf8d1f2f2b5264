package model

import "time"

// ClickFilter scopes an aggregation query. Nil Codes means all mappings.
type ClickFilter struct {
	Codes []string
	From  *time.Time
	To    *time.Time
}

// DayCount is one calendar-day bucket (UTC).
type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// LabelCount pairs a referrer or user-agent value with its click count.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// ClickStats is the aggregation result returned by the analytics service.
// UniqueClicks counts distinct IP addresses within the queried range.
type ClickStats struct {
	TotalClicks  int64        `json:"total_clicks"`
	UniqueClicks int64        `json:"unique_clicks"`
	ByDay        []DayCount   `json:"by_day"`
	ByReferrer   []LabelCount `json:"by_referrer"`
	ByUserAgent  []LabelCount `json:"by_user_agent"`
}
