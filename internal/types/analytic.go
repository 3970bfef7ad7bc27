package types

import "time"

// ClickData is the raw request context captured at redirect time,
// before geo and user-agent enrichment.
type ClickData struct {
	LinkID    int64     `json:"link_id" db:"link_id"`
	ShortCode string    `json:"short_code" db:"short_code"`
	IP        string    `json:"ip" db:"ip"`
	UserAgent string    `json:"user_agent" db:"user_agent"`
	Referer   string    `json:"referer" db:"referer"`
	ClickedAt time.Time `json:"clicked_at" db:"clicked_at"`
}

// ClickEvent is one recorded visit, enriched and ready for the analytics store.
type ClickEvent struct {
	LinkID    int64     `json:"link_id" db:"link_id"`
	ShortCode string    `json:"short_code" db:"short_code"`
	Country   string    `json:"country" db:"country"`
	City      string    `json:"city" db:"city"`
	Device    string    `json:"device" db:"device"`
	Browser   string    `json:"browser" db:"browser"`
	OS        string    `json:"os" db:"os"`
	Referer   string    `json:"referer" db:"referer"`
	ClientID  string    `json:"client_id" db:"client_id"`
	ClickedAt time.Time `json:"clicked_at" db:"clicked_at"`
}

// CountryStat is one row of the per-country click breakdown.
type CountryStat struct {
	Country string `json:"country" db:"country"`
	Clicks  uint64 `json:"clicks" db:"clicks"`
}

// DeviceStat is one row of the per-device click breakdown.
type DeviceStat struct {
	Device string `json:"device" db:"device"`
	Clicks uint64 `json:"clicks" db:"clicks"`
}
