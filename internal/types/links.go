package types

import (
	"database/sql"
	"time"
)

// Link is the stored record behind a short code.
type Link struct {
	ID          int64          `json:"id" db:"id"`
	ShortCode   string         `json:"short_code" db:"short_code"`
	OriginalURL string         `json:"original_url" db:"original_url"`
	UserID      sql.NullInt64  `json:"-" db:"user_id"`
	Active      bool           `json:"active" db:"active"`
	ExpiresAt   sql.NullTime   `json:"expires_at,omitempty" db:"expires_at"`
	Password    sql.NullString `json:"-" db:"password"`
	Clicks      int64          `json:"clicks" db:"clicks"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// Expired reports whether the link's expiry is set and strictly in the past.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt.Valid && l.ExpiresAt.Time.Before(now)
}

// PasswordProtected reports whether a non-empty password is set.
func (l *Link) PasswordProtected() bool {
	return l.Password.Valid && l.Password.String != ""
}

// CreateLinkParams carries the fields accepted at link creation.
type CreateLinkParams struct {
	OriginalURL string
	UserID      sql.NullInt64
	ExpiresAt   sql.NullTime
	Password    sql.NullString
}

// UpdateLinkParams carries owner-initiated changes. Nil pointers mean
// "leave unchanged"; the Set flags distinguish clearing a nullable field
// from not touching it.
type UpdateLinkParams struct {
	OriginalURL  *string
	Active       *bool
	SetExpiresAt bool
	ExpiresAt    sql.NullTime
	SetPassword  bool
	Password     sql.NullString
}

// LinkCache is the subset of Link kept in Redis for the redirect path.
// Gating fields ride along so a cache hit can be resolved without Postgres.
type LinkCache struct {
	LinkID      int64      `json:"link_id"`
	OriginalURL string     `json:"original_url"`
	UserID      int64      `json:"user_id,omitempty"`
	Active      bool       `json:"active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Password    string     `json:"password,omitempty"`
}

// ToLink rebuilds a Link from its cached form.
func (c *LinkCache) ToLink(code string) *Link {
	l := &Link{
		ID:          c.LinkID,
		ShortCode:   code,
		OriginalURL: c.OriginalURL,
		Active:      c.Active,
	}
	if c.UserID != 0 {
		l.UserID = sql.NullInt64{Int64: c.UserID, Valid: true}
	}
	if c.ExpiresAt != nil {
		t := *c.ExpiresAt
		l.ExpiresAt = sql.NullTime{Time: t, Valid: true}
	}
	if c.Password != "" {
		l.Password = sql.NullString{String: c.Password, Valid: true}
	}
	return l
}

// CacheEntry converts a Link to its cached form.
func (l *Link) CacheEntry() *LinkCache {
	c := &LinkCache{
		LinkID:      l.ID,
		OriginalURL: l.OriginalURL,
		Active:      l.Active,
	}
	if l.UserID.Valid {
		c.UserID = l.UserID.Int64
	}
	if l.ExpiresAt.Valid {
		t := l.ExpiresAt.Time
		c.ExpiresAt = &t
	}
	if l.Password.Valid {
		c.Password = l.Password.String
	}
	return c
}
