package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Purplemerit/linkshortner-sub001/internal/cache"
	"github.com/Purplemerit/linkshortner-sub001/internal/database"
	"github.com/Purplemerit/linkshortner-sub001/internal/types"
)

const alphabet = "0123456789qwertyuiopasdfghjklzxcvbnmMNBVCXZLKJHGFDQASWERTYUIOP"

var (
	ErrInvalidCharacter = errors.New("invalid character")
	ErrInvalidURL       = errors.New("destination must be an absolute http(s) url")
)

// CreateLinkRequest carries everything accepted at link creation.
// A zero UserID means an anonymous link.
type CreateLinkRequest struct {
	OriginalURL string
	CustomCode  string
	Password    string
	ExpiresAt   *time.Time
	UserID      int64
}

// Shortener owns the link lifecycle and the cache-through lookup the
// redirect path resolves against.
type Shortener struct {
	database *database.Database
	cache    *cache.Cache
	cacheTTL time.Duration
}

func NewShortener(db *database.Database, cache *cache.Cache, cacheTTL time.Duration) *Shortener {
	return &Shortener{database: db, cache: cache, cacheTTL: cacheTTL}
}

// CreateShortLink validates the destination, stores the link and assigns
// its short code: the caller's custom code when given, otherwise the
// base62 encoding of the fresh link id.
func (s *Shortener) CreateShortLink(ctx context.Context, req CreateLinkRequest) (*types.Link, error) {
	if err := ValidateURL(req.OriginalURL); err != nil {
		return nil, err
	}
	if req.CustomCode != "" {
		if err := validateCode(req.CustomCode); err != nil {
			return nil, err
		}
	}

	params := types.CreateLinkParams{OriginalURL: req.OriginalURL}
	if req.UserID != 0 {
		params.UserID = sql.NullInt64{Int64: req.UserID, Valid: true}
	}
	if req.ExpiresAt != nil {
		params.ExpiresAt = sql.NullTime{Time: *req.ExpiresAt, Valid: true}
	}
	if req.Password != "" {
		params.Password = sql.NullString{String: req.Password, Valid: true}
	}

	linkID, err := s.database.CreateLink(ctx, params)
	if err != nil {
		return nil, err
	}

	code := req.CustomCode
	if code == "" {
		code = base62Encode(linkID)
	}
	if err := s.database.SetShortCode(ctx, linkID, code); err != nil {
		return nil, err
	}

	link, err := s.database.GetLinkByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, code, link.CacheEntry(), s.cacheTTL); err != nil {
		slog.Warn("Failed to warm up cache", "short_code", code, "error", err)
	}
	return link, nil
}

// CreateShortLinkForTelegram creates an owned link for a Telegram sender,
// registering the user on first contact.
func (s *Shortener) CreateShortLinkForTelegram(ctx context.Context, originalURL string, telegramID int64) (*types.Link, error) {
	if err := s.database.CreateUser(ctx, telegramID); err != nil {
		return nil, err
	}
	userID, err := s.database.GetUserIDByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	return s.CreateShortLink(ctx, CreateLinkRequest{OriginalURL: originalURL, UserID: userID})
}

// GetLinkByCode serves the redirect path: cache first, Postgres on a
// miss, warming the cache on the way out. Cache errors degrade to a
// database read, never to a failed lookup.
func (s *Shortener) GetLinkByCode(ctx context.Context, shortCode string) (*types.Link, error) {
	entry, err := s.cache.Get(ctx, shortCode)
	if err == nil {
		return entry.ToLink(shortCode), nil
	}
	if !errors.Is(err, redis.Nil) {
		slog.Warn("Redis error", "error", err)
	}

	link, err := s.database.GetLinkByCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, shortCode, link.CacheEntry(), s.cacheTTL); err != nil {
		slog.Warn("Failed to warm up cache", "error", err)
	}
	return link, nil
}

// GetLink returns the full stored record, bypassing the cache.
func (s *Shortener) GetLink(ctx context.Context, shortCode string) (*types.Link, error) {
	return s.database.GetLinkByCode(ctx, shortCode)
}

// UpdateLink applies changes and evicts the stale cache entry.
func (s *Shortener) UpdateLink(ctx context.Context, shortCode string, params types.UpdateLinkParams) (*types.Link, error) {
	if params.OriginalURL != nil {
		if err := ValidateURL(*params.OriginalURL); err != nil {
			return nil, err
		}
	}
	link, err := s.database.UpdateLink(ctx, shortCode, params)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Delete(ctx, shortCode); err != nil {
		slog.Warn("Failed to evict cache entry", "short_code", shortCode, "error", err)
	}
	return link, nil
}

// DeleteLink removes the link and evicts its cache entry.
func (s *Shortener) DeleteLink(ctx context.Context, shortCode string) error {
	if err := s.database.DeleteLink(ctx, shortCode); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, shortCode); err != nil {
		slog.Warn("Failed to evict cache entry", "short_code", shortCode, "error", err)
	}
	return nil
}

// ValidateURL accepts absolute http or https URLs with a host.
func ValidateURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

func validateCode(code string) error {
	for _, char := range code {
		if !strings.ContainsRune(alphabet, char) {
			return ErrInvalidCharacter
		}
	}
	return nil
}

func base62Encode(linkID int64) string {
	if linkID == 0 {
		return string(alphabet[0])
	}

	res := make([]byte, 0, 12)

	for linkID > 0 {
		res = append(res, alphabet[linkID%62])
		linkID /= 62
	}
	slices.Reverse(res)
	return string(res)
}

func base62Decode(shortCode string) (int64, error) {
	var res int64

	for _, char := range shortCode {
		index := strings.IndexRune(alphabet, char)

		if index == -1 {
			return 0, ErrInvalidCharacter
		}

		res = res*62 + int64(index)
	}

	return res, nil
}
