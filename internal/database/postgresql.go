package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/Purplemerit/linkshortner-sub001/internal/types"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrLinkNotFound is returned when no link exists for a short code or id.
var ErrLinkNotFound = errors.New("link not found")

// ErrCodeTaken is returned when a short code is already in use.
var ErrCodeTaken = errors.New("short code already taken")

type Database struct {
	db *sqlx.DB
}

func ConnectPostgres(url string) (*Database, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, err
	}

	pg := &Database{db: db}

	if err := pg.RunMigrations(); err != nil {
		return nil, err
	}

	return pg, nil
}

// NewDatabase wraps an existing connection. Used by tests.
func NewDatabase(db *sqlx.DB) *Database {
	return &Database{db: db}
}

func (db *Database) RunMigrations() error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	driver, err := postgres.WithInstance(db.db.DB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance(
		"iofs", d,
		"postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	slog.Info("Database migrations applied successfully")
	return nil
}

func (db *Database) Close() error {
	return db.db.Close()
}

// CreateUser inserts a user for the given Telegram id if one does not exist yet.
func (db *Database) CreateUser(ctx context.Context, telegramID int64) error {
	_, err := db.db.ExecContext(ctx,
		`INSERT INTO users (telegram_id) VALUES ($1) ON CONFLICT (telegram_id) DO NOTHING`,
		telegramID)
	return err
}

// GetUserIDByTelegramID returns the internal user id for a Telegram id.
func (db *Database) GetUserIDByTelegramID(ctx context.Context, telegramID int64) (int64, error) {
	var id int64
	err := db.db.GetContext(ctx, &id,
		`SELECT id FROM users WHERE telegram_id = $1`, telegramID)
	return id, err
}

// CreateLink inserts a link without a short code and returns its id.
// The code is assigned afterwards with SetShortCode, once the id is known.
func (db *Database) CreateLink(ctx context.Context, params types.CreateLinkParams) (int64, error) {
	var id int64
	err := db.db.QueryRowContext(ctx,
		`INSERT INTO links (original_url, user_id, active, expires_at, password)
		 VALUES ($1, $2, true, $3, $4)
		 RETURNING id`,
		params.OriginalURL, params.UserID, params.ExpiresAt, params.Password).Scan(&id)
	return id, err
}

// SetShortCode assigns the short code to a freshly created link.
func (db *Database) SetShortCode(ctx context.Context, linkID int64, code string) error {
	_, err := db.db.ExecContext(ctx,
		`UPDATE links SET short_code = $1 WHERE id = $2`, code, linkID)
	if isUniqueViolation(err) {
		return ErrCodeTaken
	}
	return err
}

// GetLinkByCode returns the full link record for a short code.
func (db *Database) GetLinkByCode(ctx context.Context, code string) (*types.Link, error) {
	var link types.Link
	err := db.db.GetContext(ctx, &link,
		`SELECT id, short_code, original_url, user_id, active, expires_at, password,
		        clicks, created_at, updated_at
		 FROM links WHERE short_code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// UpdateLink applies owner-initiated changes to the gating fields and
// destination. Nil fields are left untouched.
func (db *Database) UpdateLink(ctx context.Context, code string, params types.UpdateLinkParams) (*types.Link, error) {
	var link types.Link
	err := db.db.GetContext(ctx, &link,
		`UPDATE links SET
		    original_url = COALESCE($2, original_url),
		    active       = COALESCE($3, active),
		    expires_at   = CASE WHEN $4 THEN $5 ELSE expires_at END,
		    password     = CASE WHEN $6 THEN $7 ELSE password END,
		    updated_at   = now()
		 WHERE short_code = $1
		 RETURNING id, short_code, original_url, user_id, active, expires_at, password,
		           clicks, created_at, updated_at`,
		code, params.OriginalURL, params.Active,
		params.SetExpiresAt, params.ExpiresAt,
		params.SetPassword, params.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// DeleteLink removes a link by short code.
func (db *Database) DeleteLink(ctx context.Context, code string) error {
	res, err := db.db.ExecContext(ctx, `DELETE FROM links WHERE short_code = $1`, code)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// IncrementClicks bumps the click counter by one. The increment happens
// inside the database so concurrent visits never lose updates.
func (db *Database) IncrementClicks(ctx context.Context, linkID int64) error {
	res, err := db.db.ExecContext(ctx,
		`UPDATE links SET clicks = clicks + 1 WHERE id = $1`, linkID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// GetClicks returns the current counter value for a short code.
func (db *Database) GetClicks(ctx context.Context, code string) (int64, error) {
	var clicks int64
	err := db.db.GetContext(ctx, &clicks,
		`SELECT clicks FROM links WHERE short_code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrLinkNotFound
	}
	return clicks, err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	type coder interface{ SQLState() string }
	var c coder
	if errors.As(err, &c) {
		return c.SQLState() == "23505"
	}
	return false
}

// Ping is a connectivity check used by the health endpoint.
func (db *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.db.PingContext(ctx)
}
