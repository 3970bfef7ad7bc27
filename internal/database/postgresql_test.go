package database

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockDB(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return NewDatabase(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func linkColumns() []string {
	return []string{
		"id", "short_code", "original_url", "user_id", "active",
		"expires_at", "password", "clicks", "created_at", "updated_at",
	}
}

func TestGetLinkByCode_Found(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM links WHERE short_code = $1")).
		WithArgs("abc123").
		WillReturnRows(sqlmock.NewRows(linkColumns()).
			AddRow(int64(1), "abc123", "https://example.com/x", nil, true,
				nil, nil, int64(7), now, now))

	link, err := db.GetLinkByCode(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.ID != 1 || link.OriginalURL != "https://example.com/x" {
		t.Errorf("unexpected link: %+v", link)
	}
	if link.UserID.Valid {
		t.Error("anonymous link must have a null owner")
	}
	if link.Clicks != 7 {
		t.Errorf("clicks: got %d, want 7", link.Clicks)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetLinkByCode_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM links WHERE short_code = $1")).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := db.GetLinkByCode(context.Background(), "nope")
	if !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("got %v, want ErrLinkNotFound", err)
	}
}

func TestIncrementClicks(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE links SET clicks = clicks + 1 WHERE id = $1")).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := db.IncrementClicks(context.Background(), 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestIncrementClicks_MissingLink(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE links SET clicks = clicks + 1 WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := db.IncrementClicks(context.Background(), 99); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("got %v, want ErrLinkNotFound", err)
	}
}

func TestDeleteLink_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM links WHERE short_code = $1")).
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := db.DeleteLink(context.Background(), "nope"); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("got %v, want ErrLinkNotFound", err)
	}
}

func TestGetClicks(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT clicks FROM links WHERE short_code = $1")).
		WithArgs("abc123").
		WillReturnRows(sqlmock.NewRows([]string{"clicks"}).AddRow(int64(13)))

	clicks, err := db.GetClicks(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clicks != 13 {
		t.Errorf("clicks: got %d, want 13", clicks)
	}
}
