package resolver_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/Purplemerit/linkshortner-sub001/internal/database"
	"github.com/Purplemerit/linkshortner-sub001/internal/resolver"
	"github.com/Purplemerit/linkshortner-sub001/internal/resolver/mocks"
	"github.com/Purplemerit/linkshortner-sub001/internal/types"
)

const lookupTimeout = time.Second

func newResolver(t *testing.T) (*resolver.Resolver, *mocks.MockLinkSource) {
	t.Helper()
	ctrl := gomock.NewController(t)
	source := mocks.NewMockLinkSource(ctrl)
	return resolver.New(source, lookupTimeout), source
}

func pastTime() sql.NullTime {
	return sql.NullTime{Time: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Valid: true}
}

func futureTime() sql.NullTime {
	return sql.NullTime{Time: time.Now().Add(24 * time.Hour), Valid: true}
}

func TestResolve_MissingCode(t *testing.T) {
	r, _ := newResolver(t)

	outcome := r.Resolve(context.Background(), "")
	if outcome.Kind != resolver.MissingCode {
		t.Fatalf("got %v, want MissingCode", outcome.Kind)
	}
}

func TestResolve_NotFound(t *testing.T) {
	r, source := newResolver(t)
	source.EXPECT().GetLinkByCode(gomock.Any(), "nope").Return(nil, database.ErrLinkNotFound)

	outcome := r.Resolve(context.Background(), "nope")
	if outcome.Kind != resolver.NotFound {
		t.Fatalf("got %v, want NotFound", outcome.Kind)
	}
	if outcome.LookupFailed() {
		t.Error("genuinely absent link must not report a lookup failure")
	}
}

func TestResolve_StoreErrorBehavesAsNotFound(t *testing.T) {
	r, source := newResolver(t)
	source.EXPECT().GetLinkByCode(gomock.Any(), "abc").Return(nil, errors.New("connection refused"))

	outcome := r.Resolve(context.Background(), "abc")
	if outcome.Kind != resolver.NotFound {
		t.Fatalf("got %v, want NotFound", outcome.Kind)
	}
	if !outcome.LookupFailed() {
		t.Error("store failure must be internally distinguishable")
	}
}

func TestResolve_PassThrough(t *testing.T) {
	r, source := newResolver(t)
	link := &types.Link{
		ID:          1,
		ShortCode:   "abc123",
		OriginalURL: "https://example.com/x",
		Active:      true,
	}
	source.EXPECT().GetLinkByCode(gomock.Any(), "abc123").Return(link, nil)

	outcome := r.Resolve(context.Background(), "abc123")
	if outcome.Kind != resolver.PassThrough {
		t.Fatalf("got %v, want PassThrough", outcome.Kind)
	}
	if outcome.Destination != "https://example.com/x" {
		t.Errorf("destination: got %q, want %q", outcome.Destination, "https://example.com/x")
	}
	if outcome.Link == nil || outcome.Link.ID != 1 {
		t.Error("pass-through outcome must carry the link for recording")
	}
}

func TestResolve_DisabledWinsOverEverything(t *testing.T) {
	r, source := newResolver(t)
	link := &types.Link{
		ID:          2,
		ShortCode:   "promo",
		OriginalURL: "https://example.com",
		Active:      false,
		ExpiresAt:   pastTime(),
		Password:    sql.NullString{String: "secret", Valid: true},
	}
	source.EXPECT().GetLinkByCode(gomock.Any(), "promo").Return(link, nil)

	outcome := r.Resolve(context.Background(), "promo")
	if outcome.Kind != resolver.Disabled {
		t.Fatalf("got %v, want Disabled", outcome.Kind)
	}
}

func TestResolve_ExpiredWinsOverPassword(t *testing.T) {
	r, source := newResolver(t)
	link := &types.Link{
		ID:          3,
		ShortCode:   "xyz789",
		OriginalURL: "https://example.com",
		Active:      true,
		ExpiresAt:   pastTime(),
		Password:    sql.NullString{String: "secret", Valid: true},
	}
	source.EXPECT().GetLinkByCode(gomock.Any(), "xyz789").Return(link, nil)

	outcome := r.Resolve(context.Background(), "xyz789")
	if outcome.Kind != resolver.Expired {
		t.Fatalf("got %v, want Expired", outcome.Kind)
	}
}

func TestResolve_PasswordGatedHidesDestination(t *testing.T) {
	r, source := newResolver(t)
	link := &types.Link{
		ID:          4,
		ShortCode:   "vault",
		OriginalURL: "https://example.com/secret-page",
		Active:      true,
		ExpiresAt:   futureTime(),
		Password:    sql.NullString{String: "hunter2", Valid: true},
	}
	source.EXPECT().GetLinkByCode(gomock.Any(), "vault").Return(link, nil)

	outcome := r.Resolve(context.Background(), "vault")
	if outcome.Kind != resolver.PasswordGated {
		t.Fatalf("got %v, want PasswordGated", outcome.Kind)
	}
	if outcome.Code != "vault" {
		t.Errorf("code: got %q, want %q", outcome.Code, "vault")
	}
	if outcome.Destination != "" || outcome.Link != nil {
		t.Error("password-gated outcome must not reveal the destination")
	}
}

func TestResolve_FutureExpiryPassesThrough(t *testing.T) {
	r, source := newResolver(t)
	link := &types.Link{
		ID:          5,
		ShortCode:   "later",
		OriginalURL: "https://example.com/y",
		Active:      true,
		ExpiresAt:   futureTime(),
	}
	source.EXPECT().GetLinkByCode(gomock.Any(), "later").Return(link, nil)

	outcome := r.Resolve(context.Background(), "later")
	if outcome.Kind != resolver.PassThrough {
		t.Fatalf("got %v, want PassThrough", outcome.Kind)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	r, source := newResolver(t)
	link := &types.Link{
		ID:          6,
		ShortCode:   "same",
		OriginalURL: "https://example.com/z",
		Active:      true,
	}
	source.EXPECT().GetLinkByCode(gomock.Any(), "same").Return(link, nil).Times(2)

	first := r.Resolve(context.Background(), "same")
	second := r.Resolve(context.Background(), "same")
	if first.Kind != second.Kind || first.Destination != second.Destination {
		t.Errorf("resolving twice diverged: %v/%q vs %v/%q",
			first.Kind, first.Destination, second.Kind, second.Destination)
	}
}

func TestVerifyPassword_Correct(t *testing.T) {
	r, source := newResolver(t)
	link := &types.Link{
		ID:          7,
		ShortCode:   "vault",
		OriginalURL: "https://example.com/secret-page",
		Active:      true,
		Password:    sql.NullString{String: "hunter2", Valid: true},
	}
	source.EXPECT().GetLinkByCode(gomock.Any(), "vault").Return(link, nil).Times(2)

	outcome, err := r.VerifyPassword(context.Background(), "vault", "hunter2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != resolver.PassThrough {
		t.Fatalf("got %v, want PassThrough", outcome.Kind)
	}
	if outcome.Destination != "https://example.com/secret-page" {
		t.Errorf("destination: got %q", outcome.Destination)
	}
}

func TestVerifyPassword_Wrong(t *testing.T) {
	r, source := newResolver(t)
	link := &types.Link{
		ID:          8,
		ShortCode:   "vault",
		OriginalURL: "https://example.com/secret-page",
		Active:      true,
		Password:    sql.NullString{String: "hunter2", Valid: true},
	}
	source.EXPECT().GetLinkByCode(gomock.Any(), "vault").Return(link, nil).Times(2)

	outcome, err := r.VerifyPassword(context.Background(), "vault", "wrong")
	if !errors.Is(err, resolver.ErrWrongPassword) {
		t.Fatalf("got %v, want ErrWrongPassword", err)
	}
	if outcome.Kind != resolver.PasswordGated {
		t.Fatalf("got %v, want PasswordGated", outcome.Kind)
	}
}

func TestVerifyPassword_ExpiredStillWins(t *testing.T) {
	r, source := newResolver(t)
	link := &types.Link{
		ID:          9,
		ShortCode:   "old",
		OriginalURL: "https://example.com",
		Active:      true,
		ExpiresAt:   pastTime(),
		Password:    sql.NullString{String: "hunter2", Valid: true},
	}
	source.EXPECT().GetLinkByCode(gomock.Any(), "old").Return(link, nil)

	outcome, err := r.VerifyPassword(context.Background(), "old", "hunter2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != resolver.Expired {
		t.Fatalf("got %v, want Expired", outcome.Kind)
	}
}
