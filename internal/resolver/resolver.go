// Package resolver decides what a redirect request for a short code should
// do. The decision is a single Outcome value; recording the visit is a
// separate concern and never feeds back into the decision.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Purplemerit/linkshortner-sub001/internal/database"
	"github.com/Purplemerit/linkshortner-sub001/internal/types"
)

// ErrWrongPassword is returned by VerifyPassword when the supplied
// secret does not match the link's.
var ErrWrongPassword = errors.New("wrong password")

// OutcomeKind enumerates the possible redirect decisions.
type OutcomeKind int

const (
	// MissingCode rejects an empty code before any lookup.
	MissingCode OutcomeKind = iota
	// NotFound covers both an absent link and a failed lookup.
	NotFound
	// Disabled means the owner switched the link off.
	Disabled
	// Expired means the expiry timestamp is strictly in the past.
	Expired
	// PasswordGated means a password must be supplied first.
	PasswordGated
	// PassThrough means redirect straight to the destination.
	PassThrough
)

func (k OutcomeKind) String() string {
	switch k {
	case MissingCode:
		return "missing_code"
	case NotFound:
		return "not_found"
	case Disabled:
		return "disabled"
	case Expired:
		return "expired"
	case PasswordGated:
		return "password_gated"
	case PassThrough:
		return "pass_through"
	default:
		return "unknown"
	}
}

// Outcome is the resolved decision for one request.
//
// Destination and Link are populated only for PassThrough; PasswordGated
// carries the code alone so the caller can route to the password flow
// without learning the destination.
type Outcome struct {
	Kind        OutcomeKind
	Code        string
	Destination string
	Link        *types.Link

	lookupErr error
}

// LookupFailed reports whether a NotFound outcome was caused by a store
// failure rather than a genuinely absent link. The caller's response is
// the same either way; this exists for logging and metrics.
func (o Outcome) LookupFailed() bool {
	return o.lookupErr != nil
}

//go:generate mockgen -source=resolver.go -destination=mocks/mock_source.go -package=mocks LinkSource

// LinkSource is the read side of the link store.
type LinkSource interface {
	GetLinkByCode(ctx context.Context, code string) (*types.Link, error)
}

// Resolver maps short codes to Outcomes.
type Resolver struct {
	source  LinkSource
	timeout time.Duration
	now     func() time.Time
}

func New(source LinkSource, lookupTimeout time.Duration) *Resolver {
	return &Resolver{
		source:  source,
		timeout: lookupTimeout,
		now:     time.Now,
	}
}

// Resolve evaluates the gates for a short code in fixed precedence:
// missing code, not found, disabled, expired, password, pass-through.
// The first matching gate wins, so an expired link that also has a
// password reports Expired, never PasswordGated.
func (r *Resolver) Resolve(ctx context.Context, code string) Outcome {
	if code == "" {
		return Outcome{Kind: MissingCode}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	link, err := r.source.GetLinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, database.ErrLinkNotFound) {
			return Outcome{Kind: NotFound, Code: code}
		}
		// Store failure: fail open to the safe default landing location,
		// but keep the cause for observability.
		slog.Error("link lookup failed", "short_code", code, "error", err)
		return Outcome{Kind: NotFound, Code: code, lookupErr: err}
	}

	return r.gate(link, code)
}

func (r *Resolver) gate(link *types.Link, code string) Outcome {
	switch {
	case !link.Active:
		return Outcome{Kind: Disabled, Code: code}
	case link.Expired(r.now()):
		return Outcome{Kind: Expired, Code: code}
	case link.PasswordProtected():
		return Outcome{Kind: PasswordGated, Code: code}
	default:
		return Outcome{
			Kind:        PassThrough,
			Code:        code,
			Destination: link.OriginalURL,
			Link:        link,
		}
	}
}

// VerifyPassword is the narrower second check for password-gated links.
// Disabled and expired still win: a gated link that has since expired
// reports Expired no matter what password is supplied. On a matching
// password the link is treated as pass-through, so the caller can
// redirect and record the click.
func (r *Resolver) VerifyPassword(ctx context.Context, code, password string) (Outcome, error) {
	outcome := r.Resolve(ctx, code)
	if outcome.Kind != PasswordGated {
		return outcome, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	link, err := r.source.GetLinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, database.ErrLinkNotFound) {
			return Outcome{Kind: NotFound, Code: code}, nil
		}
		slog.Error("link lookup failed during password check", "short_code", code, "error", err)
		return Outcome{Kind: NotFound, Code: code, lookupErr: err}, nil
	}

	if password == "" || link.Password.String != password {
		return outcome, ErrWrongPassword
	}

	return Outcome{
		Kind:        PassThrough,
		Code:        code,
		Destination: link.OriginalURL,
		Link:        link,
	}, nil
}
