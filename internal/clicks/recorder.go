// Package clicks records visits to resolved links. Recording is strictly
// best-effort: nothing in here returns an error to the redirect path.
package clicks

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Purplemerit/linkshortner-sub001/internal/types"
)

// Sentinels used when the request carries no usable value.
const (
	DirectReferer = "Direct"
	UnknownClient = "unknown"
)

// CounterStore is the write side of the click counter. The increment
// must be atomic inside the store.
type CounterStore interface {
	IncrementClicks(ctx context.Context, linkID int64) error
}

// EventSink accepts click events for asynchronous persistence.
// Send must not block; it reports whether the event was accepted.
type EventSink interface {
	PushClick(data types.ClickData) bool
}

// RequestContext is the request-derived payload captured at redirect time.
type RequestContext struct {
	UserAgent string
	Referer   string
	ClientIP  string
}

// FromRequest extracts the click context from an HTTP request. The first
// hop of X-Forwarded-For wins over the direct peer address; when neither
// yields anything, the client id stays the "unknown" sentinel.
func FromRequest(r *http.Request) RequestContext {
	rc := RequestContext{
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
		ClientIP:  UnknownClient,
	}
	if rc.Referer == "" {
		rc.Referer = DirectReferer
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			rc.ClientIP = first
			return rc
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		rc.ClientIP = host
	} else if r.RemoteAddr != "" {
		rc.ClientIP = r.RemoteAddr
	}
	return rc
}

// Recorder increments the durable click counter and queues an analytics
// event for every successfully resolved pass-through visit.
type Recorder struct {
	counters CounterStore
	events   EventSink
	timeout  time.Duration
	now      func() time.Time
}

func NewRecorder(counters CounterStore, events EventSink, timeout time.Duration) *Recorder {
	return &Recorder{
		counters: counters,
		events:   events,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Record never returns an error. The redirect response was already decided
// by the resolver; a failure here is logged and suppressed. The counter
// increment and the event append are independent: one failing does not
// undo the other.
func (r *Recorder) Record(link *types.Link, rc RequestContext) {
	// The caller's request context is not used: the response may already
	// be on the wire, so recording gets its own bounded lifetime.
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.counters.IncrementClicks(ctx, link.ID); err != nil {
		slog.Warn("click counter increment failed",
			"short_code", link.ShortCode, "link_id", link.ID, "error", err)
	}

	r.events.PushClick(types.ClickData{
		LinkID:    link.ID,
		ShortCode: link.ShortCode,
		IP:        rc.ClientIP,
		UserAgent: rc.UserAgent,
		Referer:   rc.Referer,
		ClickedAt: r.now(),
	})
}
