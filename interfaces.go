package trawler

import (
	"context"
	"time"
)

// Frontier is the time-scheduled queue of URLs awaiting fetch. All
// implementations must make PopReady a server-side atomic claim: a URL
// returned by one call is never returned by a concurrent call.
type Frontier interface {
	// Push inserts or updates a URL. A zero readyAt means "now". Pushing a
	// URL already present overwrites its ready time.
	Push(ctx context.Context, url string, readyAt time.Time) error

	// PushMany is the batch variant of Push; a no-op on empty input.
	PushMany(ctx context.Context, urls []string, readyAt time.Time) error

	// PopReady atomically claims up to max URLs whose ready time has
	// passed, lowest ready time first. It never blocks and may return an
	// empty slice.
	PopReady(ctx context.Context, max int) ([]string, error)

	// Size returns the number of pending entries.
	Size(ctx context.Context) (int64, error)

	// Clear removes all pending entries.
	Clear(ctx context.Context) error
}

// VisitedSet records URLs whose processing has terminated: stored, denied by
// robots, or given up on.
type VisitedSet interface {
	IsVisited(ctx context.Context, url string) (bool, error)

	// MarkVisited is idempotent. A zero ts means "now".
	MarkVisited(ctx context.Context, url string, ts time.Time) error

	// HasMany returns one membership flag per input URL, in order, using a
	// single round trip. Empty input yields empty output.
	HasMany(ctx context.Context, urls []string) ([]bool, error)

	Count(ctx context.Context) (int64, error)
}

// RateLimiter hands out per-domain fetch slots.
type RateLimiter interface {
	// CheckAndReserve atomically reserves the next fetch slot for domain if
	// it is free, pushing the next slot cooldown into the future. When the
	// slot is taken it returns reserved=false and the time the caller
	// should reschedule for. Between two successful reservations for one
	// domain at least cooldown elapses on the store's clock.
	CheckAndReserve(ctx context.Context, domain string, cooldown time.Duration) (allowedAt time.Time, reserved bool, err error)
}

// RobotsPolicy answers whether a URL may be fetched under robots.txt rules
// for the configured User-Agent. Implementations cache per-host robots
// bodies; fetch failures and malformed files must answer "allowed" rather
// than block the crawl.
type RobotsPolicy interface {
	IsAllowed(ctx context.Context, u *URL) (bool, error)
}

// Counter is a shared integer metric. Increment failures are the caller's to
// swallow; losing a count never aborts a crawl cycle.
type Counter interface {
	Incr(ctx context.Context) error
	Value(ctx context.Context) (int64, error)
	Reset(ctx context.Context) error
}

// DomainCount is one row of a stored-pages-per-domain aggregate.
type DomainCount struct {
	Domain string `bson:"_id" json:"domain"`
	Count  int64  `bson:"count" json:"count"`
}

// PageStore persists crawled page records keyed by canonical URL.
type PageStore interface {
	// Init ensures the url (unique), domain and timestamp indexes exist.
	Init(ctx context.Context) error

	// SavePage upserts by page.URL, fully replacing the mutable fields.
	SavePage(ctx context.Context, page *Page) error

	GetPage(ctx context.Context, url string) (*Page, error)
	CountPages(ctx context.Context) (int64, error)

	// DomainCounts returns the top `limit` domains by stored page count.
	DomainCounts(ctx context.Context, limit int) ([]DomainCount, error)

	// StatusCountsSince histograms the status field over pages stored at or
	// after since.
	StatusCountsSince(ctx context.Context, since time.Time) (map[int]int64, error)

	// EachPageSince calls fn with the url and links of every page stored at
	// or after since, until fn returns false or the pages run out.
	EachPageSince(ctx context.Context, since time.Time, fn func(url string, links []string) bool) error
}
