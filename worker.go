package trawler

import (
	"context"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// idleSleep is how long a worker rests when the frontier has nothing due.
const idleSleep = 100 * time.Millisecond

// Worker drains the frontier one URL at a time: claim, dedupe, robots gate,
// rate-limiter gate, fetch, parse, store, mark visited, enqueue discovered
// links. Workers are plain values over shared handles; any number may run
// concurrently, in one process or many, because all coordination goes
// through the stores' atomic operations.
type Worker struct {
	Frontier      Frontier
	Visited       VisitedSet
	RateLimiter   RateLimiter
	Robots        RobotsPolicy
	Store         PageStore
	RobotsBlocked Counter

	// Client is the pooled HTTP client shared by the worker pool.
	Client *http.Client
}

// Run loops until ctx is canceled. Iteration errors drop the URL in flight
// and move on; the frontier is the only durable queue, and a dropped URL is
// reintroduced when another page links to it.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		worked, err := w.ProcessOne(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Errorf("Worker iteration failed: %v", err)
		}
		// Rest after an empty claim, and after an error so a store outage
		// doesn't spin at full speed.
		if err != nil || !worked {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idleSleep):
			}
		}
	}
}

// ProcessOne claims and processes a single URL. It returns false when the
// frontier had nothing due, so the caller knows to idle.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	urls, err := w.Frontier.PopReady(ctx, 1)
	if err != nil {
		return false, err
	}
	if len(urls) == 0 {
		return false, nil
	}
	link := urls[0]

	visited, err := w.Visited.IsVisited(ctx, link)
	if err != nil {
		return true, err
	}
	if visited {
		return true, nil
	}

	u, err := ParseURL(link)
	if err != nil {
		// A frontier entry that can't even parse is unprocessable; drop it.
		log.Errorf("Dropping unparseable frontier entry %q: %v", link, err)
		return true, nil
	}

	allowed, err := w.Robots.IsAllowed(ctx, u)
	if err != nil {
		return true, err
	}
	if !allowed {
		log.Debugf("Not fetching due to robots rules: %v", link)
		if err := w.RobotsBlocked.Incr(ctx); err != nil {
			log.Warnf("Failed to count robots block: %v", err)
		}
		return true, w.Visited.MarkVisited(ctx, link, time.Time{})
	}

	domain := strings.ToLower(u.Hostname())
	allowedAt, reserved, err := w.RateLimiter.CheckAndReserve(ctx, domain, DomainCooldown())
	if err != nil {
		return true, err
	}
	if !reserved {
		// The domain's slot is taken; put the URL back for when it frees up.
		return true, w.Frontier.Push(ctx, link, allowedAt)
	}

	fr := w.fetch(ctx, u)
	ts := time.Now()

	var title string
	var links []string
	if fr.Outcome == FetchOK {
		parser := &HTMLParser{}
		parser.Parse(u, fr.Body, AllowedDomainSet())
		title = parser.Title
		for _, l := range parser.Links {
			links = append(links, l.String())
		}
	}

	page := &Page{
		URL:         link,
		Title:       title,
		HTML:        pageHTML(fr),
		Links:       links,
		Domain:      domain,
		Timestamp:   UnixSeconds(ts),
		Status:      fr.Status,
		ContentType: fr.ContentType,
	}
	if err := w.Store.SavePage(ctx, page); err != nil {
		return true, err
	}
	if err := w.Visited.MarkVisited(ctx, link, ts); err != nil {
		return true, err
	}

	if len(links) > 0 {
		seen, err := w.Visited.HasMany(ctx, links)
		if err != nil {
			return true, err
		}
		var fresh []string
		for i, l := range links {
			if !seen[i] {
				fresh = append(fresh, l)
			}
		}
		if len(fresh) > 0 {
			if err := w.Frontier.PushMany(ctx, fresh, time.Time{}); err != nil {
				return true, err
			}
		}
	}
	return true, nil
}

// pageHTML is the html field to persist: the lossy UTF-8 decode of the body
// for complete HTML pages, empty for everything else.
func pageHTML(fr FetchResult) string {
	if fr.Outcome != FetchOK {
		return ""
	}
	return strings.ToValidUTF8(string(fr.Body), "")
}
