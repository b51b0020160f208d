package console

import (
	"context"
	"fmt"
	"time"

	"github.com/trawler-io/trawler"
)

// topDomainCount is how many domains the status snapshot ranks.
const topDomainCount = 10

// Datastore implements Model on the shared crawl state.
type Datastore struct {
	Frontier      trawler.Frontier
	Visited       trawler.VisitedSet
	Store         trawler.PageStore
	RobotsBlocked trawler.Counter
}

func (ds *Datastore) InsertLinks(ctx context.Context, links []string) []error {
	var errs []error
	var normalized []string
	for _, link := range links {
		u := trawler.NormalizeHref(nil, link)
		if u == nil {
			errs = append(errs, fmt.Errorf("unusable URL %q", link))
			continue
		}
		normalized = append(normalized, u.String())
	}
	if len(normalized) > 0 {
		if err := ds.Frontier.PushMany(ctx, normalized, time.Time{}); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (ds *Datastore) Status(ctx context.Context) (*StatusInfo, error) {
	info := &StatusInfo{GeneratedTS: trawler.UnixSeconds(time.Now())}

	var err error
	if info.VisitedCount, err = ds.Visited.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count visited: %v", err)
	}
	if info.FrontierSize, err = ds.Frontier.Size(ctx); err != nil {
		return nil, fmt.Errorf("failed to size frontier: %v", err)
	}
	if info.PageCount, err = ds.Store.CountPages(ctx); err != nil {
		return nil, fmt.Errorf("failed to count pages: %v", err)
	}
	if info.RobotsBlocked, err = ds.RobotsBlocked.Value(ctx); err != nil {
		return nil, fmt.Errorf("failed to read robots-blocked counter: %v", err)
	}
	if info.TopDomains, err = ds.Store.DomainCounts(ctx, topDomainCount); err != nil {
		return nil, fmt.Errorf("failed to rank domains: %v", err)
	}
	return info, nil
}
