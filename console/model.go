package console

import (
	"context"

	"github.com/trawler-io/trawler"
)

// StatusInfo is the crawl snapshot the console renders and serves as JSON.
type StatusInfo struct {
	GeneratedTS   float64               `json:"generated_ts"`
	VisitedCount  int64                 `json:"visited_count"`
	FrontierSize  int64                 `json:"frontier_size"`
	PageCount     int64                 `json:"page_count"`
	RobotsBlocked int64                 `json:"robots_blocked"`
	TopDomains    []trawler.DomainCount `json:"top_domains"`
}

type Model interface {
	// InsertLinks queues a set of URLs to be crawled, returning one error
	// per link that could not be queued.
	InsertLinks(ctx context.Context, links []string) []error

	// Status gathers the current crawl snapshot.
	Status(ctx context.Context) (*StatusInfo, error)
}

// DS is the global Model used by all controllers.
var DS Model
