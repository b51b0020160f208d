package trawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// monitorInterval is how often the supervisor polls the visited cardinality
// when a max-pages stop condition is set.
const monitorInterval = 200 * time.Millisecond

// maxGraphEdges caps the post-run graph.csv export.
const maxGraphEdges = 200000

// RunMetrics is the post-run summary the manager writes to
// output/metrics.json.
type RunMetrics struct {
	PagesCrawled    int64            `json:"pages_crawled"`
	DurationSeconds float64          `json:"duration_seconds"`
	PagesPerSecond  float64          `json:"pages_per_second"`
	StartTS         float64          `json:"start_ts"`
	EndTS           float64          `json:"end_ts"`
	StatusCounts    map[string]int64 `json:"status_counts"`
	RobotsBlocked   int64            `json:"robots_blocked"`
}

// CrawlManager configures and runs one crawl: it seeds the frontier, spawns
// the worker pool, watches the stop condition and produces the metrics
// summary. The calling code must set the shared store handles, then call
// Run.
type CrawlManager struct {
	Frontier      Frontier
	Visited       VisitedSet
	RateLimiter   RateLimiter
	Robots        RobotsPolicy
	Store         PageStore
	RobotsBlocked Counter

	// Concurrency is the worker count; defaults to Config when 0.
	Concurrency int

	// MaxPages stops the run once the visited set has grown by this many
	// entries; 0 means run until ctx is canceled.
	MaxPages int64

	// Transport can be set to override the default network transport the
	// worker pool is going to use. Good for faking remote servers in tests.
	Transport http.RoundTripper

	// OutputDir receives metrics.json and graph.csv; defaults to "output".
	OutputDir string
}

// Run blocks until ctx is canceled or the max-pages condition trips, then
// returns the run summary. The returned metrics are valid even when the
// artifact writes fail; those failures are logged, not returned.
func (m *CrawlManager) Run(ctx context.Context) (*RunMetrics, error) {
	// Resolve defaults into locals; Run must not rewrite the manager's
	// configuration.
	concurrency := m.Concurrency
	if concurrency < 1 {
		concurrency = Config.Fetcher.Concurrency
	}
	transport := m.Transport
	if transport == nil {
		transport = NewTransport()
	}
	client := NewHTTPClient(transport)

	// Per-run counters start from zero.
	if err := m.RobotsBlocked.Reset(ctx); err != nil {
		log.Warnf("Failed to reset robots-blocked counter: %v", err)
	}

	if seeds := NormalizeSeeds(Config.Fetcher.SeedURLs); len(seeds) > 0 {
		if err := m.Frontier.PushMany(ctx, seeds, time.Time{}); err != nil {
			return nil, fmt.Errorf("failed to seed frontier: %v", err)
		}
		log.Infof("Seeded %v URLs", len(seeds))
	}

	start := time.Now()
	startVisited, err := m.Visited.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read starting visited count: %v", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var group errgroup.Group
	log.Infof("Starting %v workers", concurrency)
	for i := 0; i < concurrency; i++ {
		group.Go(func() error {
			w := &Worker{
				Frontier:      m.Frontier,
				Visited:       m.Visited,
				RateLimiter:   m.RateLimiter,
				Robots:        m.Robots,
				Store:         m.Store,
				RobotsBlocked: m.RobotsBlocked,
				Client:        client,
			}
			w.Run(runCtx)
			return nil
		})
	}

	if m.MaxPages > 0 {
		target := startVisited + m.MaxPages
		group.Go(func() error {
			ticker := time.NewTicker(monitorInterval)
			defer ticker.Stop()
			for {
				select {
				case <-runCtx.Done():
					return nil
				case <-ticker.C:
				}
				curr, err := m.Visited.Count(runCtx)
				if err != nil {
					if runCtx.Err() != nil {
						return nil
					}
					log.Warnf("Stop-condition monitor failed to count visited: %v", err)
					continue
				}
				if curr >= target {
					log.Infof("Visited %v >= target %v, stopping workers", curr, target)
					cancel()
					return nil
				}
			}
		})
	}

	group.Wait()
	end := time.Now()

	// The run context is dead by now (signal or stop condition); the
	// summary reads use their own deadline.
	sumCtx, sumCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer sumCancel()

	metrics := &RunMetrics{
		StartTS: UnixSeconds(start),
		EndTS:   UnixSeconds(end),
	}
	if curr, err := m.Visited.Count(sumCtx); err != nil {
		log.Warnf("Failed to read final visited count: %v", err)
	} else if curr > startVisited {
		metrics.PagesCrawled = curr - startVisited
	}
	metrics.DurationSeconds = end.Sub(start).Seconds()
	if metrics.DurationSeconds > 0 {
		metrics.PagesPerSecond = float64(metrics.PagesCrawled) / metrics.DurationSeconds
	}

	if counts, err := m.Store.StatusCountsSince(sumCtx, start); err != nil {
		log.Warnf("Failed to aggregate status counts: %v", err)
	} else {
		metrics.StatusCounts = make(map[string]int64, len(counts))
		for status, n := range counts {
			metrics.StatusCounts[strconv.Itoa(status)] = n
		}
	}
	if blocked, err := m.RobotsBlocked.Value(sumCtx); err != nil {
		log.Warnf("Failed to read robots-blocked counter: %v", err)
	} else {
		metrics.RobotsBlocked = blocked
	}

	if err := m.writeArtifacts(sumCtx, metrics, start); err != nil {
		log.Errorf("Failed to write run artifacts: %v", err)
	}

	log.Infof("Run complete: pages=%v, pps=%.2f", metrics.PagesCrawled, metrics.PagesPerSecond)
	return metrics, nil
}

// writeArtifacts dumps metrics.json and the src,dst edge list of pages
// stored during this run.
func (m *CrawlManager) writeArtifacts(ctx context.Context, metrics *RunMetrics, since time.Time) error {
	outDir := m.OutputDir
	if outDir == "" {
		outDir = "output"
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outDir, "metrics.json"), data, 0644); err != nil {
		return err
	}

	graph, err := os.Create(filepath.Join(outDir, "graph.csv"))
	if err != nil {
		return err
	}
	defer graph.Close()
	fmt.Fprintln(graph, "src,dst")

	written := 0
	err = m.Store.EachPageSince(ctx, since, func(url string, links []string) bool {
		for _, dst := range links {
			fmt.Fprintf(graph, "%v,%v\n", url, dst)
			written++
			if written >= maxGraphEdges {
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}
	log.Infof("Metrics at %v, graph at %v (%v edges)",
		filepath.Join(outDir, "metrics.json"), filepath.Join(outDir, "graph.csv"), written)
	return nil
}
