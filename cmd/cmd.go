/*
Package cmd provides access to build on the trawler CLI

This package makes it easy to create custom trawler binaries that use their
own storage handles. A crawler that uses the default for each of these
requires simply:

	func main() {
		cmd.Execute()
	}

To create your own binary that swaps in its own page store:

	func main() {
		cmd.Handles(&cmd.CrawlHandles{Store: NewMyStore()})
		cmd.Execute()
	}

cmd.Execute() blocks until the program has completed (usually by being
shutdown gracefully via SIGINT).
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/trawler-io/trawler"
	"github.com/trawler-io/trawler/console"
	"github.com/trawler-io/trawler/mongodb"
	"github.com/trawler-io/trawler/redis"
)

//
// P U B L I C
//

// CrawlHandles bundles the shared-state handles every command works
// against. Any nil field is filled in from Config when the command runs.
type CrawlHandles struct {
	Frontier      trawler.Frontier
	Visited       trawler.VisitedSet
	RateLimiter   trawler.RateLimiter
	Robots        trawler.RobotsPolicy
	Store         trawler.PageStore
	RobotsBlocked trawler.Counter
}

// Handles sets the global handles for this process
func Handles(h *CrawlHandles) {
	commander.Handles = h
}

// CommanderStreams holds the i/o functions that the test harness can spoof.
type CommanderStreams struct {
	Printf func(format string, args ...interface{})
	Errorf func(format string, args ...interface{})
	Exit   func(status int)
}

// Streams allows user to set global CommanderStreams object
func Streams(cstream CommanderStreams) CommanderStreams {
	old := commander.Streams
	commander.Streams = cstream
	return old
}

// Execute will run the command specified by the command line
func Execute() {
	commander.Execute()
}

//
// P R I V A T E
//

var commander struct {
	*cobra.Command
	Handles *CrawlHandles
	Streams CommanderStreams
}

// config is potentially set by CLI below
var config string

func initCommand() {
	if config != "" {
		if err := trawler.ReadConfigFile(config); err != nil {
			panic(err.Error())
		}
	}

	if commander.Streams.Printf == nil {
		commander.Streams.Printf = func(format string, args ...interface{}) {
			fmt.Printf(format, args...)
		}
	}
	if commander.Streams.Errorf == nil {
		commander.Streams.Errorf = func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format, args...)
		}
	}
	if commander.Streams.Exit == nil {
		commander.Streams.Exit = func(status int) {
			os.Exit(status)
		}
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Printf(format, args...)
	fmt.Println()
	os.Exit(1)
}

// initHandles fills in any nil handle from Config, connecting to Redis and
// MongoDB as needed.
func initHandles(ctx context.Context) *CrawlHandles {
	if commander.Handles == nil {
		commander.Handles = &CrawlHandles{}
	}
	h := commander.Handles

	needsRedis := h.Frontier == nil || h.Visited == nil || h.RateLimiter == nil ||
		h.Robots == nil || h.RobotsBlocked == nil
	if needsRedis {
		client, err := redis.NewClient(trawler.Config.Redis.URL)
		if err != nil {
			fatalf("Failed to connect to Redis at %v: %v", trawler.Config.Redis.URL, err)
		}
		if h.Frontier == nil {
			h.Frontier = redis.NewFrontier(client)
		}
		if h.Visited == nil {
			h.Visited = redis.NewVisitedSet(client)
		}
		if h.RateLimiter == nil {
			h.RateLimiter = redis.NewRateLimiter(client)
		}
		if h.Robots == nil {
			h.Robots = redis.NewRobots(client, trawler.Config.Fetcher.UserAgent, trawler.RobotsTTL())
		}
		if h.RobotsBlocked == nil {
			h.RobotsBlocked = redis.NewRobotsBlockedCounter(client)
		}
	}

	if h.Store == nil {
		store, err := mongodb.NewStore(ctx, trawler.Config.Mongo.URL, trawler.Config.Mongo.DB)
		if err != nil {
			fatalf("Failed to connect to MongoDB at %v: %v", trawler.Config.Mongo.URL, err)
		}
		if err := store.Init(ctx); err != nil {
			fatalf("Failed to prepare MongoDB indexes: %v", err)
		}
		h.Store = store
	}
	return h
}

func (h *CrawlHandles) datastore() *console.Datastore {
	return &console.Datastore{
		Frontier:      h.Frontier,
		Visited:       h.Visited,
		Store:         h.Store,
		RobotsBlocked: h.RobotsBlocked,
	}
}

// hostCounter is the diagnostic scan the domain-stats command uses; the
// Redis-backed frontier and visited set both provide it.
type hostCounter interface {
	HostCounts(ctx context.Context) (map[string]int64, error)
}

// domainRow is one line of the domain-stats report.
type domainRow struct {
	Domain  string `json:"domain"`
	Pages   int64  `json:"pages"`
	Visited int64  `json:"visited"`
	Queued  int64  `json:"queued"`
}

// mergeDomainRows combines the per-source counts into one row per domain,
// sorted by stored pages then visited count, descending.
func mergeDomainRows(pages []trawler.DomainCount, visited, queued map[string]int64, limit int) []domainRow {
	merged := map[string]*domainRow{}
	row := func(domain string) *domainRow {
		if r, ok := merged[domain]; ok {
			return r
		}
		r := &domainRow{Domain: domain}
		merged[domain] = r
		return r
	}
	for _, dc := range pages {
		row(dc.Domain).Pages = dc.Count
	}
	for domain, n := range visited {
		row(domain).Visited = n
	}
	for domain, n := range queued {
		row(domain).Queued = n
	}

	rows := make([]domainRow, 0, len(merged))
	for _, r := range merged {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Pages != rows[j].Pages {
			return rows[i].Pages > rows[j].Pages
		}
		if rows[i].Visited != rows[j].Visited {
			return rows[i].Visited > rows[j].Visited
		}
		return rows[i].Domain < rows[j].Domain
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// renderDomainTable lays the rows out as a fixed-width text table.
func renderDomainTable(rows []domainRow) string {
	width := len("DOMAIN")
	for _, r := range rows {
		if len(r.Domain) > width {
			width = len(r.Domain)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-*v  %8v  %8v  %8v\n", width, "DOMAIN", "PAGES", "VISITED", "QUEUED")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-*v  %8v  %8v  %8v\n", width, r.Domain, r.Pages, r.Visited, r.Queued)
	}
	return b.String()
}

// dashboardTemplate is the self-refreshing status page dump-status writes
// next to status.json.
const dashboardTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta http-equiv="refresh" content="15">
  <title>Trawler Status</title>
  <style>
    body { font-family: sans-serif; margin: 2em; color: #222; }
    table { border-collapse: collapse; margin-top: 1em; }
    th, td { border: 1px solid #ccc; padding: 0.4em 0.8em; text-align: left; }
    th { background: #f4f4f4; }
  </style>
</head>
<body>
  <h1>Trawler Status</h1>
  <p>Generated %v (page reloads every 15s; re-run dump-status to refresh the data)</p>
  <table>
    <tr><th>Visited URLs</th><td>%v</td></tr>
    <tr><th>Frontier size</th><td>%v</td></tr>
    <tr><th>Stored pages</th><td>%v</td></tr>
    <tr><th>Robots blocked</th><td>%v</td></tr>
  </table>
  <h2>Top domains</h2>
  <table>
    <tr><th>Domain</th><th>Pages</th></tr>
%v  </table>
</body>
</html>
`

func renderDashboard(info *console.StatusInfo) string {
	var rows strings.Builder
	for _, dc := range info.TopDomains {
		fmt.Fprintf(&rows, "    <tr><td>%v</td><td>%v</td></tr>\n", dc.Domain, dc.Count)
	}
	generated := trawler.FromUnixSeconds(info.GeneratedTS).Format("2006-01-02 15:04:05 -0700")
	return fmt.Sprintf(dashboardTemplate, generated,
		info.VisitedCount, info.FrontierSize, info.PageCount, info.RobotsBlocked,
		rows.String())
}

func writeStatusArtifacts(info *console.StatusInfo, outDir string) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outDir, "status.json"), data, 0644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, "dashboard.html"), []byte(renderDashboard(info)), 0644)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func init() {
	trawlerCommand := &cobra.Command{
		Use: "trawler",
	}

	trawlerCommand.PersistentFlags().StringVarP(&config,
		"config", "c", "", "path to a config file to load")

	var noConsole = false
	var concurrency int
	var maxPages int64
	var outputDir string
	runCommand := &cobra.Command{
		Use:   "run",
		Short: "start a crawler worker pool",
		Long: `Run seeds the frontier from SEED_URLS, starts the worker pool and blocks
until SIGINT or until --max-pages new pages have been visited. On the way
out it writes metrics.json and graph.csv to the output directory.

Any number of run invocations may point at the same Redis; they partition
the frontier between them.`,
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()
			printf := commander.Streams.Printf

			ctx, stop := signalContext()
			defer stop()

			handles := initHandles(ctx)
			if maxPages == 0 {
				maxPages = trawler.Config.Fetcher.MaxPages
			}

			if !noConsole {
				console.DS = handles.datastore()
				console.Start()
				defer console.Stop()
			}

			manager := &trawler.CrawlManager{
				Frontier:      handles.Frontier,
				Visited:       handles.Visited,
				RateLimiter:   handles.RateLimiter,
				Robots:        handles.Robots,
				Store:         handles.Store,
				RobotsBlocked: handles.RobotsBlocked,
				Concurrency:   concurrency,
				MaxPages:      maxPages,
				OutputDir:     outputDir,
			}
			metrics, err := manager.Run(ctx)
			if err != nil {
				fatalf("Crawl failed: %v", err)
			}
			printf("Crawled %v pages in %.1fs (%.2f pages/s)\n",
				metrics.PagesCrawled, metrics.DurationSeconds, metrics.PagesPerSecond)
		},
	}
	runCommand.Flags().BoolVarP(&noConsole, "no-console", "C", false, "Do not start the console")
	runCommand.Flags().IntVarP(&concurrency, "concurrency", "n", 0,
		"Worker count; defaults to the CONCURRENCY config setting")
	runCommand.Flags().Int64VarP(&maxPages, "max-pages", "m", 0,
		"Stop after this many newly visited pages; defaults to the MAX_PAGES config setting")
	runCommand.Flags().StringVarP(&outputDir, "output", "o", "output",
		"Directory for metrics.json and graph.csv")
	trawlerCommand.AddCommand(runCommand)

	seedCommand := &cobra.Command{
		Use:   "seed [urls...]",
		Short: "add seed URLs to the frontier",
		Long: `Seed queues the given URLs (or SEED_URLS from the config when none are
given) to be crawled immediately. URLs are canonicalized before queueing.`,
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()
			printf := commander.Streams.Printf

			raw := args
			if len(raw) == 0 {
				raw = trawler.Config.Fetcher.SeedURLs
			}
			if len(raw) == 0 {
				fatalf("No URLs to seed; pass them as arguments or set SEED_URLS")
			}
			seeds := trawler.NormalizeSeeds(raw)
			if len(seeds) == 0 {
				fatalf("None of the provided URLs were usable")
			}

			ctx, stop := signalContext()
			defer stop()
			handles := initHandles(ctx)
			if err := handles.Frontier.PushMany(ctx, seeds, time.Time{}); err != nil {
				fatalf("Failed to seed frontier: %v", err)
			}
			printf("Seeded %v URLs\n", len(seeds))
		},
	}
	trawlerCommand.AddCommand(seedCommand)

	statsCommand := &cobra.Command{
		Use:   "stats",
		Short: "print a crawl snapshot",
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()
			printf := commander.Streams.Printf

			ctx, stop := signalContext()
			defer stop()
			handles := initHandles(ctx)
			info, err := handles.datastore().Status(ctx)
			if err != nil {
				fatalf("Failed to gather status: %v", err)
			}
			printf("Visited URLs:   %v\n", info.VisitedCount)
			printf("Frontier size:  %v\n", info.FrontierSize)
			printf("Stored pages:   %v\n", info.PageCount)
			printf("Robots blocked: %v\n", info.RobotsBlocked)
			for _, dc := range info.TopDomains {
				printf("  %v: %v pages\n", dc.Domain, dc.Count)
			}
		},
	}
	trawlerCommand.AddCommand(statsCommand)

	var statusDir string
	dumpStatusCommand := &cobra.Command{
		Use:   "dump-status",
		Short: "write status.json and a dashboard page",
		Long: `Dump-status writes the current crawl snapshot to status.json plus a
self-refreshing dashboard.html in the output directory. Point a browser (or
a cron job) at it to watch a long crawl without running the console.`,
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()
			printf := commander.Streams.Printf

			ctx, stop := signalContext()
			defer stop()
			handles := initHandles(ctx)
			info, err := handles.datastore().Status(ctx)
			if err != nil {
				fatalf("Failed to gather status: %v", err)
			}
			if err := writeStatusArtifacts(info, statusDir); err != nil {
				fatalf("Failed to write status artifacts: %v", err)
			}
			printf("Status written to %v and %v\n",
				filepath.Join(statusDir, "status.json"), filepath.Join(statusDir, "dashboard.html"))
		},
	}
	dumpStatusCommand.Flags().StringVarP(&statusDir, "output", "o", "output",
		"Directory for status.json and dashboard.html")
	trawlerCommand.AddCommand(dumpStatusCommand)

	var statsLimit int
	var statsJSON bool
	domainStatsCommand := &cobra.Command{
		Use:   "domain-stats",
		Short: "print per-domain crawl counts",
		Long: `Domain-stats scans the frontier and visited set and aggregates the page
store, reporting stored, visited and queued counts per domain.`,
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()
			printf := commander.Streams.Printf

			ctx, stop := signalContext()
			defer stop()
			handles := initHandles(ctx)

			pages, err := handles.Store.DomainCounts(ctx, statsLimit)
			if err != nil {
				fatalf("Failed to aggregate page store: %v", err)
			}
			visited := map[string]int64{}
			if hc, ok := handles.Visited.(hostCounter); ok {
				if visited, err = hc.HostCounts(ctx); err != nil {
					fatalf("Failed to scan visited set: %v", err)
				}
			}
			queued := map[string]int64{}
			if hc, ok := handles.Frontier.(hostCounter); ok {
				if queued, err = hc.HostCounts(ctx); err != nil {
					fatalf("Failed to scan frontier: %v", err)
				}
			}

			rows := mergeDomainRows(pages, visited, queued, statsLimit)
			if statsJSON {
				data, err := json.MarshalIndent(rows, "", "  ")
				if err != nil {
					fatalf("Failed to encode rows: %v", err)
				}
				printf("%v\n", string(data))
				return
			}
			printf("%v", renderDomainTable(rows))
		},
	}
	domainStatsCommand.Flags().IntVarP(&statsLimit, "limit", "l", 15, "Max domains to report")
	domainStatsCommand.Flags().BoolVarP(&statsJSON, "json", "j", false, "Emit JSON instead of a table")
	trawlerCommand.AddCommand(domainStatsCommand)

	consoleCommand := &cobra.Command{
		Use:   "console",
		Short: "Start up the trawler console",
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()
			ctx, stop := signalContext()
			defer stop()
			handles := initHandles(ctx)
			console.DS = handles.datastore()
			console.Run(ctx)
		},
	}
	trawlerCommand.AddCommand(consoleCommand)

	commander.Command = trawlerCommand
}
