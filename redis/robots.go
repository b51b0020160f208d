package redis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"

	"github.com/trawler-io/trawler"
)

// robotsFetchTimeout bounds a single robots.txt download.
const robotsFetchTimeout = 10 * time.Second

// Robots answers "may we fetch this URL?" per robots.txt, with the fetched
// robots bodies cached in Redis so every worker process shares one download
// per host per TTL. A host whose robots.txt is unreachable or errors is
// cached as an empty body, which allows everything; only Redis failures
// surface as errors.
type Robots struct {
	client    *goredis.Client
	UserAgent string
	TTL       time.Duration

	// HTTPClient fetches robots.txt bodies; swap it out in tests.
	HTTPClient *http.Client
}

func NewRobots(client *goredis.Client, userAgent string, ttl time.Duration) *Robots {
	return &Robots{
		client:     client,
		UserAgent:  userAgent,
		TTL:        ttl,
		HTTPClient: &http.Client{Timeout: robotsFetchTimeout},
	}
}

// IsAllowed reports whether u's robots.txt permits fetching it.
func (r *Robots) IsAllowed(ctx context.Context, u *trawler.URL) (bool, error) {
	text, err := r.robotsBody(ctx, u)
	if err != nil {
		return false, err
	}
	data, err := robotstxt.FromBytes([]byte(text))
	if err != nil {
		// An unparseable robots.txt doesn't get to block the host.
		log.Warnf("Failed to parse robots.txt for %v: %v", u.Hostname(), err)
		return true, nil
	}
	return data.FindGroup(r.UserAgent).Test(u.RequestURI()), nil
}

// robotsBody returns the cached robots.txt for u's host, refreshing the
// cache when the entry is missing or older than the TTL.
func (r *Robots) robotsBody(ctx context.Context, u *trawler.URL) (string, error) {
	host := strings.ToLower(u.Hostname())
	now := time.Now()

	fetchedAt := float64(0)
	stamp, err := r.client.HGet(ctx, RobotsTSKey, host).Result()
	if err != nil && err != goredis.Nil {
		return "", err
	}
	if err == nil {
		if fetchedAt, err = strconv.ParseFloat(stamp, 64); err != nil {
			log.Warnf("Dropping bad robots timestamp for %v: %v", host, err)
			fetchedAt = 0
		}
	}

	if trawler.UnixSeconds(now)-fetchedAt < r.TTL.Seconds() {
		text, err := r.client.HGet(ctx, RobotsCacheKey, host).Result()
		if err == nil {
			return text, nil
		}
		if err != goredis.Nil {
			return "", err
		}
		// Timestamp without a body; fall through and refetch.
	}

	text := r.fetchRobots(ctx, fmt.Sprintf("%v://%v/robots.txt", u.Scheme, u.Host))
	_, err = r.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, RobotsCacheKey, host, text)
		pipe.HSet(ctx, RobotsTSKey, host, strconv.FormatFloat(trawler.UnixSeconds(now), 'f', -1, 64))
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// fetchRobots downloads a robots.txt body. Any failure, including a >= 400
// status, comes back as the empty string.
func (r *Robots) fetchRobots(ctx context.Context, robotsURL string) string {
	reqCtx, cancel := context.WithTimeout(ctx, robotsFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", r.UserAgent)

	res, err := r.HTTPClient.Do(req)
	if err != nil {
		log.Debugf("Failed to fetch %v: %v", robotsURL, err)
		return ""
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		io.Copy(io.Discard, res.Body)
		return ""
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return ""
	}
	return strings.ToValidUTF8(string(body), "")
}
