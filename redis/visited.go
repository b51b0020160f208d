package redis

import (
	"context"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/trawler-io/trawler"
)

// VisitedSet records which URLs have been processed, plus the time each was
// first handled. Membership lives in a plain set so checks stay O(1); the
// timestamps ride along in a hash under the same pipeline.
type VisitedSet struct {
	client *goredis.Client
}

func NewVisitedSet(client *goredis.Client) *VisitedSet {
	return &VisitedSet{client: client}
}

func (v *VisitedSet) IsVisited(ctx context.Context, url string) (bool, error) {
	return v.client.SIsMember(ctx, VisitedKey, url).Result()
}

// MarkVisited records url as processed at ts (now if zero). Marking an
// already-visited URL refreshes its timestamp but is otherwise a no-op.
func (v *VisitedSet) MarkVisited(ctx context.Context, url string, ts time.Time) error {
	if ts.IsZero() {
		ts = time.Now()
	}
	stamp := strconv.FormatFloat(trawler.UnixSeconds(ts), 'f', -1, 64)
	_, err := v.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.SAdd(ctx, VisitedKey, url)
		pipe.HSet(ctx, VisitedTSKey, url, stamp)
		return nil
	})
	return err
}

// HasMany answers membership for a batch of URLs in one round trip, in input
// order.
func (v *VisitedSet) HasMany(ctx context.Context, urls []string) ([]bool, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	members := make([]interface{}, len(urls))
	for i, u := range urls {
		members[i] = u
	}
	return v.client.SMIsMember(ctx, VisitedKey, members...).Result()
}

func (v *VisitedSet) Count(ctx context.Context) (int64, error) {
	return v.client.SCard(ctx, VisitedKey).Result()
}

// HostCounts walks the visited set and returns how many processed URLs each
// host has. Diagnostic use only.
func (v *VisitedSet) HostCounts(ctx context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	var cursor uint64
	for {
		urls, next, err := v.client.SScan(ctx, VisitedKey, cursor, "", 1000).Result()
		if err != nil {
			return nil, err
		}
		for _, u := range urls {
			if host := trawler.HostOf(u); host != "" {
				counts[host]++
			}
		}
		cursor = next
		if cursor == 0 {
			return counts, nil
		}
	}
}
