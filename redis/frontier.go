package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/trawler-io/trawler"
)

// Frontier is the shared work queue: a sorted set scored by the unix time
// each URL becomes eligible for fetching. Deferred URLs (rate limited) carry
// a future score and surface again once it passes.
type Frontier struct {
	client *goredis.Client
}

func NewFrontier(client *goredis.Client) *Frontier {
	return &Frontier{client: client}
}

// popReadyScript claims up to ARGV[1] due members atomically. Claiming one
// at a time and confirming each ZREM keeps concurrent callers from ever
// handing out the same URL twice; a lost race just moves on to the next
// candidate.
var popReadyScript = goredis.NewScript(`
local key = KEYS[1]
local max_count = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local claimed = {}
while #claimed < max_count do
    local due = redis.call('ZRANGEBYSCORE', key, '-inf', now, 'LIMIT', 0, 1)
    if #due == 0 then
        break
    end
    if redis.call('ZREM', key, due[1]) == 1 then
        table.insert(claimed, due[1])
    end
end
return claimed
`)

func scoreFor(readyAt time.Time) float64 {
	if readyAt.IsZero() {
		readyAt = time.Now()
	}
	return trawler.UnixSeconds(readyAt)
}

// Push schedules url to become ready at readyAt (now if zero). Re-pushing an
// existing member simply rewrites its score.
func (f *Frontier) Push(ctx context.Context, url string, readyAt time.Time) error {
	return f.client.ZAdd(ctx, FrontierKey, goredis.Z{Score: scoreFor(readyAt), Member: url}).Err()
}

// PushMany schedules a batch of URLs with a single round trip.
func (f *Frontier) PushMany(ctx context.Context, urls []string, readyAt time.Time) error {
	if len(urls) == 0 {
		return nil
	}
	score := scoreFor(readyAt)
	members := make([]goredis.Z, len(urls))
	for i, u := range urls {
		members[i] = goredis.Z{Score: score, Member: u}
	}
	return f.client.ZAdd(ctx, FrontierKey, members...).Err()
}

// PopReady atomically removes and returns up to max currently-due URLs,
// oldest ready time first. An empty slice means nothing is due.
func (f *Frontier) PopReady(ctx context.Context, max int) ([]string, error) {
	res, err := popReadyScript.Run(ctx, f.client, []string{FrontierKey},
		max, trawler.UnixSeconds(time.Now())).Result()
	if err != nil {
		return nil, err
	}
	items, _ := res.([]interface{})
	urls := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			urls = append(urls, s)
		}
	}
	return urls, nil
}

// Size returns the number of queued URLs, due or not.
func (f *Frontier) Size(ctx context.Context) (int64, error) {
	return f.client.ZCard(ctx, FrontierKey).Result()
}

// Clear drops the whole queue.
func (f *Frontier) Clear(ctx context.Context) error {
	return f.client.Del(ctx, FrontierKey).Err()
}

// HostCounts walks the whole frontier and returns how many queued URLs each
// host has. It is a diagnostic scan, not part of the crawl hot path.
func (f *Frontier) HostCounts(ctx context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	var cursor uint64
	for {
		// ZSCAN yields member/score pairs; we only care about members.
		pairs, next, err := f.client.ZScan(ctx, FrontierKey, cursor, "", 1000).Result()
		if err != nil {
			return nil, err
		}
		for i := 0; i+1 < len(pairs); i += 2 {
			if host := trawler.HostOf(pairs[i]); host != "" {
				counts[host]++
			}
		}
		cursor = next
		if cursor == 0 {
			return counts, nil
		}
	}
}
