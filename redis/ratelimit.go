package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/trawler-io/trawler"
)

// RateLimiter enforces the per-domain cooldown across every worker process.
// The whole check-and-reserve step runs as one Lua script, so two workers
// racing on the same domain can never both win the same window.
type RateLimiter struct {
	client *goredis.Client
}

func NewRateLimiter(client *goredis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// checkAndReserveScript reads the domain's next-allowed time and, when the
// window is open, writes the next one in the same atomic step. The allowed
// time comes back as a string so the fractional seconds survive the Lua
// reply conversion, which truncates numbers to integers.
var checkAndReserveScript = goredis.NewScript(`
local key = KEYS[1]
local domain = ARGV[1]
local now = tonumber(ARGV[2])
local cooldown = tonumber(ARGV[3])
local next_ts = tonumber(redis.call('HGET', key, domain) or '0')
if now >= next_ts then
    redis.call('HSET', key, domain, now + cooldown)
    return {tostring(now), 1}
end
return {tostring(next_ts), 0}
`)

// CheckAndReserve asks whether domain may be fetched right now. When it may,
// the cooldown window is reserved and reserved is true; otherwise allowedAt
// says when to try again.
func (r *RateLimiter) CheckAndReserve(ctx context.Context, domain string, cooldown time.Duration) (time.Time, bool, error) {
	res, err := checkAndReserveScript.Run(ctx, r.client, []string{RateKey},
		domain, trawler.UnixSeconds(time.Now()), cooldown.Seconds()).Result()
	if err != nil {
		return time.Time{}, false, err
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return time.Time{}, false, fmt.Errorf("unexpected rate limiter reply: %v", res)
	}
	stamp, ok := vals[0].(string)
	if !ok {
		return time.Time{}, false, fmt.Errorf("unexpected rate limiter timestamp: %v", vals[0])
	}
	allowedAt, err := strconv.ParseFloat(stamp, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("unexpected rate limiter timestamp: %v", err)
	}
	reserved, _ := vals[1].(int64)
	return trawler.FromUnixSeconds(allowedAt), reserved == 1, nil
}
