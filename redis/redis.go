/*
Package redis holds the Redis-backed coordination state shared by every
worker process: the frontier, the visited set, the per-domain rate limiter,
the robots cache and the run counters.

All cross-worker mutations go through single-round-trip atomic operations
(Lua scripts or pipelines) on the keys below, so any number of processes can
cooperate against one Redis without further locking.
*/
package redis

import (
	goredis "github.com/redis/go-redis/v9"
)

// Key layout. External tooling depends on these names; change with care.
const (
	// FrontierKey is a sorted set of url -> ready time (unix seconds).
	FrontierKey = "frontier:zset"

	// VisitedKey is the set of processed URLs; VisitedTSKey maps each to
	// its first-visited time.
	VisitedKey   = "visited:set"
	VisitedTSKey = "visited:ts"

	// RateKey maps host -> next allowed fetch time.
	RateKey = "rate:domains"

	// RobotsCacheKey maps host -> robots.txt body; RobotsTSKey maps host ->
	// fetch time.
	RobotsCacheKey = "robots:cache"
	RobotsTSKey    = "robots:ts"

	// RobotsBlockedKey counts robots denials for the current run.
	RobotsBlockedKey = "metrics:robots_blocked"
)

// NewClient builds a client from a redis:// URL.
func NewClient(rawURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}
