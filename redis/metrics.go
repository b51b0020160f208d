package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
)

// Counter is a shared run counter backed by a single Redis key.
type Counter struct {
	client *goredis.Client
	key    string
}

func NewCounter(client *goredis.Client, key string) *Counter {
	return &Counter{client: client, key: key}
}

// NewRobotsBlockedCounter returns the counter of robots.txt denials.
func NewRobotsBlockedCounter(client *goredis.Client) *Counter {
	return NewCounter(client, RobotsBlockedKey)
}

func (c *Counter) Incr(ctx context.Context) error {
	return c.client.Incr(ctx, c.key).Err()
}

func (c *Counter) Value(ctx context.Context) (int64, error) {
	val, err := c.client.Get(ctx, c.key).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	return val, err
}

func (c *Counter) Reset(ctx context.Context) error {
	return c.client.Set(ctx, c.key, 0, 0).Err()
}
