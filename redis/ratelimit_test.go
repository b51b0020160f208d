package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trawler-io/trawler"
)

func TestRateLimiterReserveAndDefer(t *testing.T) {
	_, client := newTestClient(t)
	r := NewRateLimiter(client)
	ctx := context.Background()

	before := time.Now()
	allowedAt, reserved, err := r.CheckAndReserve(ctx, "test.com", time.Second)
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.WithinDuration(t, before, allowedAt, time.Second)

	// The window is taken; the second caller learns when it reopens.
	allowedAt, reserved, err = r.CheckAndReserve(ctx, "test.com", time.Second)
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.GreaterOrEqual(t, trawler.UnixSeconds(allowedAt), trawler.UnixSeconds(before)+1.0-0.01)

	// Other domains are unaffected.
	_, reserved, err = r.CheckAndReserve(ctx, "other.com", time.Second)
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestRateLimiterWindowReopens(t *testing.T) {
	_, client := newTestClient(t)
	r := NewRateLimiter(client)
	ctx := context.Background()

	_, reserved, err := r.CheckAndReserve(ctx, "test.com", 20*time.Millisecond)
	require.NoError(t, err)
	require.True(t, reserved)

	time.Sleep(40 * time.Millisecond)

	_, reserved, err = r.CheckAndReserve(ctx, "test.com", 20*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, reserved)
}

// Racing workers on one domain: exactly one wins the window.
func TestRateLimiterConcurrentSingleWinner(t *testing.T) {
	_, client := newTestClient(t)
	r := NewRateLimiter(client)
	ctx := context.Background()

	var wg sync.WaitGroup
	wins := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, reserved, err := r.CheckAndReserve(ctx, "test.com", time.Minute)
			if assert.NoError(t, err) {
				wins <- reserved
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for reserved := range wins {
		if reserved {
			won++
		}
	}
	assert.Equal(t, 1, won)
}
