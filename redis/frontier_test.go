package redis

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontierPushPop(t *testing.T) {
	_, client := newTestClient(t)
	f := NewFrontier(client)
	ctx := context.Background()

	require.NoError(t, f.Push(ctx, "http://test.com/", time.Time{}))
	require.NoError(t, f.Push(ctx, "http://test.com/later", time.Now().Add(time.Hour)))

	size, err := f.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)

	urls, err := f.PopReady(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://test.com/"}, urls)

	// The future entry is still queued but not due.
	size, err = f.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)

	urls, err = f.PopReady(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestFrontierPopOrdersByReadyTime(t *testing.T) {
	_, client := newTestClient(t)
	f := NewFrontier(client)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, f.Push(ctx, "http://test.com/c", now.Add(-time.Second)))
	require.NoError(t, f.Push(ctx, "http://test.com/a", now.Add(-3*time.Second)))
	require.NoError(t, f.Push(ctx, "http://test.com/b", now.Add(-2*time.Second)))

	urls, err := f.PopReady(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://test.com/a", "http://test.com/b", "http://test.com/c"}, urls)
}

func TestFrontierRepushRewritesReadyTime(t *testing.T) {
	_, client := newTestClient(t)
	f := NewFrontier(client)
	ctx := context.Background()

	require.NoError(t, f.Push(ctx, "http://test.com/", time.Time{}))
	require.NoError(t, f.Push(ctx, "http://test.com/", time.Now().Add(time.Hour)))

	size, err := f.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)

	urls, err := f.PopReady(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

// Concurrent pops must partition the queue: no URL handed out twice, none
// lost.
func TestFrontierConcurrentPopDisjoint(t *testing.T) {
	_, client := newTestClient(t)
	f := NewFrontier(client)
	ctx := context.Background()

	var pushed []string
	for i := 0; i < 60; i++ {
		u := "http://test.com/page" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		pushed = append(pushed, u)
	}
	require.NoError(t, f.PushMany(ctx, pushed, time.Now().Add(-time.Second)))

	var mu sync.Mutex
	var popped []string
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				urls, err := f.PopReady(ctx, 5)
				if !assert.NoError(t, err) {
					return
				}
				if len(urls) == 0 {
					return
				}
				mu.Lock()
				popped = append(popped, urls...)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	sort.Strings(pushed)
	sort.Strings(popped)
	assert.Equal(t, pushed, popped)
}

func TestFrontierHostCounts(t *testing.T) {
	_, client := newTestClient(t)
	f := NewFrontier(client)
	ctx := context.Background()

	require.NoError(t, f.PushMany(ctx, []string{
		"http://a.com/1",
		"http://a.com/2",
		"http://b.com/1",
	}, time.Time{}))

	counts, err := f.HostCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a.com": 2, "b.com": 1}, counts)
}
