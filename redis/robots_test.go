package redis

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trawler-io/trawler"
)

func robotsServer(t *testing.T, fetches *int64, body string, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/robots.txt" {
			http.NotFound(w, req)
			return
		}
		atomic.AddInt64(fetches, 1)
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRobotsDisallow(t *testing.T) {
	var fetches int64
	server := robotsServer(t, &fetches, "User-agent: *\nDisallow: /private/\n", http.StatusOK)

	_, client := newTestClient(t)
	r := NewRobots(client, "TestAgent/1.0", time.Hour)
	ctx := context.Background()

	allowed, err := r.IsAllowed(ctx, trawler.MustParse(server.URL+"/private/page"))
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = r.IsAllowed(ctx, trawler.MustParse(server.URL+"/public/page"))
	require.NoError(t, err)
	assert.True(t, allowed)

	// Both checks share one cached download.
	assert.Equal(t, int64(1), atomic.LoadInt64(&fetches))
}

func TestRobotsAgentSpecificGroup(t *testing.T) {
	var fetches int64
	server := robotsServer(t, &fetches,
		"User-agent: TestAgent\nDisallow: /\n\nUser-agent: *\nDisallow:\n", http.StatusOK)

	_, client := newTestClient(t)
	r := NewRobots(client, "TestAgent/1.0", time.Hour)

	allowed, err := r.IsAllowed(context.Background(), trawler.MustParse(server.URL+"/page"))
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRobotsFetchFailureAllowsAll(t *testing.T) {
	var fetches int64
	server := robotsServer(t, &fetches, "you lose", http.StatusInternalServerError)

	_, client := newTestClient(t)
	r := NewRobots(client, "TestAgent/1.0", time.Hour)
	ctx := context.Background()

	allowed, err := r.IsAllowed(ctx, trawler.MustParse(server.URL+"/anything"))
	require.NoError(t, err)
	assert.True(t, allowed)

	// The failure is cached like a body; no refetch within the TTL.
	allowed, err = r.IsAllowed(ctx, trawler.MustParse(server.URL+"/other"))
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(1), atomic.LoadInt64(&fetches))
}

func TestRobotsUnreachableHostAllowsAll(t *testing.T) {
	_, client := newTestClient(t)
	r := NewRobots(client, "TestAgent/1.0", time.Hour)
	r.HTTPClient.Timeout = 100 * time.Millisecond

	allowed, err := r.IsAllowed(context.Background(),
		trawler.MustParse("http://localhost:1/page"))
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRobotsCacheExpiry(t *testing.T) {
	var fetches int64
	server := robotsServer(t, &fetches, "User-agent: *\nDisallow: /private/\n", http.StatusOK)

	_, client := newTestClient(t)
	r := NewRobots(client, "TestAgent/1.0", 30*time.Millisecond)
	ctx := context.Background()
	u := trawler.MustParse(server.URL + "/private/page")

	_, err := r.IsAllowed(ctx, u)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	allowed, err := r.IsAllowed(ctx, u)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, int64(2), atomic.LoadInt64(&fetches))
}
