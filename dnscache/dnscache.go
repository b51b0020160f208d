/*
Package dnscache implements a DialContext function that caches DNS
resolutions.
*/
package dnscache

import (
	"context"
	"net"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// recheckAfter is how long a cached resolution (or failure) is trusted
// before the next dial re-resolves the host.
const recheckAfter = 5 * time.Minute

// DialFunc matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// DialContext wraps the given dial function with caching of DNS
// resolutions. When a hostname is found in the cache the wrapped dial is
// called with the remote IP address instead of the hostname, so no lookup
// need be performed. Failures are cached too, so hosts that won't resolve
// don't slow the crawl down with repeated lookups.
//
// If wrappedDial is nil, a default net.Dialer is used.
func DialContext(wrappedDial DialFunc, maxEntries int) (DialFunc, error) {
	if wrappedDial == nil {
		wrappedDial = (&net.Dialer{}).DialContext
	}
	cache, err := lru.New(maxEntries)
	if err != nil {
		return nil, err
	}
	c := &dnsCache{
		wrappedDial: wrappedDial,
		cache:       cache,
	}
	return c.cachingDial, nil
}

type dnsCache struct {
	wrappedDial DialFunc
	cache       *lru.Cache
	mu          sync.Mutex
}

type hostRecord struct {
	ipAddr    string
	err       error
	lastQuery time.Time
}

func (c *dnsCache) cachingDial(ctx context.Context, network, addr string) (net.Conn, error) {
	key := network + addr
	c.mu.Lock()
	entry, ok := c.cache.Get(key)
	c.mu.Unlock()

	if ok {
		record := entry.(hostRecord)
		if time.Since(record.lastQuery) <= recheckAfter {
			if record.err != nil {
				return nil, record.err
			}
			return c.wrappedDial(ctx, network, record.ipAddr)
		}
	}
	return c.cacheHost(ctx, network, addr)
}

// cacheHost dials addr directly and caches the resolved remote address (or
// the failure), overwriting any previous entry.
func (c *dnsCache) cacheHost(ctx context.Context, network, addr string) (net.Conn, error) {
	key := network + addr
	conn, err := c.wrappedDial(ctx, network, addr)
	record := hostRecord{lastQuery: time.Now()}
	if err != nil {
		record.err = err
	} else {
		record.ipAddr = conn.RemoteAddr().String()
	}

	c.mu.Lock()
	c.cache.Add(key, record)
	c.mu.Unlock()
	return conn, err
}
