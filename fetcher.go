package trawler

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/trawler-io/trawler/dnscache"
)

// FetchOutcome tags the result of one fetch cycle so the storage policy in
// the worker stays explicit: only FetchOK carries a body.
type FetchOutcome int

const (
	// FetchOK: HTTP 200, HTML content type, body within the size cap.
	FetchOK FetchOutcome = iota

	// FetchNonHTML: any response that is not a 200 HTML page. Not retried.
	FetchNonHTML

	// FetchOversized: a 200 HTML page whose body exceeded the configured
	// cap. Stored with empty html.
	FetchOversized

	// FetchTransportFailure: every attempt failed below the HTTP layer
	// (DNS, connect, read, timeout). Stored with status 0.
	FetchTransportFailure
)

// FetchResult is the outcome of the bounded-retry fetch of one URL.
type FetchResult struct {
	Outcome     FetchOutcome
	Status      int
	ContentType string
	Body        []byte
}

const fetchAttempts = 3

// fetchBackoffStart is the first inter-attempt sleep; it doubles after each
// failed attempt. A var so tests can shrink it.
var fetchBackoffStart = 500 * time.Millisecond

// NewTransport builds the keep-alive pooled transport shared by a worker
// pool. Dialing goes through the DNS cache, and the connection pool is
// bounded by the configured concurrency.
func NewTransport() http.RoundTripper {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	dial, err := dnscache.DialContext(dialer.DialContext, Config.Fetcher.MaxDNSCacheEntries)
	if err != nil {
		log.Errorf("Failed to construct dnscaching dialer, using plain dialer: %v", err)
		dial = dialer.DialContext
	}
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dial,
		MaxIdleConns:        Config.Fetcher.Concurrency,
		MaxConnsPerHost:     Config.Fetcher.Concurrency,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// NewHTTPClient wraps transport with the per-request timeout from config.
// The client is shared by every worker in a pool; connections are reused
// across requests via keep-alive.
func NewHTTPClient(transport http.RoundTripper) *http.Client {
	return &http.Client{
		Transport: transport,
		Timeout:   RequestTimeout(),
	}
}

// fetch GETs u with up to fetchAttempts attempts and exponential backoff.
// Any HTTP response counts as a successful attempt; only transport errors
// retry. Non-200 and non-HTML responses come back as FetchNonHTML with the
// body drained and discarded.
func (w *Worker) fetch(ctx context.Context, u *URL) FetchResult {
	backoff := fetchBackoffStart
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return FetchResult{Outcome: FetchTransportFailure}
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			// Not transient; retrying won't fix an unbuildable request.
			log.Errorf("Failed to create request object for %v: %v", u, err)
			return FetchResult{Outcome: FetchTransportFailure}
		}
		req.Header.Set("User-Agent", Config.Fetcher.UserAgent)

		res, err := w.Client.Do(req)
		if err != nil {
			log.Debugf("Error fetching %v (attempt %v): %v", u, attempt+1, err)
			continue
		}

		fr, err := readResponse(res)
		if err != nil {
			log.Debugf("Error reading body of %v (attempt %v): %v", u, attempt+1, err)
			continue
		}
		return fr
	}
	return FetchResult{Outcome: FetchTransportFailure}
}

// readResponse consumes res and classifies it. A read error mid-body is
// returned so the caller treats the attempt as a transport failure.
func readResponse(res *http.Response) (FetchResult, error) {
	defer res.Body.Close()

	ctype := res.Header.Get("Content-Type")
	fr := FetchResult{Status: res.StatusCode, ContentType: ctype}

	// A missing Content-Type is given the benefit of the doubt and read as
	// HTML.
	if res.StatusCode != http.StatusOK ||
		(ctype != "" && !strings.Contains(strings.ToLower(ctype), "text/html")) {
		io.Copy(io.Discard, res.Body)
		fr.Outcome = FetchNonHTML
		return fr, nil
	}

	// Read one byte past the cap: a body truncated by the server at exactly
	// the cap is indistinguishable from a complete small page, which is the
	// inherited oversize-detection behavior.
	maxSize := Config.Fetcher.MaxContentSizeBytes
	body, err := io.ReadAll(io.LimitReader(res.Body, maxSize+1))
	if err != nil {
		return FetchResult{}, err
	}
	if int64(len(body)) > maxSize {
		fr.Outcome = FetchOversized
		return fr, nil
	}

	fr.Outcome = FetchOK
	fr.Body = body
	return fr, nil
}
