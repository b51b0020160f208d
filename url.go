package trawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
)

// URL is the trawler URL object, which embeds *url.URL. The canonical string
// form produced by Normalize is the sole identity of a URL in the frontier,
// the visited set and the page store.
type URL struct {
	*url.URL
}

// normalizationFlags are the purell flags that produce trawler's canonical
// form: lowercase scheme and host, default ports stripped, fragment removed.
// The query is left exactly as written.
const normalizationFlags = purell.FlagLowercaseScheme |
	purell.FlagLowercaseHost |
	purell.FlagRemoveDefaultPort |
	purell.FlagRemoveFragment

// Schemes a link may use; anything else is dropped during normalization.
var acceptedSchemes = map[string]bool{
	"http":  true,
	"https": true,
}

// hrefBlockedPrefixes are rejected before any resolution happens.
var hrefBlockedPrefixes = []string{"mailto:", "javascript:", "data:"}

// blockedExtensions mark obvious binary resources we never fetch.
var blockedExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp",
	".pdf", ".zip", ".gz", ".tar", ".mp4", ".mp3",
}

// ParseURL is the trawler.URL equivalent of url.Parse.
func ParseURL(ref string) (*URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	return &URL{URL: u}, nil
}

// Normalize rewrites the URL in place to its canonical form. Normalizing an
// already-normal URL is a no-op.
func (u *URL) Normalize() {
	purell.NormalizeURL(u.URL, normalizationFlags)
	if u.Path == "" {
		u.Path = "/"
	}
}

// NormalizeHref resolves href against base and canonicalizes the result.
// base may be nil, in which case href must be absolute. Returns nil if the
// link should be dropped: empty, a blocked scheme prefix, unparseable, a
// non-http(s) scheme, or a path ending in a known binary extension.
func NormalizeHref(base *URL, href string) *URL {
	href = strings.TrimSpace(href)
	if href == "" {
		return nil
	}
	lower := strings.ToLower(href)
	for _, prefix := range hrefBlockedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return nil
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	if base != nil {
		ref = base.URL.ResolveReference(ref)
	}

	u := &URL{URL: ref}
	u.Normalize()

	if !acceptedSchemes[u.Scheme] || u.Host == "" {
		return nil
	}
	path := strings.ToLower(u.Path)
	for _, ext := range blockedExtensions {
		if strings.HasSuffix(path, ext) {
			return nil
		}
	}
	return u
}

// StatsHost returns the host used for link filtering and domain statistics:
// the lowercased hostname with a leading "www." stripped. Note that the rate
// limiter and robots cache deliberately do NOT use this form; politeness
// keys on the actual DNS host (see Hostname), so www.example.com and
// example.com are throttled independently. That asymmetry is inherited
// behavior; unifying it is an open design question.
func (u *URL) StatsHost() string {
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// HostOf is StatsHost for a raw URL string; returns "" when unparseable.
func HostOf(raw string) string {
	u, err := ParseURL(raw)
	if err != nil {
		return ""
	}
	return u.StatsHost()
}
