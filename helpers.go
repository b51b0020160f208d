package trawler

import (
	log "github.com/sirupsen/logrus"
)

// MustParse is a helper for calling ParseURL when we know the string is a
// safe URL. It will panic if it fails.
func MustParse(ref string) *URL {
	u, err := ParseURL(ref)
	if err != nil {
		panic("Failed to parse URL: " + ref)
	}
	return u
}

// NormalizeSeeds canonicalizes a list of absolute seed URLs, dropping (with
// a warning) any that normalization rejects, so the frontier invariant that
// every stored URL is canonical holds for operator input too.
func NormalizeSeeds(raw []string) []string {
	var out []string
	for _, s := range raw {
		u := NormalizeHref(nil, s)
		if u == nil {
			log.Warnf("Skipping unusable seed URL %q", s)
			continue
		}
		out = append(out, u.String())
	}
	return out
}
