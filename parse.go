package trawler

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// HTMLParser parses html passed from the fetcher. A new struct is intended
// to have Parse() called on it, which will populate its member variables for
// reading.
type HTMLParser struct {
	// Title is the trimmed text of the first <title> element, or "".
	Title string

	// Links found on the parsed page: canonical, document order, deduped.
	Links []*URL
}

// Parse parses the given content body as HTML and populates the instance
// variables as it is able. Markup is decoded leniently (lossy conversion to
// UTF-8) and parse errors cause the parser to finish with whatever it has
// found so far. If allowedDomains is non-nil, a link is kept only when its
// www-stripped host appears in the set. This method resets its instance
// variables if run repeatedly.
func (p *HTMLParser) Parse(base *URL, body []byte, allowedDomains map[string]bool) {
	p.Title = ""
	p.Links = nil

	utf8Reader, err := charset.NewReader(bytes.NewReader(body), "text/html")
	if err != nil {
		return
	}
	tokenizer := html.NewTokenizer(utf8Reader)

	seen := map[string]bool{}
	var titleBuf bytes.Buffer
	inTitle := false
	titleDone := false

	for {
		tokenType := tokenizer.Next()
		switch tokenType {
		case html.ErrorToken:
			// io.EOF on success, anything else on malformed input; either
			// way we keep what we have.
			p.Title = strings.TrimSpace(titleBuf.String())
			return

		case html.TextToken:
			if inTitle && !titleDone {
				titleBuf.Write(tokenizer.Text())
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			tagNameB, hasAttrs := tokenizer.TagName()
			tagName := string(tagNameB)
			if tagName == "title" && tokenType == html.StartTagToken && !titleDone {
				inTitle = true
			}
			if tagName == "a" && hasAttrs {
				p.parseAnchorAttrs(tokenizer, base, allowedDomains, seen)
			}

		case html.EndTagToken:
			tagNameB, _ := tokenizer.TagName()
			if string(tagNameB) == "title" && inTitle {
				inTitle = false
				titleDone = true
			}
		}
	}
}

// parseAnchorAttrs iterates over all of the attributes in the current anchor
// token and adds a link when an href attribute survives normalization and
// the allowed-domains filter.
func (p *HTMLParser) parseAnchorAttrs(tokenizer *html.Tokenizer, base *URL, allowedDomains map[string]bool, seen map[string]bool) {
	for {
		key, val, moreAttr := tokenizer.TagAttr()
		if bytes.Equal(key, []byte("href")) {
			u := NormalizeHref(base, string(val))
			if u == nil {
				// dropped by normalization
			} else if allowedDomains != nil && !allowedDomains[u.StatsHost()] {
				// outside the configured domains
			} else if canonical := u.String(); !seen[canonical] {
				seen[canonical] = true
				p.Links = append(p.Links, u)
			}
		}
		if !moreAttr {
			return
		}
	}
}
