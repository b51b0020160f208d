package trawler

import "time"

// Page is one crawled-page record. URL is the canonical form and the unique
// key in the page store. HTML is empty for non-HTML responses, oversized
// bodies and fetch failures. Status is the HTTP code, or 0 on transport
// failure. Timestamp is seconds since epoch, matching the wire format of the
// frontier and visited set.
type Page struct {
	URL         string   `bson:"url" json:"url"`
	Title       string   `bson:"title" json:"title"`
	HTML        string   `bson:"html" json:"html"`
	Links       []string `bson:"links" json:"links"`
	Domain      string   `bson:"domain" json:"domain"`
	Timestamp   float64  `bson:"timestamp" json:"timestamp"`
	Status      int      `bson:"status" json:"status"`
	ContentType string   `bson:"content_type" json:"content_type"`
}

// UnixSeconds converts t to the float seconds-since-epoch form used in all
// persisted state.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// FromUnixSeconds is the inverse of UnixSeconds.
func FromUnixSeconds(s float64) time.Time {
	return time.Unix(0, int64(s*float64(time.Second)))
}
