package main

import "time"

const (
	// DefaultFeedCount is how many feed items -draft-feed drafts from
	DefaultFeedCount = 5

	// draftedTTL keeps drafted-source keys in Redis after the latest draft
	draftedTTL = 90 * 24 * time.Hour
)

// FeedPresets maps friendly names to feeds worth drafting proposals from
var FeedPresets = map[string]string{
	"hn":      "https://hnrss.org/best",
	"tr":      "https://www.technologyreview.com/feed/",
	"science": "https://www.sciencedaily.com/rss/top/science.xml",
	"space":   "https://www.nasa.gov/news-release/feed/",
}

// ResolveFeedURL returns the preset URL for a known name and the input
// unchanged otherwise.
func ResolveFeedURL(feedInput string) string {
	if url, exists := FeedPresets[feedInput]; exists {
		return url
	}
	return feedInput
}
