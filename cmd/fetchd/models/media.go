package models

import (
	"time"

	"github.com/goccy/go-json"
)

// MediaAnalysis holds ffprobe results for one media URL
type MediaAnalysis struct {
	URL        string  `json:"url"`
	Type       string  `json:"type"`
	FrameCount int     `json:"frame_count"`
	Animated   bool    `json:"animated"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Duration   float64 `json:"duration"`
}

// Icon is a cached community icon. IconURL may be null: a community we
// looked up and found iconless is still a cache hit.
type Icon struct {
	Subreddit string
	IconURL   *string
	CreatedAt time.Time
}

// SearchCacheEntry is a cached subreddit search result set
type SearchCacheEntry struct {
	QueryTerm string
	Results   json.RawMessage
	CreatedAt time.Time
}

// SavedImage is one row of the image news cache
type SavedImage struct {
	RedditPostID string  `json:"reddit_post_id"`
	Subreddit    string  `json:"subreddit"`
	Title        string  `json:"title"`
	URL          string  `json:"url"`
	Thumbnail    *string `json:"thumbnail"`
}
