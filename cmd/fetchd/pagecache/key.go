// Package pagecache maps listing requests onto deterministic cache keys
// and decides whether a stored page group is servable.
package pagecache

import (
	"net/url"
	"strings"
)

// PageSize is the fixed page-group size. It is both the truncation bound
// applied to upstream responses and the completeness threshold for cache
// hits; keeping it a single constant keeps the two coupled on purpose.
const PageSize = 10

// FirstPageToken is the cursor sentinel for an uncursored first page
const FirstPageToken = "page_1"

const keySeparator = "__"

// Filters is the normalized filter set a listing request carries.
// Zero values mean "default", substituted during key derivation.
type Filters struct {
	Query       string
	Subreddit   string
	ContentType string
	Sort        string
	Time        string
}

func (f Filters) normalized() Filters {
	if f.Subreddit == "" {
		f.Subreddit = "all"
	}
	if f.ContentType == "" {
		f.ContentType = "all"
	}
	if f.Sort == "" {
		f.Sort = "hot"
	}
	if f.Time == "" {
		f.Time = "all"
	}
	return f
}

// NormalizeCursor maps an upstream continuation token to its t3_
// fullname form, or to the first-page sentinel when absent
func NormalizeCursor(after string) string {
	if after == "" || after == FirstPageToken {
		return FirstPageToken
	}
	if strings.HasPrefix(after, "t3_") {
		return after
	}
	return "t3_" + after
}

// BuildKey derives the cache key for one (cursor, filter set) pair.
// Equal logical requests always yield byte-identical keys: defaults are
// substituted, every field is percent-encoded, and the join order is
// fixed regardless of how the caller assembled the filters.
func BuildKey(cursor string, f Filters) string {
	n := f.normalized()

	return strings.Join([]string{
		url.QueryEscape(cursor),
		url.QueryEscape(strings.ToLower(n.Subreddit)),
		url.QueryEscape(strings.ToLower(n.ContentType)),
		url.QueryEscape(strings.ToLower(n.Sort)),
		url.QueryEscape(n.Query),
		url.QueryEscape(strings.ToLower(n.Time)),
	}, keySeparator)
}
