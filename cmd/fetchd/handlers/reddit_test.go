package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubredditSearchQuery(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		query string
		ok    bool
	}{
		{
			"subreddit search",
			"https://www.reddit.com/subreddits/search?q=golang&limit=10",
			"golang", true,
		},
		{
			"encoded query",
			"https://www.reddit.com/subreddits/search?q=machine%20learning",
			"machine learning", true,
		},
		{
			"plain listing",
			"https://www.reddit.com/r/videos/hot.json",
			"", false,
		},
		{
			"search without query",
			"https://www.reddit.com/subreddits/search?limit=10",
			"", false,
		},
		{
			"post search is not subreddit search",
			"https://www.reddit.com/r/all/search?q=golang",
			"", false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, ok := subredditSearchQuery(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.query, query)
		})
	}
}

func proxyRequest(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewRedditHandler(nil, nil)
	require.NoError(t, h.Proxy(c))
	return rec
}

func TestProxy_RejectsMissingURL(t *testing.T) {
	rec := proxyRequest(t, "/reddit")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProxy_RejectsForeignHosts(t *testing.T) {
	targets := []string{
		"/reddit?url=https%3A%2F%2Fevil.example%2Fr%2Fvideos",
		"/reddit?url=http%3A%2F%2Fwww.reddit.com%2Fr%2Fvideos",
		"/reddit?url=https%3A%2F%2Fwww.reddit.com.evil.example%2F",
	}

	for _, target := range targets {
		rec := proxyRequest(t, target)
		assert.Equal(t, http.StatusForbidden, rec.Code, target)
	}
}
