package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/karmafinder/karmafetch/cmd/fetchd/service"
	"github.com/labstack/echo/v4"
)

const allowedURLPrefix = "https://www.reddit.com/"

// RedditHandler handles the raw listing proxy and subreddit search
type RedditHandler struct {
	listings *service.ListingService
	search   *service.SearchService
}

// NewRedditHandler creates a reddit proxy handler
func NewRedditHandler(listings *service.ListingService, search *service.SearchService) *RedditHandler {
	return &RedditHandler{
		listings: listings,
		search:   search,
	}
}

// Proxy forwards a listing URL upstream with auth and icon enrichment.
// Subreddit search URLs are routed to the cached search path instead.
// GET /reddit?url=
func (h *RedditHandler) Proxy(c echo.Context) error {
	rawURL := c.QueryParam("url")
	if rawURL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "url parameter is required",
		})
	}

	if !strings.HasPrefix(rawURL, allowedURLPrefix) {
		return c.JSON(http.StatusForbidden, map[string]string{
			"error": "only reddit.com URLs are allowed",
		})
	}

	if query, ok := subredditSearchQuery(rawURL); ok {
		listing, err := h.search.SearchSubreddits(c.Request().Context(), query)
		if err != nil {
			return upstreamError(c, err)
		}
		return c.JSON(http.StatusOK, listing)
	}

	listing, err := h.listings.ProxyListing(c.Request().Context(), rawURL)
	if err != nil {
		return upstreamError(c, err)
	}

	return c.JSON(http.StatusOK, listing)
}

// subredditSearchQuery extracts the q parameter from a subreddit
// search URL, or reports that the URL is a plain listing
func subredditSearchQuery(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	if !strings.Contains(parsed.Path, "/subreddits/search") {
		return "", false
	}

	query := parsed.Query().Get("q")
	if query == "" {
		return "", false
	}

	return query, true
}
