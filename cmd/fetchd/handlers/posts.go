package handlers

import (
	"errors"
	"net/http"

	"github.com/karmafinder/karmafetch/cmd/fetchd/models"
	"github.com/karmafinder/karmafetch/cmd/fetchd/pagecache"
	"github.com/karmafinder/karmafetch/cmd/fetchd/service"
	"github.com/karmafinder/karmafetch/common/clients"
	"github.com/labstack/echo/v4"
)

// PostsHandler handles the paginated post cache endpoints
type PostsHandler struct {
	listings *service.ListingService
	saves    *service.SaveService
}

// NewPostsHandler creates a posts handler
func NewPostsHandler(listings *service.ListingService, saves *service.SaveService) *PostsHandler {
	return &PostsHandler{
		listings: listings,
		saves:    saves,
	}
}

// GetPosts serves one page of cached posts, fetching upstream on miss
// GET /api/db-posts?after=&subreddit=&contentType=&sort=&q=&t=
func (h *PostsHandler) GetPosts(c echo.Context) error {
	filters := pagecache.Filters{
		Query:       c.QueryParam("q"),
		Subreddit:   c.QueryParam("subreddit"),
		ContentType: c.QueryParam("contentType"),
		Sort:        c.QueryParam("sort"),
		Time:        c.QueryParam("t"),
	}

	listing, err := h.listings.GetPage(c.Request().Context(), c.QueryParam("after"), filters)
	if err != nil {
		return upstreamError(c, err)
	}

	return c.JSON(http.StatusOK, listing)
}

// GetCachedPosts serves a page group from storage only. A miss answers
// with an empty listing instead of an error so the client can fall back
// to the live-fetching endpoint.
// GET /api/get-cached-posts?after=&subreddit=&contentType=&sort=&q=&t=
func (h *PostsHandler) GetCachedPosts(c echo.Context) error {
	filters := pagecache.Filters{
		Query:       c.QueryParam("q"),
		Subreddit:   c.QueryParam("subreddit"),
		ContentType: c.QueryParam("contentType"),
		Sort:        c.QueryParam("sort"),
		Time:        c.QueryParam("t"),
	}

	listing, err := h.listings.ReadCachedPage(c.Request().Context(), c.QueryParam("after"), filters)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to read cached posts",
		})
	}

	return c.JSON(http.StatusOK, listing)
}

// SavePostsRequest is the body of POST /api/save-posts
type SavePostsRequest struct {
	PageGroup string        `json:"page_group"`
	Posts     []models.Post `json:"posts"`
}

// SavePosts stores a client-assembled page batch under its group key
// POST /api/save-posts
func (h *PostsHandler) SavePosts(c echo.Context) error {
	var req SavePostsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	if req.PageGroup == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "page_group is required",
		})
	}

	ids, err := h.listings.SavePage(c.Request().Context(), req.PageGroup, req.Posts)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to save posts",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"saved": len(ids),
		"ids":   ids,
	})
}

// SaveImage stores one image post, resolving placeholder thumbnails
// POST /api/save-image
func (h *PostsHandler) SaveImage(c echo.Context) error {
	var image models.SavedImage
	if err := c.Bind(&image); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	if image.RedditPostID == "" || image.URL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "reddit_post_id and url are required",
		})
	}

	if err := h.saves.SaveImage(c.Request().Context(), &image); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to save image",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"saved":     true,
		"thumbnail": image.Thumbnail,
	})
}

// upstreamError maps client sentinel errors onto HTTP statuses
func upstreamError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, clients.ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, map[string]string{
			"error": "rate limited by upstream",
		})
	case errors.Is(err, clients.ErrUpstreamUnavailable):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "upstream unavailable",
		})
	case errors.Is(err, clients.ErrParseTimeout):
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "upstream response parse timed out",
		})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal error",
		})
	}
}
