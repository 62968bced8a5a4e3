package routes

import (
	"github.com/karmafinder/karmafetch/cmd/fetchd/container"
	"github.com/karmafinder/karmafetch/cmd/fetchd/handlers"
	"github.com/labstack/echo/v4"
)

// RegisterRedditRoutes registers the upstream proxy endpoint
func RegisterRedditRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewRedditHandler(c.ListingService, c.SearchService)

	e.GET("/reddit", h.Proxy) // GET /reddit?url=https://www.reddit.com/r/videos/hot.json
}
