package routes

import (
	"github.com/karmafinder/karmafetch/cmd/fetchd/container"
	"github.com/karmafinder/karmafetch/cmd/fetchd/handlers"
	"github.com/labstack/echo/v4"
)

// RegisterPostRoutes registers the cached post endpoints
func RegisterPostRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewPostsHandler(c.ListingService, c.SaveService)

	api := e.Group("/api")
	{
		api.GET("/db-posts", h.GetPosts)                 // GET /api/db-posts?after=page_1&subreddit=videos
		api.GET("/get-cached-posts", h.GetCachedPosts)   // GET /api/get-cached-posts?after=page_1&subreddit=videos
		api.POST("/save-posts", h.SavePosts)             // POST /api/save-posts
		api.POST("/save-image", h.SaveImage)             // POST /api/save-image
	}
}
