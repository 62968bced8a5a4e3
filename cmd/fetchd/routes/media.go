package routes

import (
	"github.com/karmafinder/karmafetch/cmd/fetchd/container"
	"github.com/karmafinder/karmafetch/cmd/fetchd/handlers"
	"github.com/labstack/echo/v4"
)

// RegisterMediaRoutes registers video composition, analysis and the
// image proxy
func RegisterMediaRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewMediaHandler(c.MediaService, c.SaveService, c.HTTPClient, c.Components.Config.Media)

	e.GET("/video/:id", h.GetVideo)              // GET /video/abc123
	e.GET("/image", h.GetImage)                  // GET /image?url=https://i.redd.it/x.jpg
	e.POST("/api/analyze-media", h.AnalyzeMedia) // POST /api/analyze-media
}
