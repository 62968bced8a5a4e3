package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/karmafinder/karmafetch/cmd/fetchd/media"
	"github.com/karmafinder/karmafetch/cmd/fetchd/service"
	"github.com/karmafinder/karmafetch/common/config"
	"github.com/labstack/echo/v4"
)

// MediaHandler handles video composition, media analysis and the image
// streaming proxy
type MediaHandler struct {
	media *service.MediaService
	saves *service.SaveService
	http  *http.Client
	cfg   config.MediaConfig
}

// NewMediaHandler creates a media handler
func NewMediaHandler(
	mediaService *service.MediaService,
	saves *service.SaveService,
	httpClient *http.Client,
	cfg config.MediaConfig,
) *MediaHandler {
	return &MediaHandler{
		media: mediaService,
		saves: saves,
		http:  httpClient,
		cfg:   cfg,
	}
}

// GetVideo composes a reddit-hosted video into an mp4 and serves it
// GET /video/:id
func (h *MediaHandler) GetVideo(c echo.Context) error {
	videoID := c.Param("id")

	outputPath, err := h.media.ComposeVideo(c.Request().Context(), videoID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadVideoID):
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "invalid video id",
			})
		case errors.Is(err, media.ErrNoVideo):
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "no playable video found",
			})
		case errors.Is(err, media.ErrTranscodeTimeout):
			return c.JSON(http.StatusGatewayTimeout, map[string]string{
				"error": "video processing timed out",
			})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "video processing failed",
			})
		}
	}

	return c.File(outputPath)
}

// AnalyzeMedia downloads and probes a media URL for animation data
// POST /api/analyze-media
func (h *MediaHandler) AnalyzeMedia(c echo.Context) error {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.Bind(&req); err != nil || req.URL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "url is required",
		})
	}

	if !media.ShouldAnalyze(req.URL) {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"analyzed": false,
			"reason":   "url is not probeable media",
		})
	}

	analysis, err := h.saves.AnalyzeURL(c.Request().Context(), req.URL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "analysis failed",
		})
	}

	return c.JSON(http.StatusOK, analysis)
}

// GetImage streams a remote image through the server, bypassing
// hotlink protection with browser headers
// GET /image?url=
func (h *MediaHandler) GetImage(c echo.Context) error {
	imageURL := c.QueryParam("url")
	if imageURL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "url parameter is required",
		})
	}

	req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodGet, imageURL, nil)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid image url",
		})
	}
	req.Header.Set("User-Agent", h.cfg.UserAgent)
	req.Header.Set("Referer", "https://www.reddit.com/")

	resp, err := h.http.Do(req)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "failed to fetch image",
		})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": fmt.Sprintf("image host returned status %d", resp.StatusCode),
		})
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return c.JSON(http.StatusUnsupportedMediaType, map[string]string{
			"error": "remote content is not an image",
		})
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=86400")

	return c.Stream(http.StatusOK, contentType, resp.Body)
}
