package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/karmafinder/karmafetch/cmd/fetchd/media"
	"github.com/karmafinder/karmafetch/cmd/fetchd/models"
	"github.com/karmafinder/karmafetch/cmd/fetchd/repository"
	"github.com/karmafinder/karmafetch/common/config"
	"github.com/karmafinder/karmafetch/common/logger"
	"github.com/karmafinder/karmafetch/common/report"
)

// Thumbnails upstream substitutes for "no usable thumbnail"
var placeholderThumbs = map[string]bool{
	"self":    true,
	"default": true,
	"nsfw":    true,
	"spoiler": true,
	"image":   true,
	"":        true,
}

// SaveService handles the standalone single-item save paths
type SaveService struct {
	posts    *repository.PostRepository
	images   *repository.ImageCacheRepository
	analysis *repository.MediaAnalysisRepository
	analyzer *media.Analyzer
	scraper  *PageScraper
	http     *http.Client
	cfg      config.MediaConfig
	sink     *report.Sink
	log      *logger.Logger
}

// NewSaveService creates a save service
func NewSaveService(
	posts *repository.PostRepository,
	images *repository.ImageCacheRepository,
	analysis *repository.MediaAnalysisRepository,
	analyzer *media.Analyzer,
	scraper *PageScraper,
	httpClient *http.Client,
	cfg config.MediaConfig,
	sink *report.Sink,
	log *logger.Logger,
) *SaveService {
	return &SaveService{
		posts:    posts,
		images:   images,
		analysis: analysis,
		analyzer: analyzer,
		scraper:  scraper,
		http:     httpClient,
		cfg:      cfg,
		sink:     sink,
		log:      log,
	}
}

// SavePost upserts one post outside any page group
func (s *SaveService) SavePost(ctx context.Context, post *models.Post) error {
	if err := s.posts.UpsertPost(ctx, post); err != nil {
		if s.sink != nil {
			s.sink.Report("save-post", "error", fmt.Sprintf("upsert %s: %v", post.RedditPostID, err))
		}
		return err
	}
	return nil
}

// SaveImage saves an image post. Placeholder thumbnails are replaced by
// the target page's og:image when one can be scraped; media URLs get a
// probe pass so the frontend knows whether they animate.
func (s *SaveService) SaveImage(ctx context.Context, image *models.SavedImage) error {
	thumb := ""
	if image.Thumbnail != nil {
		thumb = strings.ToLower(*image.Thumbnail)
	}

	if placeholderThumbs[thumb] {
		s.log.Debug("placeholder thumbnail, scraping og:image", "url", image.URL)

		ogImage, err := s.scraper.OGImage(ctx, image.URL)
		if err != nil {
			s.log.Warn("og:image scrape failed", "url", image.URL, "error", err)
			image.Thumbnail = nil
		} else if ogImage != "" {
			image.Thumbnail = &ogImage
		} else {
			image.Thumbnail = nil
		}
	}

	if media.ShouldAnalyze(image.URL) {
		if _, err := s.AnalyzeURL(ctx, image.URL); err != nil {
			// Analysis is best effort; the save still goes through
			s.log.Warn("media analysis failed", "url", image.URL, "error", err)
		}
	}

	if err := s.images.Insert(ctx, image); err != nil {
		if s.sink != nil {
			s.sink.Report("save-image", "error", fmt.Sprintf("insert %s: %v", image.RedditPostID, err))
		}
		return err
	}

	return nil
}

// AnalyzeURL downloads a media URL to a temp file, probes it, and
// records the result
func (s *SaveService) AnalyzeURL(ctx context.Context, mediaURL string) (*models.MediaAnalysis, error) {
	filePath, err := s.download(ctx, mediaURL)
	if err != nil {
		return nil, err
	}
	defer os.Remove(filePath)

	analysis, err := s.analyzer.Analyze(ctx, filePath, mediaURL, urlExtension(mediaURL))
	if err != nil {
		return nil, err
	}

	if err := s.analysis.Insert(ctx, analysis); err != nil {
		return nil, err
	}

	s.log.Info("media analyzed",
		"url", mediaURL,
		"animated", analysis.Animated,
		"frames", analysis.FrameCount,
	)

	return analysis, nil
}

func (s *SaveService) download(ctx context.Context, mediaURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media download returned status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(s.cfg.TempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	filePath := filepath.Join(s.cfg.TempDir, uuid.NewString()+".media")

	out, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(filePath)
		return "", fmt.Errorf("write temp file: %w", err)
	}

	if err := out.Close(); err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return filePath, nil
}

func urlExtension(mediaURL string) string {
	ext := mediaURL
	if idx := strings.LastIndex(ext, "."); idx >= 0 {
		ext = ext[idx+1:]
	}
	if idx := strings.Index(ext, "?"); idx >= 0 {
		ext = ext[:idx]
	}
	return ext
}
