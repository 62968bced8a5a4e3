package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/karmafinder/karmafetch/cmd/fetchd/media"
	"github.com/karmafinder/karmafetch/common/config"
	"github.com/karmafinder/karmafetch/common/logger"
	"github.com/karmafinder/karmafetch/common/report"
)

// ErrBadVideoID rejects IDs that could escape the temp directory
var ErrBadVideoID = errors.New("invalid video id")

// MediaService resolves and composes reddit-hosted video on demand
type MediaService struct {
	resolver *media.Resolver
	composer *media.Composer
	cfg      config.MediaConfig
	sink     *report.Sink
	log      *logger.Logger
}

// NewMediaService creates a media service
func NewMediaService(
	resolver *media.Resolver,
	composer *media.Composer,
	cfg config.MediaConfig,
	sink *report.Sink,
	log *logger.Logger,
) *MediaService {
	return &MediaService{
		resolver: resolver,
		composer: composer,
		cfg:      cfg,
		sink:     sink,
		log:      log,
	}
}

// ComposeVideo resolves the source streams for videoID and muxes them
// into a local mp4, returning the path to serve. Repeated calls for
// the same ID reuse the existing file while it is still on disk.
func (m *MediaService) ComposeVideo(ctx context.Context, videoID string) (string, error) {
	if !validVideoID(videoID) {
		return "", ErrBadVideoID
	}

	jobID := uuid.NewString()
	log := m.log.WithFields(map[string]any{"job_id": jobID, "video_id": videoID})

	if err := os.MkdirAll(m.cfg.TempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	// Deterministic path so a second request for the same video hits
	// the composer's short-circuit instead of transcoding again
	outputPath := filepath.Join(m.cfg.TempDir, videoID+".mp4")

	src, err := m.resolver.Resolve(ctx, videoID)
	if err != nil {
		if errors.Is(err, media.ErrNoVideo) {
			log.Warn("no playable video stream", "video_id", videoID)
			return "", err
		}
		if m.sink != nil {
			m.sink.Report("video", "error", fmt.Sprintf("resolve %s: %v", videoID, err))
		}
		return "", err
	}

	log.Info("composing video",
		"video_url", src.VideoURL,
		"has_audio", src.AudioURL != "",
		"fallback", src.FallbackURL != "",
	)

	if err := m.composer.Compose(ctx, src, outputPath); err != nil {
		if m.sink != nil {
			m.sink.Report("video", "error", fmt.Sprintf("compose %s: %v", videoID, err))
		}
		return "", err
	}

	return outputPath, nil
}

func validVideoID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
