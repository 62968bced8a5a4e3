package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/karmafinder/karmafetch/cmd/fetchd/models"
	"github.com/karmafinder/karmafetch/common/db"
)

// MediaAnalysisRepository stores ffprobe results keyed by media URL
type MediaAnalysisRepository struct {
	db *db.DB
}

// NewMediaAnalysisRepository creates a new media analysis repository
func NewMediaAnalysisRepository(database *db.DB) *MediaAnalysisRepository {
	return &MediaAnalysisRepository{db: database}
}

// Insert saves an analysis row. The first analysis for a URL wins;
// re-analyzing the same immutable media would only burn cycles.
func (r *MediaAnalysisRepository) Insert(ctx context.Context, analysis *models.MediaAnalysis) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO media_analysis (url, type, frame_count, animated, width, height, duration)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (url) DO NOTHING
	`,
		analysis.URL,
		analysis.Type,
		analysis.FrameCount,
		analysis.Animated,
		analysis.Width,
		analysis.Height,
		analysis.Duration,
	)
	if err != nil {
		return fmt.Errorf("failed to insert media analysis: %w", err)
	}

	return nil
}

// DeleteOlderThan removes analysis rows older than maxAge
func (r *MediaAnalysisRepository) DeleteOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM media_analysis
		WHERE created_at < NOW() - make_interval(secs => $1)
	`, maxAge.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale media analysis: %w", err)
	}

	return tag.RowsAffected(), nil
}
