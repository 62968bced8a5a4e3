package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/karmafinder/karmafetch/cmd/fetchd/models"
	"github.com/karmafinder/karmafetch/common/db"
)

// ImageCacheRepository stores saved image posts
type ImageCacheRepository struct {
	db *db.DB
}

// NewImageCacheRepository creates a new image cache repository
func NewImageCacheRepository(database *db.DB) *ImageCacheRepository {
	return &ImageCacheRepository{db: database}
}

// Insert saves an image post, ignoring duplicates
func (r *ImageCacheRepository) Insert(ctx context.Context, image *models.SavedImage) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO image_news_cache (reddit_post_id, subreddit, title, url, thumbnail)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (reddit_post_id) DO NOTHING
	`,
		image.RedditPostID,
		image.Subreddit,
		image.Title,
		image.URL,
		image.Thumbnail,
	)
	if err != nil {
		return fmt.Errorf("failed to insert saved image: %w", err)
	}

	return nil
}

// DeleteOlderThan removes saved images older than maxAge
func (r *ImageCacheRepository) DeleteOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM image_news_cache
		WHERE created_at < NOW() - make_interval(secs => $1)
	`, maxAge.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale saved images: %w", err)
	}

	return tag.RowsAffected(), nil
}
