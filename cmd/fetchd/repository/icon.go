package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/karmafinder/karmafetch/common/db"
)

// IconRepository caches community icons so the upstream /about endpoint
// is hit at most once per community per retention window
type IconRepository struct {
	db *db.DB
}

// NewIconRepository creates a new icon repository
func NewIconRepository(database *db.DB) *IconRepository {
	return &IconRepository{db: database}
}

// Get returns the cached icon for a community. found=true with a nil
// URL means the community was looked up before and has no icon.
func (r *IconRepository) Get(ctx context.Context, subreddit string) (iconURL *string, found bool, err error) {
	rows, err := r.db.Query(ctx, `
		SELECT icon_url FROM subreddit_icons WHERE subreddit = $1
	`, subreddit)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get icon: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, false, rows.Err()
	}

	if err := rows.Scan(&iconURL); err != nil {
		return nil, false, fmt.Errorf("failed to scan icon: %w", err)
	}

	return iconURL, true, nil
}

// Upsert saves a community icon, refreshing its timestamp
func (r *IconRepository) Upsert(ctx context.Context, subreddit string, iconURL *string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO subreddit_icons (subreddit, icon_url, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (subreddit)
		DO UPDATE SET icon_url = EXCLUDED.icon_url, created_at = NOW()
	`, subreddit, iconURL)
	if err != nil {
		return fmt.Errorf("failed to upsert icon for %s: %w", subreddit, err)
	}

	return nil
}

// DeleteOlderThan removes icons cached longer ago than maxAge
func (r *IconRepository) DeleteOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM subreddit_icons
		WHERE created_at < NOW() - make_interval(secs => $1)
	`, maxAge.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale icons: %w", err)
	}

	return tag.RowsAffected(), nil
}
