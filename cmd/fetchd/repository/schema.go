package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/karmafinder/karmafetch/common/db"
)

// Tables are created on startup so a fresh database works without a
// separate migration step
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		reddit_post_id TEXT PRIMARY KEY,
		title TEXT,
		url TEXT,
		permalink TEXT,
		subreddit TEXT,
		score BIGINT DEFAULT 0,
		is_video BOOLEAN DEFAULT FALSE,
		domain TEXT,
		author TEXT,
		created_utc DOUBLE PRECISION,
		num_comments BIGINT DEFAULT 0,
		over_18 BOOLEAN DEFAULT FALSE,
		selftext TEXT,
		body TEXT,
		is_self BOOLEAN DEFAULT FALSE,
		is_gallery BOOLEAN DEFAULT FALSE,
		post_hint TEXT,
		gallery_data JSONB,
		media_metadata JSONB,
		crosspost_parent_list JSONB,
		preview JSONB,
		content_type TEXT,
		icon_url TEXT,
		locked BOOLEAN DEFAULT FALSE,
		stickied BOOLEAN DEFAULT FALSE,
		page_group TEXT,
		position INTEGER DEFAULT 0,
		indexed_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_page_group ON posts (page_group)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_indexed_at ON posts (indexed_at)`,

	`CREATE TABLE IF NOT EXISTS subreddit_icons (
		subreddit TEXT PRIMARY KEY,
		icon_url TEXT,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS subreddit_search_cache (
		query_term TEXT PRIMARY KEY,
		results JSONB,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS media_analysis (
		url TEXT PRIMARY KEY,
		type TEXT,
		frame_count INTEGER DEFAULT 0,
		animated BOOLEAN DEFAULT FALSE,
		width INTEGER DEFAULT 0,
		height INTEGER DEFAULT 0,
		duration DOUBLE PRECISION DEFAULT 0,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS image_news_cache (
		reddit_post_id TEXT PRIMARY KEY,
		subreddit TEXT,
		title TEXT,
		url TEXT,
		thumbnail TEXT,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS monitoring_logs (
		id BIGSERIAL PRIMARY KEY,
		endpoint TEXT,
		log_level TEXT,
		error_message TEXT,
		timestamp TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
}

// EnsureSchema creates all tables and indexes if absent
func EnsureSchema(database *db.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := database.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return nil
}
