package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/karmafinder/karmafetch/cmd/fetchd/models"
	"github.com/karmafinder/karmafetch/common/db"
)

// PostRepository handles database operations for cached posts
type PostRepository struct {
	db *db.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(database *db.DB) *PostRepository {
	return &PostRepository{db: database}
}

const postColumns = `
	reddit_post_id, title, url, permalink, subreddit, score,
	is_video, domain, author, created_utc, num_comments,
	over_18, selftext, body, is_self, is_gallery, post_hint,
	gallery_data, media_metadata, crosspost_parent_list, preview,
	content_type, icon_url, locked, stickied, page_group, position
`

// WritePage replaces the page group under key with the given posts in a
// single transaction: delete first, then insert with position = index.
// Either the whole new group lands or none of it does; readers never
// observe a mix of old and new rows.
func (r *PostRepository) WritePage(ctx context.Context, key string, posts []models.Post) error {
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM posts WHERE page_group = $1`, key); err != nil {
			return fmt.Errorf("delete page group: %w", err)
		}

		for i, post := range posts {
			if _, err := tx.Exec(ctx, `
				INSERT INTO posts (`+postColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
				        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
				ON CONFLICT (reddit_post_id)
				DO UPDATE SET
					score = EXCLUDED.score,
					num_comments = EXCLUDED.num_comments,
					content_type = EXCLUDED.content_type,
					page_group = EXCLUDED.page_group,
					position = EXCLUDED.position,
					indexed_at = CURRENT_TIMESTAMP
			`,
				post.RedditPostID,
				post.Title,
				post.URL,
				post.Permalink,
				post.Subreddit,
				post.Score,
				post.IsVideo,
				post.Domain,
				post.Author,
				post.CreatedUTC,
				post.NumComments,
				post.Over18,
				post.Selftext,
				post.Body,
				post.IsSelf,
				post.IsGallery,
				post.PostHint,
				post.GalleryData,
				post.MediaMetadata,
				post.CrosspostParentList,
				post.Preview,
				post.ContentType,
				post.IconURL,
				post.Locked,
				post.Stickied,
				key,
				i,
			); err != nil {
				return fmt.Errorf("insert post %s: %w", post.RedditPostID, err)
			}
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to write page group: %w", err)
	}

	return nil
}

// ReadPage returns the posts stored under key ordered by position
func (r *PostRepository) ReadPage(ctx context.Context, key string) ([]models.Post, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE page_group = $1
		ORDER BY position ASC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read page group: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}

	return posts, nil
}

// UpsertPost saves a post outside any page group, last write wins on
// mutable fields. First-seen metadata (title, author, creation time) is
// preserved on conflict.
func (r *PostRepository) UpsertPost(ctx context.Context, post *models.Post) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO posts (`+postColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
		ON CONFLICT (reddit_post_id)
		DO UPDATE SET
			score = EXCLUDED.score,
			num_comments = EXCLUDED.num_comments,
			content_type = EXCLUDED.content_type,
			indexed_at = CURRENT_TIMESTAMP
	`,
		post.RedditPostID,
		post.Title,
		post.URL,
		post.Permalink,
		post.Subreddit,
		post.Score,
		post.IsVideo,
		post.Domain,
		post.Author,
		post.CreatedUTC,
		post.NumComments,
		post.Over18,
		post.Selftext,
		post.Body,
		post.IsSelf,
		post.IsGallery,
		post.PostHint,
		post.GalleryData,
		post.MediaMetadata,
		post.CrosspostParentList,
		post.Preview,
		post.ContentType,
		post.IconURL,
		post.Locked,
		post.Stickied,
		post.PageGroup,
		post.Position,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert post %s: %w", post.RedditPostID, err)
	}

	return nil
}

// DeleteOlderThan removes posts indexed longer ago than maxAge and
// returns the number of rows removed
func (r *PostRepository) DeleteOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM posts
		WHERE indexed_at < NOW() - make_interval(secs => $1)
	`, maxAge.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale posts: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanPost(rows pgx.Rows) (models.Post, error) {
	var post models.Post
	err := rows.Scan(
		&post.RedditPostID,
		&post.Title,
		&post.URL,
		&post.Permalink,
		&post.Subreddit,
		&post.Score,
		&post.IsVideo,
		&post.Domain,
		&post.Author,
		&post.CreatedUTC,
		&post.NumComments,
		&post.Over18,
		&post.Selftext,
		&post.Body,
		&post.IsSelf,
		&post.IsGallery,
		&post.PostHint,
		&post.GalleryData,
		&post.MediaMetadata,
		&post.CrosspostParentList,
		&post.Preview,
		&post.ContentType,
		&post.IconURL,
		&post.Locked,
		&post.Stickied,
		&post.PageGroup,
		&post.Position,
	)
	return post, err
}
