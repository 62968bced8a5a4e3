package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/karmafinder/karmafetch/common/db"
)

// SearchCacheRepository caches subreddit search results by query term
type SearchCacheRepository struct {
	db *db.DB
}

// NewSearchCacheRepository creates a new search cache repository
func NewSearchCacheRepository(database *db.DB) *SearchCacheRepository {
	return &SearchCacheRepository{db: database}
}

// Get returns the cached result set for a query term
func (r *SearchCacheRepository) Get(ctx context.Context, queryTerm string) (json.RawMessage, bool, error) {
	rows, err := r.db.Query(ctx, `
		SELECT results FROM subreddit_search_cache WHERE query_term = $1
	`, queryTerm)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get search cache: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, false, rows.Err()
	}

	var results []byte
	if err := rows.Scan(&results); err != nil {
		return nil, false, fmt.Errorf("failed to scan search cache: %w", err)
	}

	return results, true, nil
}

// Save replaces the cached result set for a query term
func (r *SearchCacheRepository) Save(ctx context.Context, queryTerm string, results json.RawMessage) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO subreddit_search_cache (query_term, results, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (query_term)
		DO UPDATE SET results = EXCLUDED.results, created_at = NOW()
	`, queryTerm, []byte(results))
	if err != nil {
		return fmt.Errorf("failed to save search cache for %q: %w", queryTerm, err)
	}

	return nil
}

// DeleteOlderThan removes cached searches older than maxAge
func (r *SearchCacheRepository) DeleteOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM subreddit_search_cache
		WHERE created_at < NOW() - make_interval(secs => $1)
	`, maxAge.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale search cache: %w", err)
	}

	return tag.RowsAffected(), nil
}
