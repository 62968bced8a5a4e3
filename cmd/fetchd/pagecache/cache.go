package pagecache

import (
	"context"
	"fmt"

	"github.com/karmafinder/karmafetch/cmd/fetchd/models"
	"github.com/karmafinder/karmafetch/common/logger"
)

// PageStore is the persistence the cache needs. Implemented by
// repository.PostRepository; tests substitute an in-memory fake.
type PageStore interface {
	ReadPage(ctx context.Context, key string) ([]models.Post, error)
	WritePage(ctx context.Context, key string, posts []models.Post) error
}

// Result is the outcome of a cache lookup. On a hit Posts holds the
// complete group; on a miss Key identifies where the caller should write
// the freshly fetched page back.
type Result struct {
	Posts []models.Post
	Key   string
	Hit   bool
}

// Cache is the page cache orchestrator: key derivation plus the
// completeness check. Retry policy lives with the upstream client, not
// here.
type Cache struct {
	store PageStore
	log   *logger.Logger
}

// NewCache creates a page cache over the given store
func NewCache(store PageStore, log *logger.Logger) *Cache {
	return &Cache{
		store: store,
		log:   log,
	}
}

// GetPage looks up the page group for a cursor and filter set. A result
// counts as a hit only when the stored group has exactly PageSize posts;
// anything else (absent, or cut short by an interrupted write) is a miss
// so a truncated page is never served.
func (c *Cache) GetPage(ctx context.Context, after string, f Filters) (*Result, error) {
	key := BuildKey(NormalizeCursor(after), f)

	posts, err := c.store.ReadPage(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read page group %s: %w", key, err)
	}

	if len(posts) == PageSize {
		c.log.Debug("page cache hit", "key", key)
		return &Result{Posts: posts, Key: key, Hit: true}, nil
	}

	c.log.Debug("page cache miss", "key", key, "stored", len(posts))
	return &Result{Key: key}, nil
}

// WriteBack replaces the page group under key with the given posts
func (c *Cache) WriteBack(ctx context.Context, key string, posts []models.Post) error {
	if err := c.store.WritePage(ctx, key, posts); err != nil {
		return fmt.Errorf("write page group %s: %w", key, err)
	}

	c.log.Debug("page group written", "key", key, "count", len(posts))
	return nil
}
