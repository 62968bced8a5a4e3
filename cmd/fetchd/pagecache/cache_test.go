package pagecache

import (
	"context"
	"fmt"
	"testing"

	"github.com/karmafinder/karmafetch/cmd/fetchd/models"
	"github.com/karmafinder/karmafetch/common/logger"
)

// fakeStore is an in-memory PageStore
type fakeStore struct {
	pages    map[string][]models.Post
	readErr  error
	writeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{pages: make(map[string][]models.Post)}
}

func (s *fakeStore) ReadPage(ctx context.Context, key string) ([]models.Post, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.pages[key], nil
}

func (s *fakeStore) WritePage(ctx context.Context, key string, posts []models.Post) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.pages[key] = posts
	return nil
}

func makePosts(n int) []models.Post {
	posts := make([]models.Post, n)
	for i := range posts {
		posts[i] = models.Post{
			RedditPostID: fmt.Sprintf("post%d", i),
			Position:     i,
		}
	}
	return posts
}

func testCache(store PageStore) *Cache {
	return NewCache(store, logger.New("error", "text"))
}

func TestGetPage_CompleteGroupIsHit(t *testing.T) {
	store := newFakeStore()
	key := BuildKey(FirstPageToken, Filters{Subreddit: "videos"})
	store.pages[key] = makePosts(PageSize)

	result, err := testCache(store).GetPage(context.Background(), "", Filters{Subreddit: "videos"})
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}

	if !result.Hit {
		t.Fatal("complete page group should be a hit")
	}
	if len(result.Posts) != PageSize {
		t.Fatalf("got %d posts, want %d", len(result.Posts), PageSize)
	}
	if result.Key != key {
		t.Fatalf("result key %q, want %q", result.Key, key)
	}
}

func TestGetPage_PartialGroupIsMiss(t *testing.T) {
	store := newFakeStore()
	key := BuildKey(FirstPageToken, Filters{Subreddit: "videos"})
	store.pages[key] = makePosts(7)

	result, err := testCache(store).GetPage(context.Background(), "", Filters{Subreddit: "videos"})
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}

	if result.Hit {
		t.Fatal("partial page group must not be served")
	}
	if result.Key != key {
		t.Fatalf("miss must still carry the key for write-back, got %q", result.Key)
	}
}

func TestGetPage_AbsentGroupIsMiss(t *testing.T) {
	result, err := testCache(newFakeStore()).GetPage(context.Background(), "t3_abc", Filters{})
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if result.Hit {
		t.Fatal("absent group should be a miss")
	}
}

func TestGetPage_StoreErrorSurfaces(t *testing.T) {
	store := newFakeStore()
	store.readErr = fmt.Errorf("connection refused")

	if _, err := testCache(store).GetPage(context.Background(), "", Filters{}); err == nil {
		t.Fatal("store error should surface, not degrade to a miss")
	}
}

func TestWriteBack_ThenRead(t *testing.T) {
	store := newFakeStore()
	cache := testCache(store)
	ctx := context.Background()

	filters := Filters{Subreddit: "golang", Sort: "new"}
	miss, err := cache.GetPage(ctx, "", filters)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}

	if err := cache.WriteBack(ctx, miss.Key, makePosts(PageSize)); err != nil {
		t.Fatalf("WriteBack failed: %v", err)
	}

	hit, err := cache.GetPage(ctx, "", filters)
	if err != nil {
		t.Fatalf("GetPage after write failed: %v", err)
	}
	if !hit.Hit {
		t.Fatal("written group should now be a hit")
	}
	for i, post := range hit.Posts {
		if post.Position != i {
			t.Fatalf("post %d out of order: position %d", i, post.Position)
		}
	}
}

func TestWriteBack_ErrorSurfaces(t *testing.T) {
	store := newFakeStore()
	store.writeErr = fmt.Errorf("deadlock detected")

	if err := testCache(store).WriteBack(context.Background(), "k", makePosts(1)); err == nil {
		t.Fatal("write error should surface so the handler can fail the request")
	}
}
