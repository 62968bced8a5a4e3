// Package service composes the repositories, the upstream client and the
// media pipeline into the operations the handlers expose.
package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/karmafinder/karmafetch/cmd/fetchd/models"
	"github.com/karmafinder/karmafetch/cmd/fetchd/pagecache"
	"github.com/karmafinder/karmafetch/cmd/fetchd/repository"
	"github.com/karmafinder/karmafetch/common/clients"
	"github.com/karmafinder/karmafetch/common/config"
	"github.com/karmafinder/karmafetch/common/logger"
	"github.com/karmafinder/karmafetch/common/report"
)

// ListingService serves content listings: cache first, upstream on miss,
// write-back after a successful fetch.
type ListingService struct {
	cache  *pagecache.Cache
	reddit *clients.RedditClient
	icons  *repository.IconRepository
	sink   *report.Sink
	cfg    config.RedditConfig
	log    *logger.Logger
}

// NewListingService creates a listing service
func NewListingService(
	cache *pagecache.Cache,
	reddit *clients.RedditClient,
	icons *repository.IconRepository,
	sink *report.Sink,
	cfg config.RedditConfig,
	log *logger.Logger,
) *ListingService {
	return &ListingService{
		cache:  cache,
		reddit: reddit,
		icons:  icons,
		sink:   sink,
		cfg:    cfg,
		log:    log,
	}
}

// GetPage returns one page of results for a cursor and filter set. A
// complete cached page group is served verbatim; otherwise the page is
// fetched upstream, icon-enriched, written back under the derived key,
// and served.
func (s *ListingService) GetPage(ctx context.Context, after string, f pagecache.Filters) (*clients.Listing, error) {
	result, err := s.cache.GetPage(ctx, after, f)
	if err != nil {
		return nil, err
	}

	if result.Hit {
		return listingFromPosts(result.Posts), nil
	}

	listing, err := s.reddit.FetchListing(ctx, s.listingURL(after, f), pagecache.PageSize)
	if err != nil {
		s.report("db-posts", "error", fmt.Sprintf("upstream fetch failed: %v", err))
		return nil, err
	}

	s.EnrichIcons(ctx, listing)

	posts := make([]models.Post, 0, len(listing.Data.Children))
	for i, child := range listing.Data.Children {
		post := models.PostFromThing(child)
		post.PageGroup = result.Key
		post.Position = i
		posts = append(posts, post)
	}

	if err := s.cache.WriteBack(ctx, result.Key, posts); err != nil {
		s.report("db-posts", "error", fmt.Sprintf("page write-back failed: %v", err))
		return nil, err
	}

	return listing, nil
}

// ReadCachedPage serves a page group from storage only: the complete
// group, or an empty listing so the caller falls back to a live fetch.
func (s *ListingService) ReadCachedPage(ctx context.Context, after string, f pagecache.Filters) (*clients.Listing, error) {
	result, err := s.cache.GetPage(ctx, after, f)
	if err != nil {
		return nil, err
	}

	if !result.Hit {
		return &clients.Listing{Data: clients.ListingData{Children: []clients.Thing{}}}, nil
	}

	return listingFromPosts(result.Posts), nil
}

// SavePage writes a client-assembled page batch under its page-group key
func (s *ListingService) SavePage(ctx context.Context, key string, posts []models.Post) ([]string, error) {
	if key == "" {
		return nil, fmt.Errorf("page group key is required")
	}

	if len(posts) > pagecache.PageSize {
		posts = posts[:pagecache.PageSize]
	}

	if err := s.cache.WriteBack(ctx, key, posts); err != nil {
		s.report("save-posts", "error", fmt.Sprintf("page write failed: %v", err))
		return nil, err
	}

	ids := make([]string, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.RedditPostID)
	}

	return ids, nil
}

// ProxyListing fetches a listing straight from the upstream API with
// icon enrichment but no page-group caching. Serves the raw proxy
// endpoint that clients drive with a full listing URL.
func (s *ListingService) ProxyListing(ctx context.Context, rawURL string) (*clients.Listing, error) {
	listing, err := s.reddit.FetchListing(ctx, clients.RewriteURL(rawURL), pagecache.PageSize)
	if err != nil {
		s.report("reddit", "error", fmt.Sprintf("proxy fetch failed: %v", err))
		return nil, err
	}

	s.EnrichIcons(ctx, listing)

	return listing, nil
}

// EnrichIcons attaches a community icon to every child, from the icon
// cache when possible and from the upstream /about endpoint otherwise.
// Enrichment failures degrade to a null icon, never fail the listing.
func (s *ListingService) EnrichIcons(ctx context.Context, listing *clients.Listing) {
	for i := range listing.Data.Children {
		child := &listing.Data.Children[i]
		subreddit := child.Data.Subreddit
		if subreddit == "" {
			continue
		}

		iconURL, err := s.resolveIcon(ctx, subreddit)
		if err != nil {
			s.log.Warn("icon resolution failed", "subreddit", subreddit, "error", err)
			s.report("icons", "error", fmt.Sprintf("icon for r/%s: %v", subreddit, err))
			child.IconURL = nil
			continue
		}

		child.IconURL = iconURL
	}
}

func (s *ListingService) resolveIcon(ctx context.Context, subreddit string) (*string, error) {
	log := s.log.WithSubreddit(subreddit)

	iconURL, found, err := s.icons.Get(ctx, subreddit)
	if err != nil {
		return nil, err
	}
	if found {
		return iconURL, nil
	}

	resolved, err := s.reddit.FetchAbout(ctx, subreddit)
	if err != nil {
		return nil, err
	}

	var toStore *string
	if resolved != "" {
		toStore = &resolved
	}

	if err := s.icons.Upsert(ctx, subreddit, toStore); err != nil {
		return nil, err
	}

	log.Debug("icon cached")

	return toStore, nil
}

// listingURL builds the upstream URL for a filter set and cursor
func (s *ListingService) listingURL(after string, f pagecache.Filters) string {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", pagecache.PageSize))
	params.Set("raw_json", "1")

	if cursor := pagecache.NormalizeCursor(after); cursor != pagecache.FirstPageToken {
		params.Set("after", cursor)
	}

	subreddit := f.Subreddit
	if subreddit == "" {
		subreddit = "all"
	}

	sort := f.Sort
	if sort == "" {
		sort = "hot"
	}

	if f.Query != "" {
		params.Set("q", f.Query)
		params.Set("sort", sort)
		params.Set("restrict_sr", "1")
		if f.Time != "" {
			params.Set("t", f.Time)
		}
		return fmt.Sprintf("%s/r/%s/search?%s", s.cfg.OAuthBase, subreddit, params.Encode())
	}

	if f.Time != "" {
		params.Set("t", f.Time)
	}

	return fmt.Sprintf("%s/r/%s/%s?%s", s.cfg.OAuthBase, subreddit, sort, params.Encode())
}

func (s *ListingService) report(endpoint, level, msg string) {
	if s.sink != nil {
		s.sink.Report(endpoint, level, msg)
	}
}

func listingFromPosts(posts []models.Post) *clients.Listing {
	children := make([]clients.Thing, 0, len(posts))
	for _, post := range posts {
		children = append(children, post.Thing())
	}

	var after *string
	if len(posts) > 0 {
		fullname := posts[len(posts)-1].Fullname()
		after = &fullname
	}

	return &clients.Listing{
		Data: clients.ListingData{
			Children: children,
			After:    after,
		},
	}
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
