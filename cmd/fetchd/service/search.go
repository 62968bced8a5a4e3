package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/goccy/go-json"
	"github.com/karmafinder/karmafetch/cmd/fetchd/repository"
	"github.com/karmafinder/karmafetch/common/clients"
	"github.com/karmafinder/karmafetch/common/config"
	"github.com/karmafinder/karmafetch/common/logger"
	"github.com/karmafinder/karmafetch/common/report"
)

// SubredditListing is the trimmed community search result set. Only the
// fields the frontend renders are cached; everything else upstream sends
// is dropped before storage.
type SubredditListing struct {
	Data SubredditListingData `json:"data"`
}

// SubredditListingData holds the community entries
type SubredditListingData struct {
	Children []SubredditThing `json:"children"`
}

// SubredditThing wraps one community entry
type SubredditThing struct {
	Data    SubredditData `json:"data"`
	IconURL *string       `json:"icon_url,omitempty"`
}

// SubredditData is the essential community metadata
type SubredditData struct {
	ID                string `json:"id"`
	DisplayName       string `json:"display_name"`
	URL               string `json:"url"`
	Name              string `json:"name"`
	CommunityIcon     string `json:"community_icon,omitempty"`
	MobileBannerImage string `json:"mobile_banner_image,omitempty"`
	IconImg           string `json:"icon_img,omitempty"`
	HeaderImg         string `json:"header_img,omitempty"`
	BannerImg         string `json:"banner_img,omitempty"`
}

// SearchService serves community search with a query-term cache
type SearchService struct {
	reddit *clients.RedditClient
	search *repository.SearchCacheRepository
	icons  *IconResolver
	sink   *report.Sink
	cfg    config.RedditConfig
	log    *logger.Logger
}

// IconResolver resolves a community icon, cache first
type IconResolver struct {
	listing *ListingService
}

// ResolveIcon returns the icon for a community, caching the answer
func (r *IconResolver) ResolveIcon(ctx context.Context, subreddit string) (*string, error) {
	return r.listing.resolveIcon(ctx, subreddit)
}

// NewSearchService creates a search service sharing the listing
// service's icon resolution
func NewSearchService(
	reddit *clients.RedditClient,
	search *repository.SearchCacheRepository,
	listing *ListingService,
	sink *report.Sink,
	cfg config.RedditConfig,
	log *logger.Logger,
) *SearchService {
	return &SearchService{
		reddit: reddit,
		search: search,
		icons:  &IconResolver{listing: listing},
		sink:   sink,
		cfg:    cfg,
		log:    log,
	}
}

// SearchSubreddits returns communities matching rawQuery. Results are
// cached by normalized query term; cached and fresh results alike get
// icon enrichment, so icons stay current while the heavy search payload
// is reused.
func (s *SearchService) SearchSubreddits(ctx context.Context, rawQuery string) (*SubredditListing, error) {
	query := normalizeQuery(rawQuery)
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}

	if cached, found, err := s.search.Get(ctx, query); err != nil {
		s.log.Warn("search cache read failed, falling through to upstream", "query", query, "error", err)
	} else if found {
		var listing SubredditListing
		if err := json.Unmarshal(cached, &listing); err == nil {
			s.log.Debug("search cache hit", "query", query)
			s.enrichIcons(ctx, &listing)
			return &listing, nil
		}
		s.log.Warn("search cache entry unreadable, refetching", "query", query)
	}

	listing, err := s.fetchSubreddits(ctx, query)
	if err != nil {
		if s.sink != nil {
			s.sink.Report("subreddit-search", "error", fmt.Sprintf("search %q: %v", query, err))
		}
		return nil, err
	}

	s.enrichIcons(ctx, listing)

	cleaned, err := json.Marshal(listing)
	if err == nil {
		if err := s.search.Save(ctx, query, cleaned); err != nil {
			s.log.Warn("search cache write failed", "query", query, "error", err)
		}
	}

	return listing, nil
}

func (s *SearchService) fetchSubreddits(ctx context.Context, query string) (*SubredditListing, error) {
	searchURL := fmt.Sprintf("%s/subreddits/search?q=%s&limit=%d",
		s.cfg.OAuthBase, url.QueryEscape(query), 10)

	resp, err := s.reddit.Fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("upstream status %d for subreddit search", resp.StatusCode)
	}

	var listing SubredditListing
	if err := s.reddit.Decode(resp.Body, &listing); err != nil {
		return nil, fmt.Errorf("decode subreddit search: %w", err)
	}

	// Entries without a display name render as blanks; drop them here
	// so they never reach the cache
	kept := listing.Data.Children[:0]
	for _, child := range listing.Data.Children {
		if child.Data.DisplayName != "" {
			kept = append(kept, child)
		}
	}
	listing.Data.Children = kept

	return &listing, nil
}

func (s *SearchService) enrichIcons(ctx context.Context, listing *SubredditListing) {
	for i := range listing.Data.Children {
		child := &listing.Data.Children[i]

		iconURL, err := s.icons.ResolveIcon(ctx, child.Data.DisplayName)
		if err != nil {
			s.log.Warn("search icon resolution failed", "subreddit", child.Data.DisplayName, "error", err)
			child.IconURL = nil
			continue
		}

		child.IconURL = iconURL
	}
}
