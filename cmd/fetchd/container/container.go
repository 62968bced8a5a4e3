package container

import (
	"net/http"
	"time"

	"github.com/karmafinder/karmafetch/cmd/fetchd/janitor"
	"github.com/karmafinder/karmafetch/cmd/fetchd/media"
	"github.com/karmafinder/karmafetch/cmd/fetchd/pagecache"
	"github.com/karmafinder/karmafetch/cmd/fetchd/repository"
	"github.com/karmafinder/karmafetch/cmd/fetchd/service"
	"github.com/karmafinder/karmafetch/common/bootstrap"
	"github.com/karmafinder/karmafetch/common/clients"
)

const dashBase = "https://v.redd.it"

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components
	HTTPClient *http.Client

	// Repositories
	PostRepo     *repository.PostRepository
	IconRepo     *repository.IconRepository
	SearchRepo   *repository.SearchCacheRepository
	AnalysisRepo *repository.MediaAnalysisRepository
	ImageRepo    *repository.ImageCacheRepository

	// Upstream client
	Reddit *clients.RedditClient

	// Services
	PageCache      *pagecache.Cache
	ListingService *service.ListingService
	SearchService  *service.SearchService
	SaveService    *service.SaveService
	MediaService   *service.MediaService

	// Background cleanup
	Janitor *janitor.Janitor
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	cfg := components.Config
	log := components.Logger

	httpClient := &http.Client{Timeout: 30 * time.Second}

	// Repositories
	postRepo := repository.NewPostRepository(components.DB)
	iconRepo := repository.NewIconRepository(components.DB)
	searchRepo := repository.NewSearchCacheRepository(components.DB)
	analysisRepo := repository.NewMediaAnalysisRepository(components.DB)
	imageRepo := repository.NewImageCacheRepository(components.DB)

	// Upstream client with token keeper and rate watch
	tokens := clients.NewTokenKeeper(httpClient, cfg.Reddit, log)
	rateWatch := clients.NewRateWatch(components.Redis, log)
	reddit := clients.NewRedditClient(httpClient, cfg.Reddit, tokens, rateWatch, log)

	// Page cache over the post repository
	pageCache := pagecache.NewCache(postRepo, log)

	// Background cleanup, also the file deleter for composed videos
	jan := janitor.New(postRepo, iconRepo, searchRepo, analysisRepo, imageRepo, cfg.Janitor, cfg.Media, log)

	// Media pipeline
	prober := media.NewHTTPProber(httpClient, cfg.Media.UserAgent)
	resolver := media.NewResolver(prober, dashBase, log)
	composer := media.NewComposer(cfg.Media, jan, log)
	analyzer := media.NewAnalyzer(cfg.Media, log)
	scraper := service.NewPageScraper(httpClient, cfg.Reddit.BrowserAgent, log)

	// Services (bottom-up: dependencies first), each tagged with the
	// endpoint family it serves
	listingService := service.NewListingService(pageCache, reddit, iconRepo, components.Sink, cfg.Reddit, log.WithEndpoint("posts"))
	searchService := service.NewSearchService(reddit, searchRepo, listingService, components.Sink, cfg.Reddit, log.WithEndpoint("subreddit-search"))
	saveService := service.NewSaveService(postRepo, imageRepo, analysisRepo, analyzer, scraper, httpClient, cfg.Media, components.Sink, log.WithEndpoint("save"))
	mediaService := service.NewMediaService(resolver, composer, cfg.Media, components.Sink, log.WithEndpoint("video"))

	return &Container{
		Components:     components,
		HTTPClient:     httpClient,
		PostRepo:       postRepo,
		IconRepo:       iconRepo,
		SearchRepo:     searchRepo,
		AnalysisRepo:   analysisRepo,
		ImageRepo:      imageRepo,
		Reddit:         reddit,
		PageCache:      pageCache,
		ListingService: listingService,
		SearchService:  searchService,
		SaveService:    saveService,
		MediaService:   mediaService,
		Janitor:        jan,
	}, nil
}
