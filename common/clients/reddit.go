package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/karmafinder/karmafetch/common/config"
	"golang.org/x/time/rate"
)

// Logger interface for client logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Distinguishable upstream failure classes
var (
	// ErrRateLimited is returned on HTTP 429. Never retried here; the
	// caller decides whether to defer.
	ErrRateLimited = errors.New("rate limited by upstream")

	// ErrUpstreamUnavailable is returned after the connection-reset
	// retry budget is exhausted.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrParseTimeout is returned when decoding a response body exceeds
	// the parse deadline.
	ErrParseTimeout = errors.New("upstream response parse timed out")
)

const (
	maxFetchAttempts  = 3
	retryDelay        = 1 * time.Second
	rateLogEvery      = 5
	rateWarnRemaining = 10
)

var trailingJSON = regexp.MustCompile(`\.json/?$`)

// RedditClient is the retrying, rate-observing wrapper around the
// upstream content API. All outbound Reddit traffic goes through it.
type RedditClient struct {
	http    *http.Client
	cfg     config.RedditConfig
	tokens  *TokenKeeper
	limiter *rate.Limiter
	watch   *RateWatch
	log     Logger
}

// NewRedditClient creates a new upstream client
func NewRedditClient(httpClient *http.Client, cfg config.RedditConfig, tokens *TokenKeeper, watch *RateWatch, log Logger) *RedditClient {
	return &RedditClient{
		http:    httpClient,
		cfg:     cfg,
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		watch:   watch,
		log:     log,
	}
}

// RewriteURL maps a public reddit.com listing URL onto the OAuth host.
// The OAuth API neither needs nor accepts the trailing .json suffix.
func RewriteURL(raw string) string {
	rewritten := strings.Replace(raw, "https://www.reddit.com", "https://oauth.reddit.com", 1)
	return trailingJSON.ReplaceAllString(rewritten, "")
}

// Fetch executes an authenticated GET against the upstream API.
// Connection resets are retried up to 3 attempts with a fixed delay; a
// 429 is surfaced immediately as ErrRateLimited.
func (c *RedditClient) Fetch(ctx context.Context, url string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}

	c.log.Debug("fetching upstream", "url", url)

	var resp *http.Response
	var lastErr error

	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("User-Agent", c.cfg.UserAgent)

		resp, lastErr = c.http.Do(req)
		if lastErr == nil {
			break
		}

		// Only connection resets are worth another attempt
		if !isConnReset(lastErr) || attempt == maxFetchAttempts {
			c.log.Error("upstream fetch failed", "url", url, "attempt", attempt, "error", lastErr)
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, lastErr)
		}

		c.log.Warn("connection reset, retrying", "url", url, "attempt", attempt)

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.watch.Observe(ctx, resp.Header)

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		c.log.Warn("upstream rate limit hit", "url", url)
		return nil, ErrRateLimited
	}

	if resp.StatusCode >= 400 {
		c.log.Error("upstream returned error status", "url", url, "status", resp.StatusCode)
	}

	return resp, nil
}

// FetchListing fetches and decodes a content listing, truncating the
// result to at most limit children. Decoding is bounded by the
// configured parse deadline independent of the transport timeout.
func (c *RedditClient) FetchListing(ctx context.Context, url string, limit int) (*Listing, error) {
	resp, err := c.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream status %d for %s", resp.StatusCode, url)
	}

	listing, err := decodeListing(resp.Body, c.cfg.ParseTimeout)
	if err != nil {
		return nil, err
	}

	if len(listing.Data.Children) > limit {
		listing.Data.Children = listing.Data.Children[:limit]
	}

	return listing, nil
}

// Decode decodes body into v under the configured parse deadline. It
// lets callers with their own response types share the same bound as
// FetchListing and FetchAbout.
func (c *RedditClient) Decode(body io.Reader, v any) error {
	return decodeWithDeadline(body, c.cfg.ParseTimeout, v)
}

// FetchAbout resolves the display icon for a community
func (c *RedditClient) FetchAbout(ctx context.Context, subreddit string) (string, error) {
	url := fmt.Sprintf("%s/r/%s/about", c.cfg.OAuthBase, subreddit)

	resp, err := c.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upstream status %d for %s", resp.StatusCode, url)
	}

	about, err := decodeAbout(resp.Body, c.cfg.ParseTimeout)
	if err != nil {
		return "", err
	}

	return about.Data.IconURL(), nil
}

func isConnReset(err error) bool {
	if errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	return strings.Contains(err.Error(), "connection reset")
}
