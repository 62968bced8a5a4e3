package clients

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/karmafinder/karmafetch/common/config"
)

// Refresh slightly ahead of the advertised expiry so in-flight requests
// never carry a token that dies mid-call.
const expiryMargin = 60 * time.Second

// TokenKeeper holds the process-wide upstream bearer token and refreshes
// it when expired. It is an explicit state object so tests can substitute
// their own token endpoint.
type TokenKeeper struct {
	mu     sync.Mutex
	token  string
	expiry time.Time

	http *http.Client
	cfg  config.RedditConfig
	log  Logger
}

// NewTokenKeeper creates a token keeper
func NewTokenKeeper(httpClient *http.Client, cfg config.RedditConfig, log Logger) *TokenKeeper {
	return &TokenKeeper{
		http: httpClient,
		cfg:  cfg,
		log:  log,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token returns the cached token, refreshing it first if expired
func (k *TokenKeeper) Token(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.token != "" && time.Now().Before(k.expiry) {
		return k.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.cfg.TokenURL,
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}

	req.SetBasicAuth(k.cfg.ClientID, k.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", k.cfg.UserAgent)

	resp, err := k.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	if tr.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token")
	}

	expiresIn := tr.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}

	k.token = tr.AccessToken
	k.expiry = time.Now().Add(time.Duration(expiresIn)*time.Second - expiryMargin)

	k.log.Info("acquired upstream app token", "expires_in_sec", expiresIn)

	return k.token, nil
}

// Invalidate drops the cached token, forcing a refresh on next use
func (k *TokenKeeper) Invalidate() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.token = ""
	k.expiry = time.Time{}
}
