package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/karmafinder/karmafetch/common/config"
	"github.com/karmafinder/karmafetch/common/logger"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, tokens []string, requests *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		username, _, ok := r.BasicAuth()
		require.True(t, ok, "token request must carry basic auth")
		require.Equal(t, "test-client", username)

		idx := *requests
		*requests++
		if idx >= len(tokens) {
			idx = len(tokens) - 1
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"` + tokens[idx] + `","expires_in":3600}`))
	}))
}

func tokenConfig(url string) config.RedditConfig {
	return config.RedditConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		UserAgent:    "test-agent",
		TokenURL:     url,
	}
}

func TestToken_CachedAcrossCalls(t *testing.T) {
	requests := 0
	srv := tokenServer(t, []string{"tok-1"}, &requests)
	defer srv.Close()

	keeper := NewTokenKeeper(srv.Client(), tokenConfig(srv.URL), logger.New("error", "text"))
	ctx := context.Background()

	first, err := keeper.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-1", first)

	second, err := keeper.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)

	require.Equal(t, 1, requests, "second call should reuse the cached token")
}

func TestToken_InvalidateForcesRefresh(t *testing.T) {
	requests := 0
	srv := tokenServer(t, []string{"tok-1", "tok-2"}, &requests)
	defer srv.Close()

	keeper := NewTokenKeeper(srv.Client(), tokenConfig(srv.URL), logger.New("error", "text"))
	ctx := context.Background()

	first, err := keeper.Token(ctx)
	require.NoError(t, err)

	keeper.Invalidate()

	second, err := keeper.Token(ctx)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	require.Equal(t, 2, requests)
}

func TestToken_ErrorStatusSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	keeper := NewTokenKeeper(srv.Client(), tokenConfig(srv.URL), logger.New("error", "text"))

	_, err := keeper.Token(context.Background())
	require.Error(t, err)
}

func TestToken_EmptyTokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"","expires_in":3600}`))
	}))
	defer srv.Close()

	keeper := NewTokenKeeper(srv.Client(), tokenConfig(srv.URL), logger.New("error", "text"))

	_, err := keeper.Token(context.Background())
	require.Error(t, err)
}
