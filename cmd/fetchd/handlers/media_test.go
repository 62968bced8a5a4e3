package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/karmafinder/karmafetch/common/clients"
	"github.com/karmafinder/karmafetch/common/config"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpstreamErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{clients.ErrRateLimited, http.StatusTooManyRequests},
		{fmt.Errorf("wrapped: %w", clients.ErrRateLimited), http.StatusTooManyRequests},
		{clients.ErrUpstreamUnavailable, http.StatusServiceUnavailable},
		{clients.ErrParseTimeout, http.StatusGatewayTimeout},
		{errors.New("anything else"), http.StatusInternalServerError},
	}

	e := echo.New()
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, upstreamError(c, tt.err))
		assert.Equal(t, tt.code, rec.Code, "for error %v", tt.err)
	}
}

func imageRequest(t *testing.T, remote *httptest.Server, rawURL string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()

	target := "/image"
	if rawURL != "" {
		target += "?url=" + url.QueryEscape(rawURL)
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewMediaHandler(nil, nil, remote.Client(), config.MediaConfig{UserAgent: "test-agent"})
	require.NoError(t, h.GetImage(c))
	return rec
}

func TestGetImage_StreamsImageContent(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer remote.Close()

	rec := imageRequest(t, remote, remote.URL+"/pic.png")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age")
}

func TestGetImage_RejectsNonImageContent(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>login page</html>"))
	}))
	defer remote.Close()

	rec := imageRequest(t, remote, remote.URL+"/pic.png")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestGetImage_RequiresURL(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer remote.Close()

	rec := imageRequest(t, remote, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetImage_BadGatewayOnRemoteError(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer remote.Close()

	rec := imageRequest(t, remote, remote.URL+"/pic.png")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
