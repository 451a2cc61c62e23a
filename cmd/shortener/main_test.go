package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/shorturl/internal/app/server"
	"github.com/atinyakov/shorturl/internal/app/service"
	"github.com/atinyakov/shorturl/internal/config"
	"github.com/atinyakov/shorturl/internal/logger"
	"github.com/atinyakov/shorturl/internal/models"
	"github.com/atinyakov/shorturl/internal/storage"
	"github.com/atinyakov/shorturl/internal/validator"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	zapLogger := logger.New().Log
	s, err := storage.CreateMemoryStorage()
	require.NoError(t, err)
	v, err := validator.FromPolicy([]string{validator.PolicyPattern}, nil, 0, zapLogger)
	require.NoError(t, err)

	views := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(views, "index.html"), []byte("<form action=\"/api/shorturl\"></form>"), 0o644))

	ts := httptest.NewServer(server.Init(server.Options{ViewsDir: views, PublicDir: t.TempDir()}, zapLogger, service.NewURL(s, v, zapLogger)))
	t.Cleanup(ts.Close)

	ts.Client().CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return ts
}

func postURL(t *testing.T, ts *httptest.Server, raw string) map[string]any {
	t.Helper()

	result, err := ts.Client().PostForm(ts.URL+"/api/shorturl", url.Values{"url": {raw}})
	require.NoError(t, err)
	defer result.Body.Close()

	require.Equal(t, http.StatusOK, result.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(result.Body).Decode(&body))
	return body
}

func get(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()

	result, err := ts.Client().Get(ts.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { result.Body.Close() })
	return result
}

func TestShortenAndRedirect(t *testing.T) {
	ts := newTestServer(t)

	body := postURL(t, ts, "https://www.freecodecamp.org")
	assert.Equal(t, map[string]any{"original_url": "https://www.freecodecamp.org", "short_url": float64(1)}, body)

	body = postURL(t, ts, "https://example.com/path?q=1")
	assert.Equal(t, float64(2), body["short_url"])

	// Same URL again keeps its id and stores nothing new.
	body = postURL(t, ts, "https://www.freecodecamp.org")
	assert.Equal(t, float64(1), body["short_url"])

	result := get(t, ts, "/api/shorturl/1")
	assert.Equal(t, http.StatusFound, result.StatusCode)
	assert.Equal(t, "https://www.freecodecamp.org", result.Header.Get("Location"))

	result = get(t, ts, "/api/shorturl/2")
	assert.Equal(t, http.StatusFound, result.StatusCode)
	assert.Equal(t, "https://example.com/path?q=1", result.Header.Get("Location"))

	// The next novel URL continues the sequence.
	body = postURL(t, ts, "http://golang.org")
	assert.Equal(t, float64(3), body["short_url"])
}

func TestInvalidURLsStoreNothing(t *testing.T) {
	ts := newTestServer(t)

	for _, raw := range []string{"not-a-url", "", "ftp://example.com", "https://", "https://example.com/" + strings.Repeat("a", 70000)} {
		body := postURL(t, ts, raw)
		assert.Equal(t, map[string]any{"error": "invalid url"}, body, raw)
	}

	body := postURL(t, ts, "https://www.freecodecamp.org")
	assert.Equal(t, float64(1), body["short_url"])
}

func TestRedirectErrors(t *testing.T) {
	ts := newTestServer(t)

	result := get(t, ts, "/api/shorturl/abc")
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(result.Body).Decode(&body))
	assert.Equal(t, http.StatusBadRequest, result.StatusCode)
	assert.Equal(t, "Invalid short URL", body.Error)

	result = get(t, ts, "/api/shorturl/42")
	body = models.ErrorResponse{}
	require.NoError(t, json.NewDecoder(result.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "url not found", body.Error)
}

func TestCreateJSONBody(t *testing.T) {
	ts := newTestServer(t)

	result, err := ts.Client().Post(ts.URL+"/api/shorturl/", "application/json", strings.NewReader(`{"url":"https://www.freecodecamp.org"}`))
	require.NoError(t, err)
	defer result.Body.Close()

	var resp models.Response
	require.NoError(t, json.NewDecoder(result.Body).Decode(&resp))
	assert.Equal(t, models.Response{OriginalURL: "https://www.freecodecamp.org", ShortURL: 1}, resp)
}

func TestLandingPage(t *testing.T) {
	ts := newTestServer(t)

	result := get(t, ts, "/")
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Contains(t, result.Header.Get("Content-Type"), "text/html")
}

func TestOpenStorage(t *testing.T) {
	zapLogger := logger.New().Log

	t.Run("memory by default", func(t *testing.T) {
		s, err := openStorage(context.Background(), &config.Options{}, zapLogger)
		require.NoError(t, err)
		defer s.Close()

		_, ok := s.(*storage.MemoryStorage)
		assert.True(t, ok)
	})

	t.Run("file when path is set", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "urls.json")
		s, err := openStorage(context.Background(), &config.Options{FilePath: path}, zapLogger)
		require.NoError(t, err)
		defer s.Close()

		_, ok := s.(*storage.FileStorage)
		assert.True(t, ok)
		assert.FileExists(t, path)
	})
}
