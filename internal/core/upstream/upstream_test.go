package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattcoley/propertydetails/internal/config"
	"github.com/mattcoley/propertydetails/internal/core"
)

func TestLiveFetcherSendsQueryAndCredentials(t *testing.T) {
	var gotPath, gotUser, gotPass string
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotUser, gotPass, _ = r.BasicAuth()
		w.Header().Set("X-RateLimit-Reset", "1700000000")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"property/details":{"api_code":0}}`))
	}))
	defer server.Close()

	fetcher := &LiveFetcher{
		Client:    server.Client(),
		BaseURL:   server.URL + "/",
		APIKey:    "key",
		APISecret: "secret",
	}

	resp := fetcher.Fetch(context.Background(), core.AddressQuery{
		Address: "123 Main St",
		Zipcode: "12345",
		Unit:    "4B",
	})

	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "/v2/property/details", gotPath)
	assert.Equal(t, "key", gotUser)
	assert.Equal(t, "secret", gotPass)
	assert.Equal(t, []string{"123 Main St"}, gotQuery["address"])
	assert.Equal(t, []string{"12345"}, gotQuery["zipcode"])
	assert.Equal(t, []string{"4B"}, gotQuery["unit"])
	assert.NotContains(t, gotQuery, "city")
	assert.NotContains(t, gotQuery, "state")
	assert.Equal(t, "1700000000", resp.Headers.Get("X-RateLimit-Reset"))
	assert.JSONEq(t, `{"property/details":{"api_code":0}}`, string(resp.Body))
	assert.Equal(t, core.ModeLive, fetcher.Mode())
}

func TestLiveFetcherPassesThroughErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Reset", "42")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	fetcher := &LiveFetcher{Client: server.Client(), BaseURL: server.URL}
	resp := fetcher.Fetch(context.Background(), core.AddressQuery{Address: "1 A St", Zipcode: "1"})

	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
	assert.Equal(t, "42", resp.Headers.Get("X-RateLimit-Reset"))
}

func TestLiveFetcherTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	fetcher := &LiveFetcher{BaseURL: baseURL, Timeout: time.Second}
	resp := fetcher.Fetch(context.Background(), core.AddressQuery{Address: "1 A St", Zipcode: "1"})

	assert.Equal(t, 0, resp.Status)
	assert.Empty(t, resp.Body)
}

func TestLiveFetcherTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	fetcher := &LiveFetcher{Client: server.Client(), BaseURL: server.URL, Timeout: 50 * time.Millisecond}

	start := time.Now()
	resp := fetcher.Fetch(context.Background(), core.AddressQuery{Address: "1 A St", Zipcode: "1"})

	assert.Equal(t, 0, resp.Status)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestMockFetcherReturnsFixture(t *testing.T) {
	fetcher, err := New(config.UpstreamConfig{MockResponse: true}, nil)
	require.NoError(t, err)
	require.Equal(t, core.ModeMocked, fetcher.Mode())

	resp := fetcher.Fetch(context.Background(), core.AddressQuery{Address: "123 Main St", Zipcode: "12345"})
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Empty(t, resp.Headers)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &doc))
	assert.Contains(t, doc, "property/details")
}

func TestNewWithFixturePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"custom":true}`), 0o600))

	fetcher, err := New(config.UpstreamConfig{MockResponse: true, FixturePath: path}, nil)
	require.NoError(t, err)

	resp := fetcher.Fetch(context.Background(), core.AddressQuery{})
	assert.JSONEq(t, `{"custom":true}`, string(resp.Body))

	_, err = New(config.UpstreamConfig{MockResponse: true, FixturePath: filepath.Join(t.TempDir(), "missing.json")}, nil)
	require.Error(t, err)
}

func TestNewLive(t *testing.T) {
	fetcher, err := New(config.UpstreamConfig{BaseURL: "https://example.test", APIKey: "k", APISecret: "s"}, nil)
	require.NoError(t, err)

	live, ok := fetcher.(*LiveFetcher)
	require.True(t, ok)
	assert.Equal(t, "https://example.test", live.BaseURL)
}
