package upstream

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/mattcoley/propertydetails/internal/core"
)

const (
	detailsPath    = "/v2/property/details"
	defaultTimeout = 10 * time.Second

	// maxBodyBytes caps how much of a provider reply is buffered.
	maxBodyBytes = 4 << 20
)

// LiveFetcher calls the provider over HTTPS with Basic credentials.
type LiveFetcher struct {
	Client    *http.Client
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
	Logger    *logging.Logger
}

func (f *LiveFetcher) Mode() core.Mode {
	return core.ModeLive
}

// Fetch issues a single GET. It never retries.
func (f *LiveFetcher) Fetch(ctx context.Context, q core.AddressQuery) core.UpstreamResponse {
	if ctx == nil {
		ctx = context.Background()
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := strings.TrimRight(f.BaseURL, "/") + detailsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		f.warn("Failed to build upstream request", zap.Error(err))
		return core.UpstreamResponse{}
	}
	req.URL.RawQuery = q.Values().Encode()
	req.SetBasicAuth(f.APIKey, f.APISecret)
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		f.warn("Upstream request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return core.UpstreamResponse{}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		f.warn("Failed to read upstream body", zap.Int("status", resp.StatusCode), zap.Error(err))
		return core.UpstreamResponse{}
	}

	return core.UpstreamResponse{
		Status:  resp.StatusCode,
		Headers: resp.Header.Clone(),
		Body:    body,
	}
}

func (f *LiveFetcher) warn(msg string, fields ...zap.Field) {
	if f.Logger != nil {
		f.Logger.Warn(msg, fields...)
	}
}
