// Package upstream reaches the property-data provider. The Fetcher strategy
// is chosen once at construction: live HTTP or a canned fixture.
package upstream

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/mattcoley/propertydetails/internal/assets/fixtures"
	"github.com/mattcoley/propertydetails/internal/config"
	"github.com/mattcoley/propertydetails/internal/core"
)

// Fetcher performs one provider call for a validated query. Failures are
// reported in-band: a transport failure yields Status 0.
type Fetcher interface {
	Fetch(ctx context.Context, q core.AddressQuery) core.UpstreamResponse
	Mode() core.Mode
}

// New builds the Fetcher selected by cfg.
func New(cfg config.UpstreamConfig, logger *logging.Logger) (Fetcher, error) {
	if cfg.MockResponse {
		payload := fixtures.MockedPropertyDetails
		if path := strings.TrimSpace(cfg.FixturePath); path != "" {
			// #nosec G304 -- operator-supplied fixture path
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read fixture %s: %w", path, err)
			}
			payload = data
		}
		return NewMockFetcher(payload), nil
	}

	return &LiveFetcher{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		Timeout:   cfg.Timeout,
		Logger:    logger,
	}, nil
}
