package upstream

import (
	"context"
	"net/http"

	"github.com/mattcoley/propertydetails/internal/core"
)

// MockFetcher replays a fixed payload without touching the network.
type MockFetcher struct {
	payload []byte
}

func NewMockFetcher(payload []byte) *MockFetcher {
	return &MockFetcher{payload: append([]byte(nil), payload...)}
}

func (f *MockFetcher) Mode() core.Mode {
	return core.ModeMocked
}

// Fetch returns the payload with status 200 and no headers. The query is
// ignored.
func (f *MockFetcher) Fetch(context.Context, core.AddressQuery) core.UpstreamResponse {
	return core.UpstreamResponse{
		Status:  http.StatusOK,
		Headers: http.Header{},
		Body:    append([]byte(nil), f.payload...),
	}
}
