package integration

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattcoley/propertydetails/internal/config"
	"github.com/mattcoley/propertydetails/internal/core/ratelimit"
	"github.com/mattcoley/propertydetails/internal/core/septic"
	"github.com/mattcoley/propertydetails/internal/core/upstream"
	"github.com/mattcoley/propertydetails/internal/observability"
	"github.com/mattcoley/propertydetails/internal/server"
	"github.com/mattcoley/propertydetails/internal/server/handlers"
)

// cleanupMetrics tears down global telemetry state so each test starts clean.
// This matters in sandboxes where lingering exporters can block future binds.
func cleanupMetrics(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		_ = observability.ShutdownMetrics()
	})
}

// isPermissionError normalizes OS-specific permission errors (macOS/Linux/BSD)
// so we can gracefully skip when loopback sockets are blocked.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"permission denied", "operation not permitted", "not permitted"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}

	return false
}

// initMetricsOrSkip attempts to start the metrics exporter; if the environment
// forbids network binds we skip instead of failing the entire suite.
func initMetricsOrSkip(t *testing.T) {
	t.Helper()

	if err := observability.InitMetrics("test", 0, "test"); err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping metrics tests due to sandbox permissions: %v", err)
		}
		require.NoError(t, err)
	}

	cleanupMetrics(t)
}

// listen binds to IPv4 loopback explicitly and skips when the sandbox refuses
// to open sockets.
func listen(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping server setup: %v", err)
		}
		require.NoError(t, err)
	}

	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

func newPropertyServer(t *testing.T, upstreamCfg config.UpstreamConfig, gate *ratelimit.Gate) *httptest.Server {
	t.Helper()

	fetcher, err := upstream.New(upstreamCfg, observability.ServerLogger)
	require.NoError(t, err)
	service := septic.NewService(gate, fetcher, septic.WithLogger(observability.ServerLogger))

	hm := handlers.NewHealthManager("test")
	hm.RegisterChecker("rate_limit_gate", service.Gate())

	srv := server.New("127.0.0.1", 0,
		server.WithLookup(service, string(service.Mode())),
		server.WithHealthManager(hm))
	return listen(t, srv.Handler())
}

func scrape(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()
	resp, err := client.Get(baseURL + "/metrics")
	require.NoError(t, err)
	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return string(body)
}

func TestPropertyDetails_MockedUnderLoad(t *testing.T) {
	observability.InitCLILogger("test", false)
	observability.InitServerLogger("test", "info")

	initMetricsOrSkip(t)

	ts := newPropertyServer(t, config.UpstreamConfig{MockResponse: true}, nil)
	client := ts.Client()

	const numRequests = 50
	const numWorkers = 10

	requestChan := make(chan int, numRequests)
	for i := 0; i < numRequests; i++ {
		requestChan <- i
	}
	close(requestChan)

	var (
		mu       sync.Mutex
		statuses = map[int]int{}
	)

	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for reqNum := range requestChan {
				path := "/property/details?address=123+Main+St&zipcode=12345"
				switch reqNum % 5 {
				case 3:
					path = "/property/details?address=123+Main+St"
				case 4:
					path = "/health"
				}

				resp, err := client.Get(ts.URL + path)
				if err != nil {
					continue
				}
				_ = resp.Body.Close()
				mu.Lock()
				statuses[resp.StatusCode]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)

	assert.Equal(t, 40, statuses[http.StatusOK], "classified lookups plus health")
	assert.Equal(t, 10, statuses[http.StatusBadRequest], "unidentifiable addresses")

	metricsContent := scrape(t, client, ts.URL)
	assert.Contains(t, metricsContent, "test_http_requests_total", "Should have HTTP request metrics")
	assert.Contains(t, metricsContent, "test_lookup_outcomes_total", "Should have lookup outcome metrics")
	assert.Contains(t, metricsContent, "test_upstream_requests_total", "Should have upstream metrics")
	assert.True(t, elapsed < 5*time.Second, "Load test should complete in reasonable time")
	t.Logf("Load test completed: %d requests in %v (%.2f req/s)", numRequests, elapsed, float64(numRequests)/elapsed.Seconds())
}

func TestPropertyDetails_UpstreamRateLimitIsShared(t *testing.T) {
	observability.InitCLILogger("test", false)
	observability.InitServerLogger("test", "info")

	initMetricsOrSkip(t)

	var (
		mu   sync.Mutex
		hits int
	)
	provider := listen(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(2*time.Minute).Unix(), 10))
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	gate := ratelimit.NewGate(nil)
	ts := newPropertyServer(t, config.UpstreamConfig{
		BaseURL:   provider.URL,
		APIKey:    "key",
		APISecret: "secret",
		Timeout:   2 * time.Second,
	}, gate)
	client := ts.Client()

	for i := 0; i < 5; i++ {
		resp, err := client.Get(ts.URL + "/property/details?address=1+Elm+Rd&city=Springfield&state=IL")
		require.NoError(t, err)
		_ = resp.Body.Close()

		require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		retryAfter, err := strconv.Atoi(resp.Header.Get("Retry-After"))
		require.NoError(t, err, fmt.Sprintf("request %d", i))
		assert.InDelta(t, 120, retryAfter, 3)
	}

	mu.Lock()
	assert.Equal(t, 1, hits, "provider should only be called until the deadline is known")
	mu.Unlock()

	metricsContent := scrape(t, client, ts.URL)
	assert.Contains(t, metricsContent, "test_rate_limit_recorded_total")
	assert.Contains(t, metricsContent, "test_rate_limit_short_circuit_total")
}

func TestMetricsEndpoint_WithTelemetryDisabled(t *testing.T) {
	observability.InitCLILogger("test", false)
	observability.InitServerLogger("test", "info")

	originalExporter := observability.PrometheusExporter
	originalTelemetry := observability.TelemetrySystem
	observability.PrometheusExporter = nil
	observability.TelemetrySystem = nil
	t.Cleanup(func() {
		observability.PrometheusExporter = originalExporter
		observability.TelemetrySystem = originalTelemetry
	})

	ts := newPropertyServer(t, config.UpstreamConfig{MockResponse: true}, nil)
	client := ts.Client()

	resp, err := client.Get(ts.URL + "/property/details?address=123+Main+St&zipcode=12345")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
