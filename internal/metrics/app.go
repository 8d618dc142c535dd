package metrics

import (
	"strconv"
	"time"

	"github.com/mattcoley/propertydetails/internal/core"
	"github.com/mattcoley/propertydetails/internal/observability"
)

// Lookup pipeline metrics following Prometheus conventions
const (
	LookupOutcomesTotal       = "lookup_outcomes_total"
	UpstreamRequestsTotal     = "upstream_requests_total"
	UpstreamRequestDuration   = "upstream_request_duration_ms"
	RateLimitRecordedTotal    = "rate_limit_recorded_total"
	RateLimitShortCircuitName = "rate_limit_short_circuit_total"

	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	ServerStartTime = "app_server_start_time_seconds"
)

// RecordLookupOutcome counts one finished lookup by outcome kind.
func RecordLookupOutcome(kind core.OutcomeKind) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		LookupOutcomesTotal,
		1,
		map[string]string{"outcome": string(kind)},
	)
}

// RecordUpstreamRequest counts one provider call and its latency. Status 0
// is reported as "transport_error".
func RecordUpstreamRequest(mode core.Mode, status int, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	statusLabel := "transport_error"
	if status != 0 {
		statusLabel = strconv.Itoa(status)
	}

	_ = observability.TelemetrySystem.Counter(
		UpstreamRequestsTotal,
		1,
		map[string]string{
			"mode":   string(mode),
			"status": statusLabel,
		},
	)
	_ = observability.TelemetrySystem.Histogram(
		UpstreamRequestDuration,
		duration,
		map[string]string{"mode": string(mode)},
	)
}

// RecordRateLimitRecorded counts deadlines written to the gate.
func RecordRateLimitRecorded() {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(RateLimitRecordedTotal, 1, nil)
}

// RecordRateLimitShortCircuit counts lookups answered by the gate without
// contacting the provider.
func RecordRateLimitShortCircuit() {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(RateLimitShortCircuitName, 1, nil)
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	_ = observability.TelemetrySystem.Counter(
		HealthCheckTotal,
		1,
		map[string]string{
			"check":  checkName,
			"status": status,
		},
	)
	_ = observability.TelemetrySystem.Histogram(
		HealthCheckDuration,
		duration,
		map[string]string{"check": checkName},
	)
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(timestamp), nil)
}
