// Package septic answers whether a property has a septic system by running
// validation, the rate-limit gate, the provider call, and interpretation in
// sequence.
package septic

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/mattcoley/propertydetails/internal/core"
	"github.com/mattcoley/propertydetails/internal/core/interpret"
	"github.com/mattcoley/propertydetails/internal/core/ratelimit"
	"github.com/mattcoley/propertydetails/internal/core/upstream"
	"github.com/mattcoley/propertydetails/internal/core/validate"
	"github.com/mattcoley/propertydetails/internal/metrics"
)

// Service is safe for concurrent use. The gate's deadline is the only state
// shared between lookups.
type Service struct {
	gate        *ratelimit.Gate
	fetcher     upstream.Fetcher
	interpreter *interpret.Interpreter
	clock       func() time.Time
	logger      *logging.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for gate checks and deadline arithmetic.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService wires the pipeline. A nil gate gets a private in-memory one.
func NewService(gate *ratelimit.Gate, fetcher upstream.Fetcher, opts ...Option) *Service {
	if gate == nil {
		gate = ratelimit.NewGate(nil)
	}
	s := &Service{
		gate:    gate,
		fetcher: fetcher,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.interpreter = &interpret.Interpreter{
		Recorder: countingRecorder{gate: gate},
		Clock:    s.clock,
		Logger:   s.logger,
	}
	return s
}

// Gate exposes the rate-limit gate for health checks and operator commands.
func (s *Service) Gate() *ratelimit.Gate {
	return s.gate
}

// Mode reports which upstream strategy the service uses.
func (s *Service) Mode() core.Mode {
	if s.fetcher == nil {
		return core.ModeLive
	}
	return s.fetcher.Mode()
}

// Lookup validates raw parameters and runs the pipeline.
func (s *Service) Lookup(ctx context.Context, params validate.Params) core.Outcome {
	query, err := validate.Query(params)
	if err != nil {
		return s.finish(core.InvalidQuery(err.Error()))
	}
	return s.finish(s.run(ctx, query))
}

// LookupQuery runs the pipeline for an already validated query. Queries that
// fail the identification rule are still rejected.
func (s *Service) LookupQuery(ctx context.Context, query core.AddressQuery) core.Outcome {
	if !validate.Identifiable(query) {
		return s.finish(core.InvalidQuery(validate.MessageInsufficientAddress))
	}
	return s.finish(s.run(ctx, query))
}

func (s *Service) run(ctx context.Context, query core.AddressQuery) core.Outcome {
	if ctx == nil {
		ctx = context.Background()
	}

	// One read answers both can_request and time_until_reset.
	if remaining, limited := s.gate.TimeUntilReset(ctx, s.clock()); limited && remaining > 0 {
		metrics.RecordRateLimitShortCircuit()
		s.debug("Lookup deferred by rate limit gate", zap.Int64("retry_after_seconds", remaining))
		return core.RateLimited(remaining)
	}

	if s.fetcher == nil {
		return core.UpstreamError()
	}

	start := time.Now()
	resp := s.fetcher.Fetch(ctx, query)
	metrics.RecordUpstreamRequest(s.fetcher.Mode(), resp.Status, time.Since(start))

	return s.interpreter.Interpret(ctx, resp)
}

func (s *Service) finish(outcome core.Outcome) core.Outcome {
	metrics.RecordLookupOutcome(outcome.Kind)
	return outcome
}

func (s *Service) debug(msg string, fields ...zap.Field) {
	if s.logger != nil {
		s.logger.Debug(msg, fields...)
	}
}

// countingRecorder counts deadlines as they are written to the gate.
type countingRecorder struct {
	gate *ratelimit.Gate
}

// The write outlives the caller: a client that disconnects after the provider
// answered 429 must not lose the deadline for everyone else.
func (r countingRecorder) RecordLimit(ctx context.Context, resetAt time.Time) {
	r.gate.RecordLimit(context.WithoutCancel(ctx), resetAt)
	metrics.RecordRateLimitRecorded()
}
