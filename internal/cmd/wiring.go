package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mattcoley/propertydetails/internal/config"
	"github.com/mattcoley/propertydetails/internal/core/ratelimit"
	"github.com/mattcoley/propertydetails/internal/core/septic"
	"github.com/mattcoley/propertydetails/internal/core/store"
	"github.com/mattcoley/propertydetails/internal/core/upstream"
)

// pipeline holds the wired lookup service and the resources behind it.
type pipeline struct {
	gate    *ratelimit.Gate
	service *septic.Service
	closers []func() error
}

// Close releases backend connections in reverse order of creation.
func (p *pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openDeadlineStore builds the configured rate-limit backend. The returned
// closer is never nil.
func openDeadlineStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (ratelimit.DeadlineStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.RateLimit.Backend {
	case config.BackendLibsql:
		db, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return nil, noop, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return db, db.Close, nil

	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rs := ratelimit.NewRedisStore(rdb, ratelimit.WithRedisPrefix(cfg.Redis.Prefix))
		// The gate fails open, so an unreachable redis at startup is logged
		// rather than fatal.
		if err := rs.Ping(ctx); err != nil && logger != nil {
			logger.Warn("Redis rate limit backend unreachable",
				zap.String("addr", cfg.Redis.Addr),
				zap.Error(err))
		}
		return rs, rdb.Close, nil

	case config.BackendMemory, "":
		return ratelimit.NewMemoryStore(), noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown rate limit backend %q", cfg.RateLimit.Backend)
	}
}

// buildPipeline wires gate, fetcher, and service from cfg.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pipeline, error) {
	deadlines, closeStore, err := openDeadlineStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open rate limit backend: %w", err)
	}
	p := &pipeline{closers: []func() error{closeStore}}

	p.gate = ratelimit.NewGate(deadlines,
		ratelimit.WithKey(cfg.RateLimit.Key),
		ratelimit.WithLogger(logger))

	fetcher, err := upstream.New(cfg.Upstream, logger)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("configure upstream: %w", err)
	}

	p.service = septic.NewService(p.gate, fetcher, septic.WithLogger(logger))
	return p, nil
}
