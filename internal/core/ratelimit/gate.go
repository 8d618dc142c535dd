// Package ratelimit tracks the provider's rate-limit reset deadline.
//
// The provider reports an explicit reset instant when it rejects a request,
// so the gate is a deadline check rather than a rate calculation. The
// deadline is shared by every caller using the same credentials and lives in
// a DeadlineStore: an in-process cell by default, or libsql/redis when the
// deadline has to survive restarts or span replicas.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

// DefaultKey names the deadline for the HouseCanary credentials.
const DefaultKey = "housecanary"

// DeadlineStore persists the reset deadline. Implementations must make
// concurrent load/store linearizable.
type DeadlineStore interface {
	LoadDeadline(ctx context.Context, key string) (time.Time, bool, error)
	StoreDeadline(ctx context.Context, key string, resetAt time.Time) error
	ClearDeadline(ctx context.Context, key string) error
}

// Gate answers whether the provider will accept a request now.
//
// Store failures never block callers: a failed read is treated as "no
// active limit" and a failed write is logged and dropped.
type Gate struct {
	store  DeadlineStore
	key    string
	logger *logging.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithKey scopes the gate to a deadline key other than DefaultKey.
func WithKey(key string) Option {
	return func(g *Gate) {
		if key != "" {
			g.key = key
		}
	}
}

// WithLogger attaches a logger for store failures and recorded limits.
func WithLogger(logger *logging.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

// NewGate builds a gate over store. A nil store falls back to a fresh
// MemoryStore.
func NewGate(store DeadlineStore, opts ...Option) *Gate {
	if store == nil {
		store = NewMemoryStore()
	}
	g := &Gate{store: store, key: DefaultKey}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Key returns the deadline key the gate reads and writes.
func (g *Gate) Key() string {
	return g.key
}

// Store exposes the backing store, mainly for health checks.
func (g *Gate) Store() DeadlineStore {
	return g.store
}

// CanRequest is true iff no deadline is recorded or now >= reset_at.
func (g *Gate) CanRequest(ctx context.Context, now time.Time) bool {
	resetAt, ok := g.load(ctx)
	if !ok {
		return true
	}
	return now.Unix() >= resetAt.Unix()
}

// RecordLimit overwrites the stored deadline. The provider's latest deadline
// is authoritative, so last writer wins.
func (g *Gate) RecordLimit(ctx context.Context, resetAt time.Time) {
	resetAt = time.Unix(resetAt.Unix(), 0).UTC()
	if err := g.store.StoreDeadline(ctx, g.key, resetAt); err != nil {
		g.warn("Failed to record rate limit deadline", err)
		return
	}
	if g.logger != nil {
		g.logger.Info("Recorded upstream rate limit",
			zap.String("key", g.key),
			zap.Time("reset_at", resetAt))
	}
}

// TimeUntilReset returns reset_at - now in whole seconds, clamped at zero.
// The boolean is false when no deadline is recorded.
func (g *Gate) TimeUntilReset(ctx context.Context, now time.Time) (int64, bool) {
	resetAt, ok := g.load(ctx)
	if !ok {
		return 0, false
	}
	remaining := resetAt.Unix() - now.Unix()
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// Deadline returns the recorded deadline, surfacing store errors. Used by
// operator tooling rather than the request path.
func (g *Gate) Deadline(ctx context.Context) (time.Time, bool, error) {
	return g.store.LoadDeadline(ctx, g.key)
}

// Reset removes the recorded deadline. The request path never calls this.
func (g *Gate) Reset(ctx context.Context) error {
	return g.store.ClearDeadline(ctx, g.key)
}

func (g *Gate) load(ctx context.Context) (time.Time, bool) {
	resetAt, ok, err := g.store.LoadDeadline(ctx, g.key)
	if err != nil {
		g.warn("Failed to read rate limit deadline", err)
		return time.Time{}, false
	}
	return resetAt, ok
}

func (g *Gate) warn(msg string, err error) {
	if g.logger == nil {
		return
	}
	g.logger.Warn(msg, zap.String("key", g.key), zap.Error(err))
}

// CheckHealth reports whether the backing store can be read. An active
// deadline is not a health problem.
func (g *Gate) CheckHealth(ctx context.Context) error {
	if _, _, err := g.store.LoadDeadline(ctx, g.key); err != nil {
		return fmt.Errorf("rate limit store unavailable: %w", err)
	}
	return nil
}
