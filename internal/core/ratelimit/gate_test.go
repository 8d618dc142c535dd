package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestGateAllowsBeforeAnyLimit(t *testing.T) {
	gate := NewGate(NewMemoryStore())

	require.True(t, gate.CanRequest(context.Background(), epoch))

	_, ok := gate.TimeUntilReset(context.Background(), epoch)
	require.False(t, ok)
}

func TestGateBlocksUntilDeadline(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(NewMemoryStore())
	resetAt := epoch.Add(60 * time.Second)

	gate.RecordLimit(ctx, resetAt)

	require.False(t, gate.CanRequest(ctx, epoch))
	require.False(t, gate.CanRequest(ctx, resetAt.Add(-time.Second)))
	require.True(t, gate.CanRequest(ctx, resetAt))
	require.True(t, gate.CanRequest(ctx, resetAt.Add(time.Hour)))

	remaining, ok := gate.TimeUntilReset(ctx, epoch)
	require.True(t, ok)
	require.Equal(t, int64(60), remaining)
}

func TestGateTimeUntilResetClampsAtZero(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(NewMemoryStore())
	gate.RecordLimit(ctx, epoch)

	remaining, ok := gate.TimeUntilReset(ctx, epoch.Add(5*time.Minute))
	require.True(t, ok)
	require.Equal(t, int64(0), remaining)
}

func TestGateLastWriterWins(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(NewMemoryStore())

	gate.RecordLimit(ctx, epoch.Add(10*time.Minute))
	gate.RecordLimit(ctx, epoch.Add(30*time.Second))

	require.True(t, gate.CanRequest(ctx, epoch.Add(time.Minute)))

	deadline, ok, err := gate.Deadline(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, epoch.Add(30*time.Second), deadline)
}

func TestGateKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a := NewGate(store, WithKey("a"))
	b := NewGate(store, WithKey("b"))

	a.RecordLimit(ctx, epoch.Add(time.Minute))

	require.False(t, a.CanRequest(ctx, epoch))
	require.True(t, b.CanRequest(ctx, epoch))
	require.Equal(t, "a", a.Key())
}

func TestGateReset(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(nil)
	gate.RecordLimit(ctx, epoch.Add(time.Minute))

	require.NoError(t, gate.Reset(ctx))
	require.True(t, gate.CanRequest(ctx, epoch))
}

type failingStore struct{}

func (failingStore) LoadDeadline(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, errors.New("boom")
}

func (failingStore) StoreDeadline(context.Context, string, time.Time) error {
	return errors.New("boom")
}

func (failingStore) ClearDeadline(context.Context, string) error {
	return errors.New("boom")
}

func TestGateFailsOpenOnStoreErrors(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(failingStore{})

	gate.RecordLimit(ctx, epoch.Add(time.Hour))
	require.True(t, gate.CanRequest(ctx, epoch))

	_, ok := gate.TimeUntilReset(ctx, epoch)
	require.False(t, ok)

	_, _, err := gate.Deadline(ctx)
	require.Error(t, err)
	require.Error(t, gate.CheckHealth(ctx))
}

func TestGateCheckHealth(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(nil)
	require.NoError(t, gate.CheckHealth(ctx))

	gate.RecordLimit(ctx, epoch.Add(time.Hour))
	require.NoError(t, gate.CheckHealth(ctx))
}

func TestGateConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(NewMemoryStore())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(offset int) {
			defer wg.Done()
			gate.RecordLimit(ctx, epoch.Add(time.Duration(offset)*time.Second))
		}(i + 1)
		go func() {
			defer wg.Done()
			_ = gate.CanRequest(ctx, epoch)
			_, _ = gate.TimeUntilReset(ctx, epoch)
		}()
	}
	wg.Wait()

	deadline, ok, err := gate.Deadline(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, deadline.After(epoch))
	require.False(t, gate.CanRequest(ctx, epoch))
}

func TestRedisStoreUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewRedisStore(rdb, WithRedisPrefix("test:"))
	require.Equal(t, "test:housecanary", store.redisKey(DefaultKey))

	ctx := context.Background()
	_, _, err := store.LoadDeadline(ctx, DefaultKey)
	require.Error(t, err)
	require.Error(t, store.Ping(ctx))

	gate := NewGate(store)
	require.True(t, gate.CanRequest(ctx, epoch))
}

func TestRedisStoreNilClient(t *testing.T) {
	store := NewRedisStore(nil)
	_, _, err := store.LoadDeadline(context.Background(), DefaultKey)
	require.Error(t, err)
	require.Error(t, store.StoreDeadline(context.Background(), DefaultKey, epoch))
	require.Error(t, store.ClearDeadline(context.Background(), DefaultKey))
}
