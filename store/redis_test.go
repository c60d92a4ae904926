package store

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, opts ...RedisOption) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	s := NewRedis(rdb, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedis_GetSetDel(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", "v"))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, s.Del(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Del(ctx))
}

func TestRedis_SortedSetOperations(t *testing.T) {
	s, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.ZAdd(ctx, "z", 1000, "a"))
	require.NoError(t, s.ZAdd(ctx, "z", 2000, "b"))
	require.NoError(t, s.ZAdd(ctx, "z", 3000, "c"))

	members, err := s.ZRangeByScore(ctx, "z", 1500, 3000)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, members)

	require.NoError(t, s.ZRemRangeByScore(ctx, "z", 0, 2000))
	members, err = s.ZRangeByScore(ctx, "z", 0, 5000)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, members)

	require.NoError(t, s.Expire(ctx, "z", 60*time.Second))
	assert.Equal(t, 60*time.Second, mr.TTL("z"))
}

func TestRedis_SetOperationsAndScan(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.SAdd(ctx, "users", "alice", "bob"))
	require.NoError(t, s.SRem(ctx, "users", "bob"))
	members, err := s.SMembers(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, members)

	require.NoError(t, s.Set(ctx, "apikey:1", "x"))
	require.NoError(t, s.Set(ctx, "apikey:2", "y"))
	require.NoError(t, s.Set(ctx, "user:alice", "z"))

	keys, err := s.Scan(ctx, "apikey:*")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"apikey:1", "apikey:2"}, keys)
}

func TestRedis_ServerErrorWrapsUnavailable(t *testing.T) {
	s, mr := newTestRedis(t)
	mr.SetError("ERR injected failure")

	_, err := s.Get(context.Background(), "k")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable), "expected ErrUnavailable, got %v", err)
	assert.False(t, errors.Is(err, ErrNotFound))

	assert.ErrorIs(t, s.Ping(context.Background()), ErrUnavailable)
}

func TestRedis_ClosedServerWrapsUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	s := NewRedis(rdb, WithOpTimeout(200*time.Millisecond))
	defer s.Close()
	mr.Close()

	err = s.Set(context.Background(), "k", "v")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRedis_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	s, mr := newTestRedis(t, WithBreaker(2, time.Minute))
	ctx := context.Background()

	mr.SetError("ERR injected failure")
	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, s.Set(ctx, "k", "v"), ErrUnavailable)
	}

	// servidor volta, mas o breaker continua aberto até o timeout
	mr.SetError("")
	err := s.Set(ctx, "k", "v")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "circuit breaker is open")
}

func TestRedis_CanceledCallerDoesNotTripBreaker(t *testing.T) {
	s, _ := newTestRedis(t, WithBreaker(2, time.Minute))
	require.NoError(t, s.Set(context.Background(), "apikey:x", "{}"))

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		_, err := s.Get(canceled, "apikey:x")
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}

	// cancelamento no meio da chamada também não conta
	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		err := s.do(ctx, "get", func(ctx context.Context) error {
			cancel()
			return ctx.Err()
		})
		assert.ErrorIs(t, err, context.Canceled)
	}

	val, err := s.Get(context.Background(), "apikey:x")
	require.NoError(t, err)
	assert.Equal(t, "{}", val)
}

func TestRedis_OpTimeoutTripsBreaker(t *testing.T) {
	s, _ := newTestRedis(t, WithBreaker(2, time.Minute), WithOpTimeout(10*time.Millisecond))

	for i := 0; i < 2; i++ {
		err := s.do(context.Background(), "get", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}

	err := s.Set(context.Background(), "k", "v")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "circuit breaker is open")
}

func TestRedis_NotFoundDoesNotTripBreaker(t *testing.T) {
	s, _ := newTestRedis(t, WithBreaker(1, time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.NoError(t, s.Set(ctx, "k", "v"))
}

func TestRedis_MetricsCountOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s, _ := newTestRedis(t, WithMetrics(m))
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v"))
	_, _ = s.Get(ctx, "missing")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("set", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("get", "not_found")))
}
