package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var _ Client = (*Redis)(nil)

// Redis implementa Client sobre go-redis.
type Redis struct {
	rdb       redis.UniversalClient
	opTimeout time.Duration
	cb        *gobreaker.CircuitBreaker
	metrics   *Metrics
	logger    *zap.Logger

	breakerName     string
	breakerFailures uint32
	breakerOpen     time.Duration
}

type RedisOption func(*Redis)

// WithOpTimeout limita a duração de cada operação individual.
func WithOpTimeout(d time.Duration) RedisOption {
	return func(s *Redis) { s.opTimeout = d }
}

// WithBreaker configura o circuit breaker: abre após `failures` falhas
// consecutivas e fica aberto por `open` antes de testar novamente.
func WithBreaker(failures uint32, open time.Duration) RedisOption {
	return func(s *Redis) {
		s.breakerFailures = failures
		s.breakerOpen = open
	}
}

func WithMetrics(m *Metrics) RedisOption {
	return func(s *Redis) { s.metrics = m }
}

func WithLogger(l *zap.Logger) RedisOption {
	return func(s *Redis) { s.logger = l }
}

func NewRedis(rdb redis.UniversalClient, opts ...RedisOption) *Redis {
	s := &Redis{
		rdb:             rdb,
		opTimeout:       500 * time.Millisecond,
		logger:          zap.NewNop(),
		breakerName:     "store",
		breakerFailures: 5,
		breakerOpen:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.breakerName,
		MaxRequests: 1,
		Timeout:     s.breakerOpen,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return s.breakerFailures > 0 && c.ConsecutiveFailures >= s.breakerFailures
		},
		IsSuccessful: func(err error) bool {
			var gone callerGoneError
			return err == nil || errors.Is(err, redis.Nil) ||
				errors.Is(err, context.Canceled) || errors.As(err, &gone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("store circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			s.metrics.breakerState(name, int(to))
		},
	})
	return s
}

// Close fecha o cliente go-redis subjacente.
func (s *Redis) Close() error { return s.rdb.Close() }

// callerGoneError marca falhas cuja causa é o contexto do chamador ter
// terminado. Não contam contra o breaker; o timeout por operação conta.
type callerGoneError struct{ err error }

func (e callerGoneError) Error() string { return e.err.Error() }
func (e callerGoneError) Unwrap() error { return e.err }

func (s *Redis) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	parent := ctx
	if err := parent.Err(); err != nil {
		err = fmt.Errorf("store: %s: %w", op, err)
		s.metrics.observe(op, err, 0)
		return err
	}

	ctx, cancel := context.WithTimeout(parent, s.opTimeout)
	defer cancel()

	start := time.Now()
	_, err := s.cb.Execute(func() (interface{}, error) {
		err := fn(ctx)
		if err != nil && parent.Err() != nil {
			return nil, callerGoneError{err: parent.Err()}
		}
		return nil, err
	})

	var gone callerGoneError
	switch {
	case err == nil:
	case errors.Is(err, redis.Nil):
		err = ErrNotFound
	case errors.As(err, &gone):
		err = fmt.Errorf("store: %s: %w", op, gone.err)
	default:
		err = fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
	s.metrics.observe(op, err, time.Since(start))
	return err
}

func (s *Redis) Get(ctx context.Context, key string) (string, error) {
	var val string
	err := s.do(ctx, "get", func(ctx context.Context) error {
		var err error
		val, err = s.rdb.Get(ctx, key).Result()
		return err
	})
	return val, err
}

func (s *Redis) Set(ctx context.Context, key, value string) error {
	return s.do(ctx, "set", func(ctx context.Context) error {
		return s.rdb.Set(ctx, key, value, 0).Err()
	})
}

func (s *Redis) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.do(ctx, "del", func(ctx context.Context) error {
		return s.rdb.Del(ctx, keys...).Err()
	})
}

func (s *Redis) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return s.do(ctx, "zadd", func(ctx context.Context) error {
		return s.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
	})
}

func (s *Redis) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error) {
	var members []string
	err := s.do(ctx, "zrangebyscore", func(ctx context.Context) error {
		var err error
		members, err = s.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{
			Min: formatScore(min),
			Max: formatScore(max),
		}).Result()
		return err
	})
	return members, err
}

func (s *Redis) ZRemRangeByScore(ctx context.Context, key string, min, max float64) error {
	return s.do(ctx, "zremrangebyscore", func(ctx context.Context) error {
		return s.rdb.ZRemRangeByScore(ctx, key, formatScore(min), formatScore(max)).Err()
	})
}

func (s *Redis) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.do(ctx, "expire", func(ctx context.Context) error {
		return s.rdb.Expire(ctx, key, ttl).Err()
	})
}

func (s *Redis) SAdd(ctx context.Context, key string, members ...string) error {
	return s.do(ctx, "sadd", func(ctx context.Context) error {
		return s.rdb.SAdd(ctx, key, toAny(members)...).Err()
	})
}

func (s *Redis) SMembers(ctx context.Context, key string) ([]string, error) {
	var members []string
	err := s.do(ctx, "smembers", func(ctx context.Context) error {
		var err error
		members, err = s.rdb.SMembers(ctx, key).Result()
		return err
	})
	return members, err
}

func (s *Redis) SRem(ctx context.Context, key string, members ...string) error {
	return s.do(ctx, "srem", func(ctx context.Context) error {
		return s.rdb.SRem(ctx, key, toAny(members)...).Err()
	})
}

func (s *Redis) Scan(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	err := s.do(ctx, "scan", func(ctx context.Context) error {
		var cursor uint64
		for {
			keys, next, err := s.rdb.Scan(ctx, cursor, pattern, 100).Result()
			if err != nil {
				return err
			}
			out = append(out, keys...)
			if next == 0 {
				return nil
			}
			cursor = next
		}
	})
	return out, err
}

func (s *Redis) Ping(ctx context.Context) error {
	return s.do(ctx, "ping", func(ctx context.Context) error {
		return s.rdb.Ping(ctx).Err()
	})
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func toAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
