package infra

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"tiered-gateway/middleware/ratelimit/domain"
)

// RedisStatsStore agrega decisões em hashes, um pipeline por evento:
//
//	<prefix>:total                  <outcome>
//	<prefix>:minute:<yyyymmddhhmm>  <outcome>          (expira em ttl)
//	<prefix>:scope                  <scope>:<outcome>
//	<prefix>:route                  <method> <path>:<outcome>
//	<prefix>:key:<window key>       <outcome>          (opcional, expira em ttl)
//
// Usa o cliente go-redis direto: HINCRBY não faz parte de store.Client.
type RedisStatsStore struct {
	rdb redis.UniversalClient

	prefix    string
	ttl       time.Duration
	bucket    string // "minute" (padrão) ou "none"
	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

// WithStatsTrackKeys liga um hash por identificador. Cardinalidade alta.
func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb redis.UniversalClient, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "ratelimit:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type hincr struct {
	key, field string
	expires    bool
}

func (s *RedisStatsStore) increments(ev domain.StatsEvent) []hincr {
	outcome := string(ev.Outcome)
	if outcome == "" {
		outcome = string(domain.OutcomeAllowed)
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	out := []hincr{{key: s.prefix + ":total", field: outcome}}
	if s.bucket == "minute" {
		out = append(out, hincr{key: s.prefix + ":minute:" + at.UTC().Format("200601021504"), field: outcome, expires: true})
	}
	if ev.Scope != "" {
		out = append(out, hincr{key: s.prefix + ":scope", field: string(ev.Scope) + ":" + outcome})
	}
	if route := strings.TrimSpace(ev.Method + " " + ev.Path); route != "" {
		out = append(out, hincr{key: s.prefix + ":route", field: route + ":" + outcome})
	}
	if s.trackKeys && ev.Key != "" {
		out = append(out, hincr{key: s.prefix + ":key:" + string(ev.Key), field: outcome, expires: true})
	}
	return out
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	pipe := s.rdb.Pipeline()
	for _, inc := range s.increments(ev) {
		pipe.HIncrBy(ctx, inc.key, inc.field, 1)
		if inc.expires && s.ttl > 0 {
			pipe.Expire(ctx, inc.key, s.ttl)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Totals lê o acumulado por outcome.
func (s *RedisStatsStore) Totals(ctx context.Context) (map[domain.Outcome]int64, error) {
	return s.readHash(ctx, s.prefix+":total")
}

// ScopeTotals lê o acumulado por escopo e outcome.
func (s *RedisStatsStore) ScopeTotals(ctx context.Context) (map[domain.Scope]map[domain.Outcome]int64, error) {
	raw, err := s.rdb.HGetAll(ctx, s.prefix+":scope").Result()
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Scope]map[domain.Outcome]int64)
	for field, v := range raw {
		// o escopo não contém ':'; o outcome vem depois do último
		i := strings.LastIndexByte(field, ':')
		if i <= 0 {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		scope := domain.Scope(field[:i])
		if out[scope] == nil {
			out[scope] = make(map[domain.Outcome]int64)
		}
		out[scope][domain.Outcome(field[i+1:])] = n
	}
	return out, nil
}

func (s *RedisStatsStore) readHash(ctx context.Context, key string) (map[domain.Outcome]int64, error) {
	raw, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Outcome]int64, len(raw))
	for field, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[domain.Outcome(field)] = n
	}
	return out, nil
}
