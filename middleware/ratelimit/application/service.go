package application

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tiered-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit (sliding window log).
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
// Use sempre via ponteiro: o throttle do aviso de fail-open tem estado.
type Service struct {
	Store    domain.WindowStore
	Policies domain.PolicyTable
	Stats    domain.StatsStore
	Logger   *zap.Logger
	// Now permite relógio fixo em testes.
	Now func() time.Time

	failOpenWarn rate.Sometimes
}

func NewService(store domain.WindowStore, policies domain.PolicyTable) *Service {
	return &Service{
		Store:        store,
		Policies:     policies,
		failOpenWarn: rate.Sometimes{Interval: 10 * time.Second},
	}
}

// Admit decide se a requisição entra e, se entrar, registra a admissão.
//
// Rejeições não são registradas. Se o store falhar, a decisão é fail-open:
// Allowed=true e FailOpen=true, sinalizada em Stats e no log.
func (s *Service) Admit(ctx context.Context, req domain.AdmitRequest) (domain.Decision, error) {
	if req.Identifier == "" {
		return domain.Decision{}, domain.ErrEmptyIdentifier
	}
	policy := s.Policies.Resolve(req.Scope, req.Identity)
	if err := policy.Validate(); err != nil {
		return domain.Decision{}, err
	}

	now := s.now()
	window := policy.Window()
	windowStart := now.Add(-window)
	key := domain.WindowKey(req.Scope, req.Identifier)

	if s.Store == nil {
		return s.failOpen(ctx, req, key, policy, now, nil), nil
	}

	count, err := s.Store.Count(ctx, key, windowStart, now)
	if err != nil {
		return s.failOpen(ctx, req, key, policy, now, err), nil
	}

	dec := domain.Decision{
		Limit:             policy.Max,
		ResetEpochSeconds: resetEpochSeconds(now, window),
	}

	if count >= policy.Max {
		dec.RetryAfterSeconds = policy.WindowSeconds
		s.emit(ctx, req, key, dec, now)
		return dec, nil
	}

	if err := s.Store.Record(ctx, key, now, windowStart, window); err != nil {
		return s.failOpen(ctx, req, key, policy, now, err), nil
	}

	dec.Allowed = true
	dec.Remaining = max(0, policy.Max-count-1)
	s.emit(ctx, req, key, dec, now)
	return dec, nil
}

func (s *Service) failOpen(ctx context.Context, req domain.AdmitRequest, key domain.Key, policy domain.Policy, now time.Time, cause error) domain.Decision {
	dec := domain.Decision{Allowed: true, FailOpen: true, Limit: policy.Max}
	s.failOpenWarn.Do(func() {
		s.logger().Warn("rate limiter store unavailable, failing open",
			zap.String("key", string(key)),
			zap.Error(cause),
		)
	})
	s.emit(ctx, req, key, dec, now)
	return dec
}

func (s *Service) emit(ctx context.Context, req domain.AdmitRequest, key domain.Key, dec domain.Decision, at time.Time) {
	if s.Stats == nil {
		return
	}
	err := s.Stats.Record(ctx, domain.StatsEvent{
		Key:     key,
		Scope:   req.Scope,
		Outcome: dec.Outcome(),
		Method:  req.Method,
		Path:    req.Path,
		At:      at,
	})
	if err != nil {
		s.logger().Debug("rate limit stats record failed", zap.Error(err))
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// resetEpochSeconds = ceil((now + window) / 1s), em segundos desde epoch.
func resetEpochSeconds(now time.Time, window time.Duration) int64 {
	ms := now.UnixMilli() + window.Milliseconds()
	return (ms + 999) / 1000
}
