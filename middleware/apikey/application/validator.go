package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"tiered-gateway/consumer"
	"tiered-gateway/middleware/apikey/domain"
)

// Metrics conta os resultados da validação por outcome.
type Metrics struct {
	attempts *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		attempts: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_auth_attempts_total",
			Help: "Credential validation attempts by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) record(outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

// Validator resolve o valor do header X-API-Key em uma Identity.
// Só lê do store; nunca escreve.
type Validator struct {
	Keys    domain.KeyStore
	Metrics *Metrics
	Logger  *zap.Logger
}

func (v Validator) Validate(ctx context.Context, raw string) (consumer.Identity, error) {
	id, err := v.validate(ctx, raw)
	v.Metrics.record(outcome(err))
	return id, err
}

func (v Validator) validate(ctx context.Context, raw string) (consumer.Identity, error) {
	cred, err := domain.ParseCredential(raw)
	if err != nil {
		return consumer.Identity{}, err
	}
	if v.Keys == nil {
		return consumer.Identity{}, fmt.Errorf("%w: no key store configured", domain.ErrUpstreamUnavailable)
	}

	rec, err := v.Keys.Lookup(ctx, cred.KeyID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrKeyNotFound):
		return consumer.Identity{}, domain.ErrInvalidCredential
	case errors.Is(err, domain.ErrCorruptRecord):
		v.logger().Error("corrupt api key record", zap.String("key_id", cred.KeyID), zap.Error(err))
		return consumer.Identity{}, err
	default:
		if !errors.Is(err, domain.ErrUpstreamUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
		}
		return consumer.Identity{}, err
	}

	if subtle.ConstantTimeCompare([]byte(rec.Secret), []byte(cred.KeySecret)) != 1 {
		return consumer.Identity{}, domain.ErrInvalidCredential
	}

	return consumer.Identity{Username: rec.Username, Tier: rec.Tier}, nil
}

func (v Validator) logger() *zap.Logger {
	if v.Logger == nil {
		return zap.NewNop()
	}
	return v.Logger
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, domain.ErrMissingCredential):
		return "missing"
	case errors.Is(err, domain.ErrMalformedCredential):
		return "malformed"
	case errors.Is(err, domain.ErrInvalidCredential):
		return "invalid"
	case errors.Is(err, domain.ErrCorruptRecord):
		return "corrupt"
	default:
		return "unavailable"
	}
}
