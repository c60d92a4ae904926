package infra

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tiered-gateway/middleware/ratelimit/domain"
)

// PromStatsStore expõe as decisões como contador Prometheus por escopo e
// outcome. O fail-open aparece como outcome="fail_open".
type PromStatsStore struct {
	decisions *prometheus.CounterVec
}

func NewPromStatsStore(reg prometheus.Registerer) *PromStatsStore {
	return &PromStatsStore{
		decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_ratelimit_decisions_total",
			Help: "Rate limit decisions by scope and outcome.",
		}, []string{"scope", "outcome"}),
	}
}

func (s *PromStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.decisions.WithLabelValues(string(ev.Scope), string(ev.Outcome)).Inc()
	return nil
}

// Decisions retorna o contador de um par escopo/outcome.
func (s *PromStatsStore) Decisions(scope domain.Scope, outcome domain.Outcome) prometheus.Counter {
	return s.decisions.WithLabelValues(string(scope), string(outcome))
}

// MultiStats repassa o evento a todos os stores; o primeiro erro é devolvido
// depois de todos tentarem.
type MultiStats []domain.StatsStore

func (m MultiStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
