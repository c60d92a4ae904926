package store

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics agrupa os coletores do adapter. Com Registerer nil os coletores
// ficam fora de qualquer registry (útil em testes).
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	breaker    *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_store_operations_total",
			Help: "Total number of store operations by result.",
		}, []string{"operation", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_store_operation_duration_seconds",
			Help:    "Duration of store operations in seconds.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		breaker: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_store_breaker_state",
			Help: "Store circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"name"}),
	}
}

func (m *Metrics) observe(op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case errors.Is(err, ErrUnavailable):
		status = "error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// chamador desistiu antes da resposta
		status = "canceled"
	case err != nil:
		status = "error"
	}
	m.operations.WithLabelValues(op, status).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) breakerState(name string, state int) {
	if m == nil {
		return
	}
	m.breaker.WithLabelValues(name).Set(float64(state))
}
