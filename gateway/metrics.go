package gateway

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics do roteador. Métodos aceitam receiver nil.
type Metrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	rejections    *prometheus.CounterVec
	backendErrors *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Requests handled by the gateway by route and status code.",
		}, []string{"route", "code"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "End-to-end request duration by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_pipeline_rejections_total",
			Help: "Requests terminated by a pipeline stage.",
		}, []string{"route", "stage", "kind"}),
		backendErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_backend_errors_total",
			Help: "Failed forwards by backend.",
		}, []string{"backend"}),
	}
}

func (m *Metrics) observe(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) rejected(route, stage, kind string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(route, stage, kind).Inc()
}

func (m *Metrics) backendError(backend string) {
	if m == nil {
		return
	}
	m.backendErrors.WithLabelValues(backend).Inc()
}
