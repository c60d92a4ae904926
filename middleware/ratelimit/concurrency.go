package ratelimit

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tiered-gateway/httperr"
	"tiered-gateway/middleware/ratelimit/application"
	"tiered-gateway/middleware/ratelimit/infra"
)

// ConcurrencyOptions limita quantas requisições o gateway processa ao mesmo tempo.
type ConcurrencyOptions struct {
	Max            int
	AcquireTimeout time.Duration
	// Rejections é opcional.
	Rejections prometheus.Counter
	// Registerer, se presente, recebe o gauge de vagas ocupadas.
	Registerer prometheus.Registerer
}

func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	pool := infra.NewSemaphorePool(opts.Max)
	if opts.Registerer != nil {
		promauto.With(opts.Registerer).NewGaugeFunc(prometheus.GaugeOpts{
			Name: "gateway_concurrency_in_flight",
			Help: "Requests currently holding a concurrency slot.",
		}, func() float64 { return float64(pool.InFlight()) })
	}

	svc := application.ConcurrencyService{
		Pool:           pool,
		AcquireTimeout: opts.AcquireTimeout,
		Rejections:     opts.Rejections,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				httperr.Write(w, httperr.New(httperr.KindGatewayOverloaded, "Gateway is at capacity, try again later"))
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
