package application

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tiered-gateway/middleware/ratelimit/domain"
)

// ConcurrencyService aplica o teto de requisições em voo do gateway,
// sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
	// Rejections é opcional; conta aquisições que falharam.
	Rejections prometheus.Counter
}

// Acquire tenta adquirir uma vaga.
// - Se `AcquireTimeout <= 0`, espera até o ctx do request cancelar.
// - Se `AcquireTimeout > 0`, espera no máximo o timeout.
// Retorna (release, ok). Se ok=false, nenhuma vaga foi adquirida.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(ctx)
	if !ok && s.Rejections != nil {
		s.Rejections.Inc()
	}
	return release, ok
}
