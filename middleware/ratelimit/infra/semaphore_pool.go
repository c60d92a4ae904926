package infra

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"tiered-gateway/middleware/ratelimit/domain"
)

var _ domain.SlotPool = (*SemaphorePool)(nil)

// SemaphorePool implementa SlotPool sobre um semáforo ponderado com peso 1
// por requisição.
type SemaphorePool struct {
	sem      *semaphore.Weighted
	inFlight atomic.Int64
}

func NewSemaphorePool(max int) *SemaphorePool {
	return &SemaphorePool{sem: semaphore.NewWeighted(int64(max))}
}

func (p *SemaphorePool) Acquire(ctx context.Context) (func(), bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, false
	}
	p.inFlight.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.inFlight.Add(-1)
			p.sem.Release(1)
		})
	}, true
}

// InFlight é o número de vagas ocupadas agora.
func (p *SemaphorePool) InFlight() int64 { return p.inFlight.Load() }
