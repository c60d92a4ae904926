package application

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fullPool nunca tem vaga: espera o ctx encerrar.
type fullPool struct{}

func (fullPool) Acquire(ctx context.Context) (func(), bool) {
	<-ctx.Done()
	return nil, false
}

type countingPool struct {
	acquired, released int
}

func (p *countingPool) Acquire(context.Context) (func(), bool) {
	p.acquired++
	return func() { p.released++ }, true
}

func TestConcurrencyService_NoPoolAdmitsEverything(t *testing.T) {
	release, ok := ConcurrencyService{}.Acquire(context.Background())
	require.True(t, ok)
	release()
}

func TestConcurrencyService_TimeoutCountsRejection(t *testing.T) {
	rejections := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_rejections_total"})
	svc := ConcurrencyService{Pool: fullPool{}, AcquireTimeout: 10 * time.Millisecond, Rejections: rejections}

	start := time.Now()
	_, ok := svc.Acquire(context.Background())
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(rejections))
}

func TestConcurrencyService_WithoutTimeoutFollowsRequestContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, ok := ConcurrencyService{Pool: fullPool{}}.Acquire(ctx)
	assert.False(t, ok)
}

func TestConcurrencyService_DelegatesToPool(t *testing.T) {
	pool := &countingPool{}
	release, ok := ConcurrencyService{Pool: pool}.Acquire(context.Background())
	require.True(t, ok)
	release()

	assert.Equal(t, 1, pool.acquired)
	assert.Equal(t, 1, pool.released)
}
