package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiered-gateway/consumer"
	"tiered-gateway/middleware/ratelimit/domain"
)

// memWindowStore mantém os logs em memória, com a mesma semântica do adapter Redis.
type memWindowStore struct {
	mu      sync.Mutex
	logs    map[domain.Key][]time.Time
	fail    error
	records int
}

func newMemWindowStore() *memWindowStore {
	return &memWindowStore{logs: make(map[domain.Key][]time.Time)}
}

func (m *memWindowStore) Count(_ context.Context, key domain.Key, from, to time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return 0, m.fail
	}
	n := 0
	for _, at := range m.logs[key] {
		if !at.Before(from) && !at.After(to) {
			n++
		}
	}
	return n, nil
}

func (m *memWindowStore) Record(_ context.Context, key domain.Key, at, purgeBefore time.Time, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.records++
	kept := m.logs[key][:0]
	for _, ts := range m.logs[key] {
		if !ts.Before(purgeBefore) {
			kept = append(kept, ts)
		}
	}
	m.logs[key] = append(kept, at)
	return nil
}

func (m *memWindowStore) size(key domain.Key) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs[key])
}

type recordingStats struct {
	mu     sync.Mutex
	events []domain.StatsEvent
}

func (r *recordingStats) Record(_ context.Context, ev domain.StatsEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time            { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(store domain.WindowStore) (*Service, *clock) {
	c := &clock{t: time.UnixMilli(1_700_000_000_123)}
	svc := NewService(store, domain.DefaultPolicies())
	svc.Now = c.Now
	return svc, c
}

func TestService_Admit_RemainingDecreasesToZero(t *testing.T) {
	store := newMemWindowStore()
	svc, c := newTestService(store)
	req := domain.AdmitRequest{Scope: "public", Identifier: "1.2.3.4"}

	for i := 1; i <= 10; i++ {
		dec, err := svc.Admit(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "request %d", i)
		assert.Equal(t, 10, dec.Limit)
		assert.Equal(t, 10-i, dec.Remaining, "request %d", i)
		assert.False(t, dec.FailOpen)
		c.Advance(time.Second)
	}
}

func TestService_Admit_RejectsOverLimitWithoutRecording(t *testing.T) {
	store := newMemWindowStore()
	svc, _ := newTestService(store)
	req := domain.AdmitRequest{Scope: "public", Identifier: "1.2.3.4"}
	key := domain.WindowKey("public", "1.2.3.4")

	for i := 0; i < 10; i++ {
		_, err := svc.Admit(context.Background(), req)
		require.NoError(t, err)
	}
	require.Equal(t, 10, store.size(key))

	for i := 0; i < 3; i++ {
		dec, err := svc.Admit(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, dec.Allowed)
		assert.Equal(t, 0, dec.Remaining)
		assert.Equal(t, 60, dec.RetryAfterSeconds)
	}
	assert.Equal(t, 10, store.size(key), "rejected requests must not be recorded")
}

func TestService_Admit_WindowExpiry(t *testing.T) {
	store := newMemWindowStore()
	svc, c := newTestService(store)
	req := domain.AdmitRequest{Scope: "public", Identifier: "1.2.3.4"}

	for i := 0; i < 10; i++ {
		_, err := svc.Admit(context.Background(), req)
		require.NoError(t, err)
	}
	dec, _ := svc.Admit(context.Background(), req)
	require.False(t, dec.Allowed)

	c.Advance(61 * time.Second)

	dec, err := svc.Admit(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, 9, dec.Remaining)
	assert.Equal(t, 1, store.size(domain.WindowKey("public", "1.2.3.4")), "old entries purged on admission")
}

func TestService_Admit_ResetEpochSecondsRoundsUp(t *testing.T) {
	svc, c := newTestService(newMemWindowStore())

	dec, err := svc.Admit(context.Background(), domain.AdmitRequest{Scope: "public", Identifier: "x"})
	require.NoError(t, err)
	// now = 1_700_000_000_123ms, +60s => 1_700_000_060.123s => ceil 1_700_000_061
	assert.Equal(t, int64(1_700_000_061), dec.ResetEpochSeconds)
	assert.Equal(t, c.Now().Add(time.Minute).Unix()+1, dec.ResetEpochSeconds)
}

func TestService_Admit_AutoScopeUsesIdentityTier(t *testing.T) {
	svc, _ := newTestService(newMemWindowStore())

	premium := &consumer.Identity{Username: "p", Tier: consumer.TierPremium}
	dec, err := svc.Admit(context.Background(), domain.AdmitRequest{Scope: domain.ScopeAuto, Identifier: "p", Identity: premium})
	require.NoError(t, err)
	assert.Equal(t, 500, dec.Limit)

	dec, err = svc.Admit(context.Background(), domain.AdmitRequest{Scope: domain.ScopeAuto, Identifier: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, 100, dec.Limit)
}

func TestService_Admit_IdentifiersAreIsolated(t *testing.T) {
	svc, _ := newTestService(newMemWindowStore())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, _ = svc.Admit(ctx, domain.AdmitRequest{Scope: "public", Identifier: "a"})
	}
	dec, _ := svc.Admit(ctx, domain.AdmitRequest{Scope: "public", Identifier: "a"})
	assert.False(t, dec.Allowed)

	dec, _ = svc.Admit(ctx, domain.AdmitRequest{Scope: "public", Identifier: "b"})
	assert.True(t, dec.Allowed)
	assert.Equal(t, 9, dec.Remaining)
}

func TestService_Admit_FailsOpenWhenStoreUnavailable(t *testing.T) {
	store := newMemWindowStore()
	store.fail = errors.New("store: unavailable")
	stats := &recordingStats{}
	svc, _ := newTestService(store)
	svc.Stats = stats

	for i := 0; i < 20; i++ {
		dec, err := svc.Admit(context.Background(), domain.AdmitRequest{Scope: "public", Identifier: "1.2.3.4"})
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
		assert.True(t, dec.FailOpen)
	}
	assert.Equal(t, 0, store.records)
	require.Len(t, stats.events, 20)
	assert.Equal(t, domain.OutcomeFailOpen, stats.events[0].Outcome)
}

func TestService_Admit_FailsOpenWithoutStore(t *testing.T) {
	svc := NewService(nil, domain.DefaultPolicies())
	dec, err := svc.Admit(context.Background(), domain.AdmitRequest{Scope: "public", Identifier: "x"})
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.True(t, dec.FailOpen)
}

func TestService_Admit_RejectsEmptyIdentifierAndBadPolicy(t *testing.T) {
	svc, _ := newTestService(newMemWindowStore())
	_, err := svc.Admit(context.Background(), domain.AdmitRequest{Scope: "public"})
	assert.ErrorIs(t, err, domain.ErrEmptyIdentifier)

	svc.Policies = domain.PolicyTable{consumer.TierStandard: {Max: 0, WindowSeconds: 60}}
	_, err = svc.Admit(context.Background(), domain.AdmitRequest{Scope: "public", Identifier: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidPolicy)
}

func TestService_Admit_EmitsStats(t *testing.T) {
	stats := &recordingStats{}
	svc, _ := newTestService(newMemWindowStore())
	svc.Policies = domain.PolicyTable{consumer.TierStandard: {Max: 1, WindowSeconds: 60}}
	svc.Stats = stats

	req := domain.AdmitRequest{Scope: "standard", Identifier: "u", Method: "GET", Path: "/api/service-a/users"}
	_, _ = svc.Admit(context.Background(), req)
	_, _ = svc.Admit(context.Background(), req)

	require.Len(t, stats.events, 2)
	assert.Equal(t, domain.OutcomeAllowed, stats.events[0].Outcome)
	assert.Equal(t, domain.OutcomeDenied, stats.events[1].Outcome)
	assert.Equal(t, "/api/service-a/users", stats.events[1].Path)
	assert.Equal(t, domain.Key("ratelimit:standard:u"), stats.events[1].Key)
}
