package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	akapp "tiered-gateway/middleware/apikey/application"
	akinfra "tiered-gateway/middleware/apikey/infra"
	rldomain "tiered-gateway/middleware/ratelimit/domain"
	rlinfra "tiered-gateway/middleware/ratelimit/infra"
	"tiered-gateway/store"
)

func newDeps(t *testing.T) (deps, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	c := store.NewRedis(rdb)
	t.Cleanup(func() { _ = c.Close() })
	return deps{
		registry:  akinfra.Registry{Client: c},
		stats:     rlinfra.NewRedisStatsStore(rdb),
		validator: akapp.Validator{Keys: akinfra.KeyStore{Client: c}},
	}, mr
}

func runJSON(t *testing.T, d deps, args ...string) map[string]any {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), d, args, &out))
	var body map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	return body
}

func TestRun_IssueShowRevoke(t *testing.T) {
	d, mr := newDeps(t)

	issued := runJSON(t, d, "issue", "-user", "alice", "-email", "alice@example.com", "-tier", "premium")
	key, _ := issued["apiKey"].(string)
	keyID, secret, ok := strings.Cut(key, ":")
	require.True(t, ok)
	assert.Len(t, keyID, 32)
	assert.Len(t, secret, 64)
	assert.True(t, mr.Exists("apikey:"+keyID))

	shown := runJSON(t, d, "show", "-user", "alice")
	assert.Equal(t, key, shown["apiKey"])

	users := runJSON(t, d, "users")
	assert.Equal(t, float64(1), users["count"])

	keys := runJSON(t, d, "keys")
	assert.Equal(t, float64(1), keys["count"])
	assert.NotContains(t, keys["keys"].([]any)[0], "secret")

	runJSON(t, d, "revoke", "-user", "alice")
	assert.False(t, mr.Exists("apikey:"+keyID))
	assert.False(t, mr.Exists("user:alice"))
}

func TestRun_Errors(t *testing.T) {
	d, _ := newDeps(t)
	ctx := context.Background()
	var out bytes.Buffer

	assert.ErrorIs(t, run(ctx, d, nil, &out), errUsage)
	assert.ErrorIs(t, run(ctx, d, []string{"explode"}, &out), errUsage)
	assert.Error(t, run(ctx, d, []string{"issue", "-user", "x", "-email", "x@y", "-tier", "gold"}, &out))
	assert.ErrorIs(t, run(ctx, d, []string{"issue", "-user", "x"}, &out), akinfra.ErrInvalidUser)
	assert.ErrorIs(t, run(ctx, d, []string{"revoke", "-user", "ghost"}, &out), akinfra.ErrUserNotFound)
	assert.Error(t, run(ctx, d, []string{"show"}, &out))

	require.NoError(t, run(ctx, d, []string{"issue", "-user", "x", "-email", "x@y"}, &out))
	assert.ErrorIs(t, run(ctx, d, []string{"issue", "-user", "x", "-email", "x@y"}, &out), akinfra.ErrUserExists)
}

func TestRun_Stats(t *testing.T) {
	d, _ := newDeps(t)
	ctx := context.Background()
	stats := d.stats.(*rlinfra.RedisStatsStore)
	require.NoError(t, stats.Record(ctx, rldomain.StatsEvent{Scope: "public", Outcome: rldomain.OutcomeDenied}))
	require.NoError(t, stats.Record(ctx, rldomain.StatsEvent{Scope: "auto", Outcome: rldomain.OutcomeAllowed}))

	body := runJSON(t, d, "stats")
	assert.Equal(t, map[string]any{"denied": float64(1), "allowed": float64(1)}, body["total"])
	scopes := body["scopes"].(map[string]any)
	assert.Equal(t, map[string]any{"denied": float64(1)}, scopes["public"])
}

func TestRun_Validate(t *testing.T) {
	d, _ := newDeps(t)
	ctx := context.Background()

	issued := runJSON(t, d, "issue", "-user", "erin", "-email", "erin@example.com", "-tier", "premium")
	key := issued["apiKey"].(string)

	ok := runJSON(t, d, "validate", "-key", key)
	assert.Equal(t, true, ok["valid"])
	assert.Equal(t, "erin", ok["username"])
	assert.Equal(t, "premium", ok["tier"])

	keyID, _, _ := strings.Cut(key, ":")
	for _, bad := range []string{keyID + ":wrong", "nocolon", "ffff:ffff"} {
		var out bytes.Buffer
		err := run(ctx, d, []string{"validate", "-key", bad}, &out)
		assert.ErrorIs(t, err, errRejected, bad)

		var body map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &body))
		assert.Equal(t, false, body["valid"])
		assert.NotContains(t, out.String(), "secret")
	}

	var out bytes.Buffer
	assert.Error(t, run(ctx, d, []string{"validate"}, &out))
}

func TestRun_ValidateStoreDownIsError(t *testing.T) {
	d, mr := newDeps(t)
	mr.SetError("ERR injected failure")

	var out bytes.Buffer
	err := run(context.Background(), d, []string{"validate", "-key", "abc:def"}, &out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errRejected)
	assert.Empty(t, out.String())
}
