package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv isola o teste do ambiente da máquina.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LISTEN_ADDR", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "STORE_OP_TIMEOUT",
		"SERVICE_A_URL", "SERVICE_B_URL", "BACKEND_TIMEOUT", "TRUST_XFF",
		"CONCURRENCY_MAX", "CONCURRENCY_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT",
		"RATE_STATS_ENABLED", "RATE_STATS_PREFIX", "RATE_STATS_TTL", "GATEWAY_CONFIG_FILE",
	} {
		t.Setenv(k, "")
	}
}

func TestReadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := readConfig()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.listenAddr)
	assert.Equal(t, "localhost:6379", cfg.redisAddr)
	assert.Equal(t, 500*time.Millisecond, cfg.storeOpTimeout)
	assert.Equal(t, "http://service-a:3001", cfg.serviceAURL)
	assert.Equal(t, "http://service-b:3002", cfg.serviceBURL)
	assert.False(t, cfg.rateStatsEnabled)
}

func TestReadConfig_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("BACKEND_TIMEOUT", "2s")
	t.Setenv("TRUST_XFF", "true")
	t.Setenv("RATE_STATS_ENABLED", "1")

	cfg, err := readConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.listenAddr)
	assert.Equal(t, 3, cfg.redisDB)
	assert.Equal(t, 2*time.Second, cfg.backendTimeout)
	assert.True(t, cfg.trustXFF)
	assert.True(t, cfg.rateStatsEnabled)
}

func TestReadConfig_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVICE_A_URL", "not-a-url")
	_, err := readConfig()
	require.Error(t, err)
}

func TestReadConfig_BadNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_DB", "x")
	t.Setenv("STORE_OP_TIMEOUT", "soon")

	cfg, err := readConfig()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.redisDB)
	assert.Equal(t, 500*time.Millisecond, cfg.storeOpTimeout)
}
