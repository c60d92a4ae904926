package main

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type config struct {
	listenAddr string

	redisAddr      string
	redisPassword  string
	redisDB        int
	storeOpTimeout time.Duration

	serviceAURL    string
	serviceBURL    string
	backendTimeout time.Duration

	trustXFF           bool
	concurrencyMax     int
	concurrencyTimeout time.Duration

	logLevel  string
	logFormat string

	rateStatsEnabled   bool
	rateStatsPrefix    string
	rateStatsTTL       time.Duration
	rateStatsBucket    string
	rateStatsTrackKeys bool

	configFile string
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":3000")

	cfg.redisAddr = getenvDefault("REDIS_ADDR", "localhost:6379")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)
	cfg.storeOpTimeout = getenvDurationDefault("STORE_OP_TIMEOUT", 500*time.Millisecond)

	cfg.serviceAURL = getenvDefault("SERVICE_A_URL", "http://service-a:3001")
	cfg.serviceBURL = getenvDefault("SERVICE_B_URL", "http://service-b:3002")
	cfg.backendTimeout = getenvDurationDefault("BACKEND_TIMEOUT", 10*time.Second)

	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 1000)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.logLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.logFormat = getenvDefault("LOG_FORMAT", "json")

	cfg.rateStatsEnabled = getenvBoolDefault("RATE_STATS_ENABLED", false)
	cfg.rateStatsPrefix = getenvDefault("RATE_STATS_PREFIX", "ratelimit:stats")
	cfg.rateStatsTTL = getenvDurationDefault("RATE_STATS_TTL", 24*time.Hour)
	cfg.rateStatsBucket = getenvDefault("RATE_STATS_BUCKET", "minute")
	cfg.rateStatsTrackKeys = getenvBoolDefault("RATE_STATS_TRACK_KEYS", false)

	cfg.configFile = os.Getenv("GATEWAY_CONFIG_FILE")

	if strings.TrimSpace(cfg.redisAddr) == "" {
		return config{}, errors.New("REDIS_ADDR is required")
	}
	for k, v := range map[string]string{"SERVICE_A_URL": cfg.serviceAURL, "SERVICE_B_URL": cfg.serviceBURL} {
		if u, err := url.Parse(v); err != nil || u.Host == "" {
			return config{}, errors.New(k + " must be an absolute URL")
		}
	}
	if cfg.storeOpTimeout <= 0 {
		return config{}, errors.New("STORE_OP_TIMEOUT must be > 0")
	}
	if cfg.backendTimeout <= 0 {
		return config{}, errors.New("BACKEND_TIMEOUT must be > 0")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
