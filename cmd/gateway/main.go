package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tiered-gateway/gateway"
	"tiered-gateway/logging"
	akapp "tiered-gateway/middleware/apikey/application"
	akinfra "tiered-gateway/middleware/apikey/infra"
	"tiered-gateway/middleware/ratelimit"
	rlapp "tiered-gateway/middleware/ratelimit/application"
	rldomain "tiered-gateway/middleware/ratelimit/domain"
	rlinfra "tiered-gateway/middleware/ratelimit/infra"
	"tiered-gateway/store"
)

func main() {
	// .env é opcional; variáveis já exportadas têm precedência.
	_ = godotenv.Load()

	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.logLevel, Format: logging.Format(cfg.logFormat)})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("gateway stopped", zap.Error(err))
	}
}

func run(cfg config, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.redisAddr,
		Password: cfg.redisPassword,
		DB:       cfg.redisDB,
	})
	client := store.NewRedis(rdb,
		store.WithOpTimeout(cfg.storeOpTimeout),
		store.WithMetrics(store.NewMetrics(reg)),
		store.WithLogger(logger.Named("store")),
	)
	defer func() { _ = client.Close() }()

	// Store fora no startup não impede a subida: limiter fica em fail-open e
	// rotas autenticadas respondem 503 até o store voltar.
	pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
	if err := client.Ping(pingCtx); err != nil {
		logger.Warn("store unreachable at startup", zap.String("addr", cfg.redisAddr), zap.Error(err))
	}
	pingCancel()

	backends, routes, policies := gateway.DefaultBackends(), gateway.DefaultRoutes(), rldomain.DefaultPolicies()
	backends["service-a"] = cfg.serviceAURL
	backends["service-b"] = cfg.serviceBURL
	if cfg.configFile != "" {
		fc, err := gateway.LoadFile(cfg.configFile)
		if err != nil {
			return err
		}
		backends, routes, policies = fc.Merge(backends, routes, policies)
	}
	if err := policies.Validate(); err != nil {
		return err
	}
	table, err := gateway.NewTable(routes, backends)
	if err != nil {
		return err
	}

	stats := rlinfra.MultiStats{rlinfra.NewPromStatsStore(reg)}
	if cfg.rateStatsEnabled {
		stats = append(stats, rlinfra.NewRedisStatsStore(
			rdb,
			rlinfra.WithStatsPrefix(cfg.rateStatsPrefix),
			rlinfra.WithStatsTTL(cfg.rateStatsTTL),
			rlinfra.WithStatsBucket(cfg.rateStatsBucket),
			rlinfra.WithStatsTrackKeys(cfg.rateStatsTrackKeys),
		))
	}

	limiter := rlapp.NewService(rlinfra.WindowStore{Client: client}, policies)
	limiter.Stats = stats
	limiter.Logger = logger.Named("ratelimit")

	validator := akapp.Validator{
		Keys:    akinfra.KeyStore{Client: client},
		Metrics: akapp.NewMetrics(reg),
		Logger:  logger.Named("apikey"),
	}

	gw, err := gateway.New(gateway.Options{
		Table:     table,
		Validator: validator,
		Limiter:   limiter,
		KeyFunc:   ratelimit.ClientAddr(cfg.trustXFF),
		Store:     client,
		Transport: gateway.NewTransport(cfg.backendTimeout),
		Metrics:   gateway.NewMetrics(reg),
		Logger:    logger.Named("gateway"),
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("/", gw)

	h := http.Handler(mux)
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.concurrencyMax,
		AcquireTimeout: cfg.concurrencyTimeout,
		Rejections: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "gateway_concurrency_rejections_total",
			Help: "Requests rejected because the gateway was at capacity.",
		}),
		Registerer: reg,
	})(h)
	h = gateway.AccessLog(logger.Named("access"))(h)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second + cfg.backendTimeout,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("gateway listening",
		zap.String("addr", cfg.listenAddr),
		zap.String("redis", cfg.redisAddr),
		zap.Int("routes", len(routes)),
		zap.Bool("trust_xff", cfg.trustXFF),
		zap.Bool("rate_stats", cfg.rateStatsEnabled),
		zap.Int("concurrency_max", cfg.concurrencyMax),
	)
	for _, r := range table.Routes() {
		logger.Info("route",
			zap.String("name", r.Name),
			zap.String("prefix", r.Prefix),
			zap.String("backend", r.Backend),
			zap.String("scope", string(r.Scope)),
		)
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
