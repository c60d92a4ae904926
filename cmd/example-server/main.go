package main

// Backend de desenvolvimento: responde com o que recebeu do gateway
// (caminho já sem prefixo e headers X-Consumer-*). Útil para subir
// service-a/service-b localmente.

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"tiered-gateway/logging"
)

func main() {
	_ = godotenv.Load()

	addr := ":3001"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}
	name := "service-a"
	if v := os.Getenv("SERVICE_NAME"); v != "" {
		name = v
	}

	logger, err := logging.New(logging.Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: logging.Format(os.Getenv("LOG_FORMAT")),
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              addr,
		Handler:           echoHandler(name, logger, time.Now),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("example backend listening", zap.String("addr", addr), zap.String("service", name))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
