package main

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"tiered-gateway/gateway"
	"tiered-gateway/httperr"
)

func echoHandler(service string, logger *zap.Logger, now func() time.Time) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := r.Header.Get(gateway.HeaderConsumerUsername)
		tier := r.Header.Get(gateway.HeaderConsumerTier)

		logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("consumer", username),
		)

		body := map[string]any{
			"service":   service,
			"method":    r.Method,
			"path":      r.URL.Path,
			"query":     r.URL.RawQuery,
			"timestamp": now().UTC().Format(time.RFC3339),
		}
		if username != "" {
			body["consumer"] = map[string]string{"username": username, "tier": tier}
		}
		httperr.WriteJSON(w, http.StatusOK, body)
	})
}
