package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"go.uber.org/zap"

	"tiered-gateway/consumer"
	"tiered-gateway/httperr"
)

const (
	HeaderConsumerUsername = "X-Consumer-Username"
	HeaderConsumerTier     = "X-Consumer-Tier"

	consumerHeaderPrefix = "X-Consumer-"
)

// StatusClientClosedRequest é o status (convenção do nginx) registrado quando
// o cliente desiste antes da resposta do backend.
const StatusClientClosedRequest = 499

// NewTransport limita o tempo de conexão e de espera pelos headers do backend.
func NewTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: timeout,
		TLSHandshakeTimeout:   timeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
	}
}

// newForwarder monta o reverse proxy de uma rota. Não há retry: qualquer
// falha de transporte vira 503 BackendUnavailable.
func (g *Gateway) newForwarder(r Route, b Backend) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			// o resto do caminho segue como o cliente mandou (%2F não é decodificado)
			pr.Out.URL.Path = r.stripPrefix(pr.In.URL.Path)
			pr.Out.URL.RawPath = ""
			if esc := pr.In.URL.EscapedPath(); strings.HasPrefix(esc, r.Prefix) {
				pr.Out.URL.RawPath = r.stripPrefix(esc)
			}
			pr.SetURL(b.URL)
			pr.SetXForwarded()

			// headers de identidade vindos do cliente nunca passam
			for k := range pr.Out.Header {
				if strings.HasPrefix(http.CanonicalHeaderKey(k), consumerHeaderPrefix) {
					pr.Out.Header.Del(k)
				}
			}
			if id, ok := consumer.FromContext(pr.In.Context()); ok {
				tier := id.Tier
				if r.ForceTier != "" {
					tier = r.ForceTier
				}
				pr.Out.Header.Set(HeaderConsumerUsername, id.Username)
				pr.Out.Header.Set(HeaderConsumerTier, string(tier))
			}
		},
		Transport: g.transport,
		ErrorHandler: func(w http.ResponseWriter, req *http.Request, err error) {
			if errors.Is(err, context.Canceled) || req.Context().Err() != nil {
				// cliente foi embora; o backend não tem culpa
				g.logger.Debug("client canceled request",
					zap.String("route", r.Name),
					zap.String("backend", b.Name),
					zap.Error(err),
				)
				w.WriteHeader(StatusClientClosedRequest)
				return
			}
			g.logger.Warn("backend unavailable",
				zap.String("route", r.Name),
				zap.String("backend", b.Name),
				zap.String("path", req.URL.Path),
				zap.Error(err),
			)
			g.metrics.backendError(b.Name)
			httperr.Write(w, httperr.New(httperr.KindBackendUnavailable,
				fmt.Sprintf("%s is currently unavailable", b.Name)).With("service", b.Name))
		},
	}
}

func publicInfo(w http.ResponseWriter, r *http.Request) {
	httperr.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Public API endpoint",
		"info":    "No authentication required",
		"path":    r.URL.Path,
	})
}

// health informa o estado do gateway e se o store responde. Store fora não
// derruba o gateway (rotas públicas seguem em fail-open), então o status é
// sempre 200.
func (g *Gateway) health(w http.ResponseWriter, r *http.Request) {
	storeState := "up"
	status := "ok"
	if g.store == nil {
		storeState = "unknown"
	} else if err := g.store.Ping(r.Context()); err != nil {
		g.logger.Warn("health: store ping failed", zap.Error(err))
		storeState = "down"
		status = "degraded"
	}
	httperr.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"store":     storeState,
		"timestamp": g.now().UTC().Format(time.RFC3339),
	})
}
