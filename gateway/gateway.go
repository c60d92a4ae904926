package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"tiered-gateway/httperr"
	"tiered-gateway/middleware/apikey"
	"tiered-gateway/middleware/ratelimit"
)

// Pinger é o que o /health precisa do store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Table     *Table
	Validator apikey.Validator
	Limiter   ratelimit.Admitter
	// KeyFunc identifica clientes sem identidade. Padrão: RemoteAddr.
	KeyFunc ratelimit.KeyFunc
	Store   Pinger
	// Transport para os backends. Padrão: NewTransport(10s).
	Transport http.RoundTripper
	Metrics   *Metrics
	Logger    *zap.Logger
	Now       func() time.Time
}

// Gateway é o http.Handler do caminho de admissão.
type Gateway struct {
	table     *Table
	entries   map[string]entry // por prefixo
	store     Pinger
	transport http.RoundTripper
	metrics   *Metrics
	logger    *zap.Logger
	now       func() time.Time
}

type entry struct {
	pipeline Pipeline
	handler  http.Handler
}

func New(opts Options) (*Gateway, error) {
	if opts.Table == nil {
		return nil, errors.New("gateway: table is required")
	}
	if opts.Limiter == nil {
		return nil, errors.New("gateway: limiter is required")
	}

	g := &Gateway{
		table:     opts.Table,
		entries:   make(map[string]entry),
		store:     opts.Store,
		transport: opts.Transport,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if g.transport == nil {
		g.transport = NewTransport(10 * time.Second)
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.now == nil {
		g.now = time.Now
	}
	keyFn := opts.KeyFunc
	if keyFn == nil {
		keyFn = ratelimit.ClientAddr(false)
	}

	for _, r := range g.table.Routes() {
		if r.Auth && opts.Validator == nil {
			return nil, fmt.Errorf("gateway: route %q requires auth but no validator is configured", r.Name)
		}

		var h http.Handler
		switch {
		case r.Backend != "":
			b, _ := g.table.Backend(r.Backend)
			h = g.newForwarder(r, b)
		case r.Handler == HandlerHealth:
			h = http.HandlerFunc(g.health)
		default:
			h = http.HandlerFunc(publicInfo)
		}

		g.entries[r.Prefix] = entry{
			pipeline: NewPipeline(r, opts.Validator, opts.Limiter, keyFn),
			handler:  h,
		}
		g.logger.Debug("route registered",
			zap.String("route", r.Name),
			zap.String("prefix", r.Prefix),
			zap.Strings("stages", g.entries[r.Prefix].pipeline.Names()),
		)
	}
	return g, nil
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := g.now()
	sw := &statusWriter{ResponseWriter: w}
	ai := accessInfoFrom(r.Context())

	route, ok := g.table.Match(r.URL.Path)
	if !ok || !route.Allows(r.Method) {
		httperr.Write(sw, httperr.New(httperr.KindRouteNotFound, "Route not found").With("path", r.URL.Path))
		g.metrics.observe("unmatched", sw.Status(), g.now().Sub(start))
		return
	}
	if ai != nil {
		ai.route = route.Name
	}

	e := g.entries[route.Prefix]
	x := &Exchange{Request: r, Header: sw.Header(), Route: route}

	stage, herr := e.pipeline.Run(x)
	if ai != nil && x.Identity != nil {
		ai.consumer = x.Identity.Username
	}
	if herr != nil {
		g.reject(sw, x, stage, herr)
	} else {
		e.handler.ServeHTTP(sw, x.Request)
	}
	g.metrics.observe(route.Name, sw.Status(), g.now().Sub(start))
}

func (g *Gateway) reject(w http.ResponseWriter, x *Exchange, stage string, herr *httperr.Error) {
	g.metrics.rejected(x.Route.Name, stage, string(herr.Kind))

	fields := []zap.Field{
		zap.String("route", x.Route.Name),
		zap.String("stage", stage),
		zap.String("code", string(herr.Kind)),
		zap.Int("status", herr.Status()),
	}
	if herr.Cause != nil {
		fields = append(fields, zap.Error(herr.Cause))
	}
	if herr.Status() >= http.StatusInternalServerError {
		g.logger.Error("request rejected", fields...)
	} else {
		g.logger.Debug("request rejected", fields...)
	}

	httperr.Write(w, herr)
}
