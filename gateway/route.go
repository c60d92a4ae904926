package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"tiered-gateway/consumer"
	rldomain "tiered-gateway/middleware/ratelimit/domain"
)

// Responders locais disponíveis para rotas sem backend.
const (
	HandlerPublicInfo = "public-info"
	HandlerHealth     = "health"
)

// Route é uma entrada estática da tabela de roteamento.
type Route struct {
	Name   string `yaml:"name"`
	Prefix string `yaml:"prefix"`
	// Backend é o nome de uma entrada em Backends. Vazio exige Handler.
	Backend string `yaml:"backend"`
	Handler string `yaml:"handler"`
	// Methods vazio aceita qualquer método; os demais dão 404.
	Methods []string `yaml:"methods"`

	Auth     bool           `yaml:"auth"`
	TierGate consumer.Tier  `yaml:"tier_gate"`
	Scope    rldomain.Scope `yaml:"scope"`
	// ForceTier sobrescreve o valor de X-Consumer-Tier enviado ao backend.
	ForceTier consumer.Tier `yaml:"force_tier"`
}

// Backend é um serviço de destino.
type Backend struct {
	Name string
	URL  *url.URL
}

// Table é a tabela compilada; imutável depois de NewTable.
type Table struct {
	routes   []Route // ordenadas por prefixo mais longo primeiro
	backends map[string]Backend
}

var ErrInvalidTable = errors.New("invalid route table")

func DefaultBackends() map[string]string {
	return map[string]string{
		"service-a": "http://service-a:3001",
		"service-b": "http://service-b:3002",
	}
}

func DefaultRoutes() []Route {
	return []Route{
		{Name: "health", Prefix: "/health", Handler: HandlerHealth, Methods: []string{http.MethodGet}, Scope: "public"},
		{Name: "public", Prefix: "/api/public", Handler: HandlerPublicInfo, Methods: []string{http.MethodGet}, Scope: "public"},
		{Name: "service-a", Prefix: "/api/service-a", Backend: "service-a", Auth: true, Scope: rldomain.ScopeAuto},
		{Name: "service-b", Prefix: "/api/service/b", Backend: "service-b", Auth: true, Scope: rldomain.ScopeAuto},
		{
			Name: "premium", Prefix: "/api/premium", Backend: "service-a",
			Auth: true, TierGate: consumer.TierPremium, Scope: "premium", ForceTier: consumer.TierPremium,
		},
	}
}

// NewTable valida e compila rotas e backends.
func NewTable(routes []Route, backends map[string]string) (*Table, error) {
	t := &Table{backends: make(map[string]Backend, len(backends))}

	for name, raw := range backends {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: backend %q has invalid url %q", ErrInvalidTable, name, raw)
		}
		t.backends[name] = Backend{Name: name, URL: u}
	}

	seen := make(map[string]string, len(routes))
	for _, r := range routes {
		if err := t.validateRoute(r); err != nil {
			return nil, err
		}
		if other, dup := seen[r.Prefix]; dup {
			return nil, fmt.Errorf("%w: routes %q and %q share prefix %q", ErrInvalidTable, other, r.Name, r.Prefix)
		}
		seen[r.Prefix] = r.Name
		t.routes = append(t.routes, r)
	}

	sort.SliceStable(t.routes, func(i, j int) bool {
		return len(t.routes[i].Prefix) > len(t.routes[j].Prefix)
	})
	return t, nil
}

func (t *Table) validateRoute(r Route) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: route %q: %s", ErrInvalidTable, r.Name, fmt.Sprintf(format, args...))
	}
	switch {
	case r.Name == "":
		return fmt.Errorf("%w: route with prefix %q has no name", ErrInvalidTable, r.Prefix)
	case !strings.HasPrefix(r.Prefix, "/"):
		return fail("prefix %q must start with /", r.Prefix)
	case len(r.Prefix) > 1 && strings.HasSuffix(r.Prefix, "/"):
		return fail("prefix %q must not end with /", r.Prefix)
	case r.Scope == "":
		return fail("scope is required")
	case r.TierGate != "" && !r.Auth:
		return fail("tier_gate requires auth")
	case r.Backend == "" && r.Handler == "":
		return fail("either backend or handler is required")
	case r.Backend != "" && r.Handler != "":
		return fail("backend and handler are mutually exclusive")
	}
	if r.Backend != "" {
		if _, ok := t.backends[r.Backend]; !ok {
			return fail("unknown backend %q", r.Backend)
		}
	}
	if r.Handler != "" && r.Handler != HandlerPublicInfo && r.Handler != HandlerHealth {
		return fail("unknown handler %q", r.Handler)
	}
	return nil
}

// Match devolve a rota de maior prefixo que casa com path em fronteira de
// segmento ("/api/public" casa "/api/public/x", não "/api/publicity").
func (t *Table) Match(path string) (Route, bool) {
	for _, r := range t.routes {
		if path == r.Prefix || strings.HasPrefix(path, strings.TrimSuffix(r.Prefix, "/")+"/") {
			return r, true
		}
	}
	return Route{}, false
}

func (t *Table) Backend(name string) (Backend, bool) {
	b, ok := t.backends[name]
	return b, ok
}

func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Allows informa se o método é aceito pela rota.
func (r Route) Allows(method string) bool {
	if len(r.Methods) == 0 {
		return true
	}
	for _, m := range r.Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// stripPrefix remove o prefixo casado; caminho vazio vira "/".
func (r Route) stripPrefix(path string) string {
	rest := strings.TrimPrefix(path, r.Prefix)
	if rest == "" {
		return "/"
	}
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	return rest
}
