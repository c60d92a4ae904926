package gateway

import (
	"fmt"
	"net/http"
	"strings"

	"tiered-gateway/consumer"
	"tiered-gateway/httperr"
	"tiered-gateway/middleware/apikey"
	"tiered-gateway/middleware/ratelimit"
	rldomain "tiered-gateway/middleware/ratelimit/domain"
)

// Exchange é o estado de uma requisição enquanto atravessa o pipeline.
// Cada estágio pode enriquecê-lo; o dispatch usa o resultado final.
type Exchange struct {
	Request *http.Request
	// Header são os headers da resposta (ex: X-RateLimit-*).
	Header   http.Header
	Route    Route
	Identity *consumer.Identity
	Decision *rldomain.Decision
}

// Stage devolve nil para seguir ou um *httperr.Error para encerrar a
// requisição com aquela resposta.
type Stage interface {
	Name() string
	Run(x *Exchange) *httperr.Error
}

// Pipeline roda os estágios em ordem e para no primeiro erro.
type Pipeline []Stage

// Run devolve também o nome do estágio que encerrou (vazio se nenhum).
func (p Pipeline) Run(x *Exchange) (string, *httperr.Error) {
	for _, s := range p {
		if herr := s.Run(x); herr != nil {
			return s.Name(), herr
		}
	}
	return "", nil
}

// Names serve para log/debug.
func (p Pipeline) Names() []string {
	out := make([]string, len(p))
	for i, s := range p {
		out[i] = s.Name()
	}
	return out
}

// NewPipeline monta os estágios da rota: auth -> tier gate -> rate limit.
func NewPipeline(r Route, v apikey.Validator, limiter ratelimit.Admitter, keyFn ratelimit.KeyFunc) Pipeline {
	var p Pipeline
	if r.Auth {
		p = append(p, authStage{validator: v})
	}
	if r.TierGate != "" {
		p = append(p, tierGateStage{tier: r.TierGate})
	}
	p = append(p, rateLimitStage{limiter: limiter, keyFn: keyFn})
	return p
}

type authStage struct {
	validator apikey.Validator
}

func (authStage) Name() string { return "auth" }

func (s authStage) Run(x *Exchange) *httperr.Error {
	r, id, err := apikey.Authenticate(x.Request, s.validator)
	if err != nil {
		return classify(err)
	}
	x.Request = r
	x.Identity = &id
	return nil
}

type tierGateStage struct {
	tier consumer.Tier
}

func (tierGateStage) Name() string { return "tier_gate" }

func (s tierGateStage) Run(x *Exchange) *httperr.Error {
	if x.Identity != nil && x.Identity.Tier == s.tier {
		return nil
	}
	return httperr.New(httperr.KindForbidden,
		fmt.Sprintf("%s tier required to access this endpoint", titleTier(s.tier)))
}

type rateLimitStage struct {
	limiter ratelimit.Admitter
	keyFn   ratelimit.KeyFunc
}

func (rateLimitStage) Name() string { return "rate_limit" }

func (s rateLimitStage) Run(x *Exchange) *httperr.Error {
	req := rldomain.AdmitRequest{
		Scope:    x.Route.Scope,
		Identity: x.Identity,
		Method:   x.Request.Method,
		Path:     x.Route.Prefix,
	}
	if x.Identity != nil {
		req.Identifier = x.Identity.Username
	} else {
		req.Identifier = s.keyFn(x.Request)
	}

	dec, err := s.limiter.Admit(x.Request.Context(), req)
	if err != nil {
		return classify(err)
	}
	ratelimit.SetHeaders(x.Header, dec)
	if !dec.Allowed {
		return ratelimit.Exceeded(dec)
	}
	x.Decision = &dec
	return nil
}

func titleTier(t consumer.Tier) string {
	s := string(t)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
