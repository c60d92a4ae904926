package domain

import (
	"fmt"
	"time"

	"tiered-gateway/consumer"
)

// Policy é o limite de uma classe: Max requisições a cada WindowSeconds.
type Policy struct {
	Max           int `yaml:"max" json:"max"`
	WindowSeconds int `yaml:"window_seconds" json:"windowSeconds"`
}

func (p Policy) Window() time.Duration { return time.Duration(p.WindowSeconds) * time.Second }

func (p Policy) Validate() error {
	if p.Max <= 0 || p.WindowSeconds <= 0 {
		return fmt.Errorf("%w (max=%d window=%d)", ErrInvalidPolicy, p.Max, p.WindowSeconds)
	}
	return nil
}

// PolicyTable mapeia tier -> política. É carregada no startup e não muda.
type PolicyTable map[consumer.Tier]Policy

func DefaultPolicies() PolicyTable {
	return PolicyTable{
		consumer.TierPublic:   {Max: 10, WindowSeconds: 60},
		consumer.TierStandard: {Max: 100, WindowSeconds: 60},
		consumer.TierPremium:  {Max: 500, WindowSeconds: 60},
	}
}

// Validate exige a política standard (fallback universal) e valores positivos.
func (t PolicyTable) Validate() error {
	if _, ok := t[consumer.TierStandard]; !ok {
		return fmt.Errorf("policy table has no %q entry", consumer.TierStandard)
	}
	for tier, p := range t {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("tier %q: %w", tier, err)
		}
	}
	return nil
}

// Resolve escolhe a política para o escopo da rota.
//
//   - auto: tier da identidade, ou standard sem identidade
//   - tier desconhecido ou vazio: standard
func (t PolicyTable) Resolve(scope Scope, id *consumer.Identity) Policy {
	tier := consumer.Tier(scope)
	if scope == ScopeAuto {
		tier = consumer.TierStandard
		if id != nil {
			tier = id.Tier
		}
	}
	if p, ok := t[tier]; ok {
		return p
	}
	return t[consumer.TierStandard]
}
