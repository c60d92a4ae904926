// Package consumer define a identidade do chamador resolvida a partir de uma
// credencial válida e como ela trafega pelo contexto da requisição.
package consumer

import "context"

// Tier é a classe de assinatura do consumidor. Define a política de rate limit
// e o acesso a rotas premium.
type Tier string

const (
	TierPublic   Tier = "public"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// Known informa se o tier é um dos valores reconhecidos pelo gateway.
func (t Tier) Known() bool {
	switch t {
	case TierPublic, TierStandard, TierPremium:
		return true
	}
	return false
}

// Identity é derivada por requisição e nunca persistida pelo gateway.
type Identity struct {
	Username string
	Tier     Tier
}

type identityContextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// FromContext retorna a identidade anexada por WithIdentity, se houver.
func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
