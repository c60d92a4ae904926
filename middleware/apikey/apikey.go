package apikey

import (
	"context"
	"net/http"

	"tiered-gateway/consumer"
)

// HeaderName é o header que carrega "<keyId>:<keySecret>".
const HeaderName = "X-API-Key"

// Validator é satisfeito por application.Validator.
type Validator interface {
	Validate(ctx context.Context, raw string) (consumer.Identity, error)
}

// Authenticate valida o header do request e, em caso de sucesso, devolve um
// request cujo contexto carrega a Identity para os estágios seguintes.
func Authenticate(r *http.Request, v Validator) (*http.Request, consumer.Identity, error) {
	id, err := v.Validate(r.Context(), r.Header.Get(HeaderName))
	if err != nil {
		return r, consumer.Identity{}, err
	}
	return r.WithContext(consumer.WithIdentity(r.Context(), id)), id, nil
}
