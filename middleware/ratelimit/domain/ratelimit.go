package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"errors"
	"time"

	"tiered-gateway/consumer"
)

var (
	ErrInvalidPolicy   = errors.New("rate limit policy must have max > 0 and window > 0")
	ErrEmptyIdentifier = errors.New("rate limit identifier is empty")
)

// Scope é a classe de política da rota: public, standard, premium ou auto.
// Também compõe a chave do log no store.
type Scope string

// ScopeAuto resolve para o tier da identidade autenticada (ou standard).
const ScopeAuto Scope = "auto"

// Key identifica um log de janela: "ratelimit:<scope>:<identifier>".
type Key string

func WindowKey(scope Scope, identifier string) Key {
	return Key("ratelimit:" + string(scope) + ":" + identifier)
}

// AdmitRequest é a entrada de uma decisão. Identity é nil quando a rota não
// autentica; nesse caso Identifier deve ser o endereço do cliente.
type AdmitRequest struct {
	Scope      Scope
	Identifier string
	Identity   *consumer.Identity

	// Method e Path só alimentam as estatísticas.
	Method string
	Path   string
}

type Decision struct {
	Allowed bool
	Limit   int
	// Remaining já desconta a requisição admitida: a N-ésima admissão de
	// uma janela vazia reporta Limit-N.
	Remaining         int
	ResetEpochSeconds int64
	// RetryAfterSeconds só é preenchido quando Allowed=false.
	RetryAfterSeconds int
	// FailOpen indica que o store falhou e a requisição foi admitida sem
	// contagem nem registro.
	FailOpen bool
}

// WindowStore é o log ordenado por tempo de cada chave.
//
// Count e Record são operações separadas: não há atomicidade entre contar e
// registrar. Concorrência no mesmo identificador pode ultrapassar o limite
// por algumas requisições.
type WindowStore interface {
	// Count retorna quantas entradas têm timestamp em [from, to].
	Count(ctx context.Context, key Key, from, to time.Time) (int, error)
	// Record adiciona `at` ao log, remove entradas anteriores a purgeBefore e
	// renova a expiração da chave para ttl.
	Record(ctx context.Context, key Key, at, purgeBefore time.Time, ttl time.Duration) error
}
