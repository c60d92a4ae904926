package domain

import (
	"context"
	"time"
)

// Outcome é o resultado observável de uma decisão.
type Outcome string

const (
	OutcomeAllowed  Outcome = "allowed"
	OutcomeDenied   Outcome = "denied"
	OutcomeFailOpen Outcome = "fail_open"
)

func (d Decision) Outcome() Outcome {
	switch {
	case d.FailOpen:
		return OutcomeFailOpen
	case d.Allowed:
		return OutcomeAllowed
	default:
		return OutcomeDenied
	}
}

// StatsEvent representa um evento de decisão do rate limit.
//
// Ele é propositalmente "agnóstico de HTTP": Method/Path são strings genéricas.
//
// Observação: cuidado com cardinalidade (ex.: salvar Key/Path sem controle pode
// explodir o número de séries/chaves em uma base como Redis/Prometheus).
type StatsEvent struct {
	Key     Key
	Scope   Scope
	Outcome Outcome

	Method string
	Path   string

	At time.Time
}

// StatsStore é o canal de observabilidade das decisões, inclusive do fail-open.
//
// Implementações podem armazenar em Redis, Prometheus, memória, etc.
// Quem chama trata erro como best-effort (não derruba request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
