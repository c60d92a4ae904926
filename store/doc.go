// Package store define a capacidade de key-value/sorted-set usada pelo gateway
// e um adapter Redis (go-redis) para ela.
//
// O store é um colaborador externo: os componentes recebem um Client por
// injeção na construção, nunca um handle global. Isso permite dublês de teste
// (miniredis) e várias instâncias isoladas no mesmo processo.
//
// Toda operação roda com timeout próprio e atrás de um circuit breaker
// (sony/gobreaker). Falhas de transporte ou do servidor sempre chegam ao
// chamador embrulhando ErrUnavailable; chave ausente vira ErrNotFound.
package store
