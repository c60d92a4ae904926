// Package application decide admissões (Service) e vagas de concorrência
// (ConcurrencyService). Não conhece net/http: devolve Decision e o pacote
// ratelimit traduz para headers e status.
package application
