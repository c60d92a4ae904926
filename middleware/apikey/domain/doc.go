// Package domain define os contratos e tipos da validação de credenciais
// (API keys no formato "<keyId>:<keySecret>").
//
// Não depende de net/http nem do adapter concreto do store.
package domain
