// Package apikey é o adapter HTTP da validação de credenciais.
//
// Camadas:
//
//   - domain: Credential, KeyRecord, KeyStore e os erros da validação
//   - application: Validator (parse + lookup + comparação em tempo constante)
//   - infra: KeyStore e Registry sobre store.Client
//   - apikey (este pacote): extração do header X-API-Key e anotação do request com a Identity
package apikey
