// Package infra implementa os contratos de domain sobre store.Client.
//
//   - KeyStore: leitura de "apikey:<keyId>" (JSON)
//   - Registry: emissão, revogação e listagem de chaves (uso administrativo, fora do caminho da requisição)
package infra
