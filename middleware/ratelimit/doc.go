// Package ratelimit fornece os adapters HTTP (net/http) do rate limit e do limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (Admit com sliding window log, acquire/timeout) sem net/http
//   - infra: implementações concretas (sorted set no store, semáforo, estatísticas)
//   - ratelimit (este pacote): extração da chave do cliente, headers X-RateLimit-*, resposta 429
//     e middleware de concorrência
//
// Fluxo no gateway (estágio de rate limit):
//
//   1) Identificador = username autenticado ou IP do cliente (KeyFunc)
//   2) Chama a camada application para obter a decisão
//   3) Escreve X-RateLimit-Limit/Remaining/Reset
//   4) Se bloqueado, responde 429 com retryAfter; se permitido, segue para o backend
//
// Se o store falhar o limiter admite a requisição (fail-open) e sinaliza via
// métricas/log; a validação de credenciais, ao contrário, falha fechada (503).
package ratelimit
