// Package gateway é o roteador/dispatcher do caminho de admissão.
//
// Para cada requisição:
//
//  1. Table.Match escolhe a rota pelo maior prefixo (em fronteira de segmento)
//  2. O Pipeline da rota roda os estágios em ordem estrita:
//     auth (se exigida) -> tier gate (se configurado) -> rate limit
//  3. Qualquer estágio pode encerrar com um *httperr.Error; os seguintes não rodam
//  4. Admitida, a requisição vai para o backend (reverse proxy com prefixo
//     removido e headers X-Consumer-*) ou para um responder local
//
// Falha de backend vira 503 BackendUnavailable, sem retry.
package gateway
