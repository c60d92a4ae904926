// Package infra implementa as portas do domain:
//
//   - WindowStore: log da janela em sorted set sobre store.Client
//   - RedisStatsStore e PromStatsStore: destinos das estatísticas de decisão
//   - SemaphorePool: teto de requisições em voo
package infra
