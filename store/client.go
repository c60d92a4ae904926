package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indica que a chave não existe.
	ErrNotFound = errors.New("store: key not found")
	// ErrUnavailable indica falha de conexão, timeout, erro do servidor ou breaker aberto.
	ErrUnavailable = errors.New("store: unavailable")
)

// Client é a capacidade mínima que o gateway (e o registry de chaves) precisa
// do store. Operações individuais são atômicas no servidor; não há transação
// entre operações.
type Client interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, keys ...string) error

	ZAdd(ctx context.Context, key string, score float64, member string) error
	// ZRangeByScore retorna os membros com score em [min, max].
	ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error)
	// ZRemRangeByScore remove os membros com score em [min, max].
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) error
	Expire(ctx context.Context, key string, ttl time.Duration) error

	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SRem(ctx context.Context, key string, members ...string) error

	// Scan lista as chaves que casam com o padrão glob (ex: "apikey:*").
	Scan(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
}
