package infra

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tiered-gateway/middleware/ratelimit/domain"
	"tiered-gateway/store"
)

// WindowStore implementa domain.WindowStore sobre um sorted set por chave:
// score = timestamp em ms, membro = "<ms>-<uuid>".
//
// O sufixo aleatório garante que duas admissões no mesmo milissegundo
// ocupem dois membros distintos.
type WindowStore struct {
	Client store.Client
}

var _ domain.WindowStore = WindowStore{}

func (s WindowStore) Count(ctx context.Context, key domain.Key, from, to time.Time) (int, error) {
	members, err := s.Client.ZRangeByScore(ctx, string(key), float64(from.UnixMilli()), float64(to.UnixMilli()))
	if err != nil {
		return 0, err
	}
	return len(members), nil
}

// Record faz ZADD, ZREMRANGEBYSCORE e EXPIRE em sequência (três round trips,
// sem transação). Se o ZADD passar e o resto falhar, a entrada fica gravada.
func (s WindowStore) Record(ctx context.Context, key domain.Key, at, purgeBefore time.Time, ttl time.Duration) error {
	k := string(key)
	ms := at.UnixMilli()

	if err := s.Client.ZAdd(ctx, k, float64(ms), strconv.FormatInt(ms, 10)+"-"+uuid.NewString()); err != nil {
		return err
	}
	if err := s.Client.ZRemRangeByScore(ctx, k, 0, float64(purgeBefore.UnixMilli()-1)); err != nil {
		return err
	}
	return s.Client.Expire(ctx, k, ttl)
}
