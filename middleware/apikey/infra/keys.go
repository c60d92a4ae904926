package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tiered-gateway/middleware/apikey/domain"
	"tiered-gateway/store"
)

const (
	apiKeyPrefix = "apikey:"
	userPrefix   = "user:"
	usersListKey = "users:list"
)

func apiKeyKey(keyID string) string   { return apiKeyPrefix + keyID }
func userKey(username string) string { return userPrefix + username }

// KeyStore lê registros de API key do store.
type KeyStore struct {
	Client store.Client
}

var _ domain.KeyStore = KeyStore{}

func (s KeyStore) Lookup(ctx context.Context, keyID string) (domain.KeyRecord, error) {
	raw, err := s.Client.Get(ctx, apiKeyKey(keyID))
	if errors.Is(err, store.ErrNotFound) {
		return domain.KeyRecord{}, domain.ErrKeyNotFound
	}
	if err != nil {
		return domain.KeyRecord{}, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}

	var rec domain.KeyRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.KeyRecord{}, fmt.Errorf("%w: %w", domain.ErrCorruptRecord, err)
	}
	return rec, nil
}
