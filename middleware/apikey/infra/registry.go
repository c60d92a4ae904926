package infra

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"tiered-gateway/consumer"
	"tiered-gateway/middleware/apikey/domain"
	"tiered-gateway/store"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidUser  = errors.New("username and email are required")
)

// User é o registro persistido em "user:<username>".
type User struct {
	Username  string        `json:"username"`
	Email     string        `json:"email"`
	Tier      consumer.Tier `json:"tier"`
	CreatedAt time.Time     `json:"createdAt"`
	APIKeyID  string        `json:"apiKeyId"`
}

// KeySummary é a visão de listagem de uma chave; nunca inclui o segredo.
type KeySummary struct {
	KeyID     string        `json:"keyId"`
	Username  string        `json:"username"`
	Tier      consumer.Tier `json:"tier"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Registry emite e revoga credenciais. Não há transação entre as escritas:
// uma falha no meio de Issue pode deixar registros parciais.
type Registry struct {
	Client store.Client
	Now    func() time.Time
}

func (r Registry) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// Issue cria o usuário e sua API key. Tier vazio vira standard.
func (r Registry) Issue(ctx context.Context, username, email string, tier consumer.Tier) (User, domain.Credential, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return User{}, domain.Credential{}, ErrInvalidUser
	}
	if tier == "" {
		tier = consumer.TierStandard
	}

	_, err := r.Client.Get(ctx, userKey(username))
	switch {
	case err == nil:
		return User{}, domain.Credential{}, ErrUserExists
	case !errors.Is(err, store.ErrNotFound):
		return User{}, domain.Credential{}, err
	}

	cred, err := generateCredential()
	if err != nil {
		return User{}, domain.Credential{}, err
	}

	now := r.now()
	user := User{Username: username, Email: email, Tier: tier, CreatedAt: now, APIKeyID: cred.KeyID}
	rec := domain.KeyRecord{Username: username, Tier: tier, Secret: cred.KeySecret, CreatedAt: now}

	if err := r.setJSON(ctx, userKey(username), user); err != nil {
		return User{}, domain.Credential{}, err
	}
	if err := r.setJSON(ctx, apiKeyKey(cred.KeyID), rec); err != nil {
		return User{}, domain.Credential{}, err
	}
	if err := r.Client.SAdd(ctx, usersListKey, username); err != nil {
		return User{}, domain.Credential{}, err
	}
	return user, cred, nil
}

// User retorna o usuário e a credencial completa associada.
func (r Registry) User(ctx context.Context, username string) (User, domain.Credential, error) {
	user, err := r.user(ctx, username)
	if err != nil {
		return User{}, domain.Credential{}, err
	}
	rec, err := KeyStore{Client: r.Client}.Lookup(ctx, user.APIKeyID)
	if err != nil {
		return User{}, domain.Credential{}, err
	}
	return user, domain.Credential{KeyID: user.APIKeyID, KeySecret: rec.Secret}, nil
}

// Revoke apaga o usuário e sua chave; a chave deixa de validar imediatamente.
func (r Registry) Revoke(ctx context.Context, username string) error {
	user, err := r.user(ctx, username)
	if err != nil {
		return err
	}
	if err := r.Client.Del(ctx, userKey(username), apiKeyKey(user.APIKeyID)); err != nil {
		return err
	}
	return r.Client.SRem(ctx, usersListKey, username)
}

func (r Registry) ListUsers(ctx context.Context) ([]User, error) {
	names, err := r.Client.SMembers(ctx, usersListKey)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	users := make([]User, 0, len(names))
	for _, name := range names {
		u, err := r.user(ctx, name)
		if errors.Is(err, ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (r Registry) ListKeys(ctx context.Context) ([]KeySummary, error) {
	keys, err := r.Client.Scan(ctx, apiKeyPrefix+"*")
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	ks := KeyStore{Client: r.Client}
	out := make([]KeySummary, 0, len(keys))
	for _, k := range keys {
		id := strings.TrimPrefix(k, apiKeyPrefix)
		rec, err := ks.Lookup(ctx, id)
		if errors.Is(err, domain.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, KeySummary{KeyID: id, Username: rec.Username, Tier: rec.Tier, CreatedAt: rec.CreatedAt})
	}
	return out, nil
}

func (r Registry) user(ctx context.Context, username string) (User, error) {
	raw, err := r.Client.Get(ctx, userKey(username))
	if errors.Is(err, store.ErrNotFound) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return User{}, fmt.Errorf("decode user %q: %w", username, err)
	}
	return u, nil
}

func (r Registry) setJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key, string(b))
}

func generateCredential() (domain.Credential, error) {
	id, err := randomHex(16)
	if err != nil {
		return domain.Credential{}, err
	}
	secret, err := randomHex(32)
	if err != nil {
		return domain.Credential{}, err
	}
	return domain.Credential{KeyID: id, KeySecret: secret}, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
