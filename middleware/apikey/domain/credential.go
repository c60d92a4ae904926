package domain

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"tiered-gateway/consumer"
)

// Erros da validação. Chave desconhecida e segredo errado colapsam no mesmo
// ErrInvalidCredential para não revelar qual parte falhou.
var (
	ErrMissingCredential   = errors.New("credential missing")
	ErrMalformedCredential = errors.New("credential malformed")
	ErrInvalidCredential   = errors.New("credential invalid")
	ErrUpstreamUnavailable = errors.New("credential store unavailable")
	ErrCorruptRecord       = errors.New("credential record corrupt")

	// ErrKeyNotFound é retornado por KeyStore quando não há registro para o keyId.
	ErrKeyNotFound = errors.New("key not found")
)

// Credential é o par transmitido no header X-API-Key.
type Credential struct {
	KeyID     string
	KeySecret string
}

// ParseCredential separa o token no primeiro ':'. O segredo pode conter ':'.
func ParseCredential(raw string) (Credential, error) {
	if raw == "" {
		return Credential{}, ErrMissingCredential
	}
	id, secret, ok := strings.Cut(raw, ":")
	if !ok || id == "" || secret == "" {
		return Credential{}, ErrMalformedCredential
	}
	return Credential{KeyID: id, KeySecret: secret}, nil
}

// Token devolve o valor completo "keyId:keySecret", como o cliente envia.
func (c Credential) Token() string { return c.KeyID + ":" + c.KeySecret }

// String omite o segredo; logs e %v nunca devem vazá-lo.
func (c Credential) String() string { return c.KeyID + ":" + redacted }

func (c Credential) GoString() string {
	return "domain.Credential{KeyID:" + strconv.Quote(c.KeyID) + ", KeySecret:" + strconv.Quote(redacted) + "}"
}

const redacted = "[REDACTED]"

// KeyRecord é o registro persistido em "apikey:<keyId>".
type KeyRecord struct {
	Username  string        `json:"username"`
	Tier      consumer.Tier `json:"tier"`
	Secret    string        `json:"secret"`
	CreatedAt time.Time     `json:"createdAt"`
}

// KeyStore resolve um keyId no seu registro.
//
// Implementações retornam ErrKeyNotFound para ausência, ErrCorruptRecord para
// registro ilegível e um erro embrulhando ErrUpstreamUnavailable para falhas
// do store.
type KeyStore interface {
	Lookup(ctx context.Context, keyID string) (KeyRecord, error)
}
