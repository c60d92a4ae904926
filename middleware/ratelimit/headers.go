package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"tiered-gateway/httperr"
	"tiered-gateway/middleware/ratelimit/domain"
)

const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Admitter é satisfeito por *application.Service.
type Admitter interface {
	Admit(ctx context.Context, req domain.AdmitRequest) (domain.Decision, error)
}

// SetHeaders escreve os headers X-RateLimit-*. Decisões fail-open não têm
// contagem conhecida e saem sem headers.
func SetHeaders(h http.Header, dec domain.Decision) {
	if dec.FailOpen {
		return
	}
	h.Set(HeaderLimit, strconv.Itoa(dec.Limit))
	h.Set(HeaderRemaining, strconv.Itoa(dec.Remaining))
	h.Set(HeaderReset, strconv.FormatInt(dec.ResetEpochSeconds, 10))
	if !dec.Allowed && dec.RetryAfterSeconds > 0 {
		h.Set("Retry-After", strconv.Itoa(dec.RetryAfterSeconds))
	}
}

// Exceeded monta o erro 429 de uma decisão negada.
func Exceeded(dec domain.Decision) *httperr.Error {
	return httperr.New(httperr.KindRateLimitExceeded,
		fmt.Sprintf("Rate limit exceeded. Max %d requests per %d seconds", dec.Limit, dec.RetryAfterSeconds)).
		With("retryAfter", dec.RetryAfterSeconds)
}
