package gateway

import (
	"errors"

	"tiered-gateway/httperr"
	"tiered-gateway/middleware/apikey"
	akdomain "tiered-gateway/middleware/apikey/domain"
)

// classify traduz erros de domínio para a resposta do cliente. A causa fica
// em Cause (só log); a mensagem nunca inclui texto do store.
func classify(err error) *httperr.Error {
	var herr *httperr.Error
	switch {
	case errors.As(err, &herr):
		return herr
	case errors.Is(err, akdomain.ErrMissingCredential):
		return httperr.New(httperr.KindMissingCredential, "API key is required. Use header: "+apikey.HeaderName)
	case errors.Is(err, akdomain.ErrMalformedCredential):
		return httperr.New(httperr.KindMalformedCredential, "Invalid API key format. Use: keyId:keySecret")
	case errors.Is(err, akdomain.ErrInvalidCredential):
		return httperr.New(httperr.KindInvalidCredential, "Invalid API key")
	case errors.Is(err, akdomain.ErrUpstreamUnavailable):
		return httperr.New(httperr.KindUpstreamUnavailable, "Failed to validate API key").Wrap(err)
	case errors.Is(err, akdomain.ErrCorruptRecord):
		return httperr.New(httperr.KindInternal, "Failed to validate API key").Wrap(err)
	default:
		return httperr.New(httperr.KindInternal, "Internal server error").Wrap(err)
	}
}
