// Package httperr define a taxonomia de erros visíveis ao cliente e o formato
// JSON em que são escritos na borda do gateway.
package httperr

import (
	"encoding/json"
	"net/http"
)

type Kind string

const (
	KindMissingCredential   Kind = "MissingCredential"
	KindMalformedCredential Kind = "MalformedCredential"
	KindInvalidCredential   Kind = "InvalidCredential"
	KindForbidden           Kind = "Forbidden"
	KindRateLimitExceeded   Kind = "RateLimitExceeded"
	KindRouteNotFound       Kind = "RouteNotFound"
	KindBackendUnavailable  Kind = "BackendUnavailable"
	KindUpstreamUnavailable Kind = "UpstreamUnavailable"
	KindGatewayOverloaded   Kind = "GatewayOverloaded"
	KindInternal            Kind = "InternalError"
)

var statusByKind = map[Kind]int{
	KindMissingCredential:   http.StatusUnauthorized,
	KindMalformedCredential: http.StatusUnauthorized,
	KindInvalidCredential:   http.StatusUnauthorized,
	KindForbidden:           http.StatusForbidden,
	KindRateLimitExceeded:   http.StatusTooManyRequests,
	KindRouteNotFound:       http.StatusNotFound,
	KindBackendUnavailable:  http.StatusServiceUnavailable,
	KindUpstreamUnavailable: http.StatusServiceUnavailable,
	KindGatewayOverloaded:   http.StatusServiceUnavailable,
	KindInternal:            http.StatusInternalServerError,
}

// Status retorna o status HTTP associado ao tipo (500 para tipos desconhecidos).
func (k Kind) Status() int {
	if s, ok := statusByKind[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error é o resultado terminal de um estágio do pipeline.
//
// Message é o texto seguro para o cliente. Cause fica só nos logs.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// With adiciona um campo extra ao corpo JSON (ex: retryAfter, service, path).
func (e *Error) With(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any, 2)
	}
	e.Context[key] = value
	return e
}

// Wrap guarda a causa interna para log.
func (e *Error) Wrap(cause error) *Error {
	e.Cause = cause
	return e
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Cause.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Status() int { return e.Kind.Status() }

// Body monta o corpo {error, code, message, ...context}. Campos de contexto
// nunca sobrescrevem os três campos fixos.
func (e *Error) Body() map[string]any {
	body := make(map[string]any, 3+len(e.Context))
	for k, v := range e.Context {
		body[k] = v
	}
	status := e.Status()
	body["error"] = http.StatusText(status)
	body["code"] = string(e.Kind)
	body["message"] = e.Message
	return body
}

// Write escreve o erro como JSON com o status correspondente.
func Write(w http.ResponseWriter, e *Error) {
	WriteJSON(w, e.Status(), e.Body())
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
