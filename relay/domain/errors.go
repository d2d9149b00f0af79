package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput        = "RELAY_BAD_INPUT"
	ErrorUnauthorized    = "RELAY_UNAUTHORIZED"
	ErrorProjectNotFound = "RELAY_PROJECT_NOT_FOUND"
	ErrorConfiguration   = "RELAY_CONFIGURATION"
	ErrorUpstream        = "RELAY_UPSTREAM"
	ErrorStore           = "RELAY_STORE_UNAVAILABLE"
	ErrorInternal        = "RELAY_INTERNAL"
	ErrorRateLimited     = "RELAY_RATE_LIMITED"
	ErrorBusy            = "RELAY_BUSY"
)

// maxUpstreamBody limita o corpo de resposta guardado no erro/log.
const maxUpstreamBody = 4 << 10

func relayError(message string, category goerrors.Category, code int, textCode string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// ValidationError: payload malformado ou incompleto (400).
func ValidationError(message string, metadata map[string]any) error {
	return relayError(message, goerrors.CategoryBadInput, http.StatusBadRequest, ErrorBadInput, metadata)
}

// UnauthorizedError: segredo compartilhado ausente ou inválido (401).
func UnauthorizedError(source string) error {
	return relayError("invalid webhook secret", goerrors.CategoryAuth, http.StatusUnauthorized, ErrorUnauthorized,
		map[string]any{"source": source})
}

// ProjectNotFoundError: projeto sem repositório mapeado (404).
func ProjectNotFoundError(projectID string) error {
	return relayError("project not found", goerrors.CategoryNotFound, http.StatusNotFound, ErrorProjectNotFound,
		map[string]any{"project_id": projectID})
}

// ConfigurationError: credencial ou alvo de dispatch ausente (500, visível para o operador).
func ConfigurationError(message string) error {
	return relayError(message, goerrors.CategoryInternal, http.StatusInternalServerError, ErrorConfiguration, nil)
}

// RateLimitedError: origem excedeu o rate limit (429).
func RateLimitedError(source string, retryAfter time.Duration) error {
	return relayError("too many requests", goerrors.CategoryRateLimit, http.StatusTooManyRequests, ErrorRateLimited,
		map[string]any{"source": source, "retry_after_ms": retryAfter.Milliseconds()})
}

// BusyError: sem vaga de concorrência dentro do timeout (503).
func BusyError(source string) error {
	return relayError("server busy", goerrors.CategoryOperation, http.StatusServiceUnavailable, ErrorBusy,
		map[string]any{"source": source})
}

// StoreError: key-value indisponível. Transiente, sem retry interno.
func StoreError(source error, op, key string) error {
	metadata := map[string]any{"op": op, "key": key}
	if source == nil {
		return relayError("store "+op+" failed", goerrors.CategoryOperation, http.StatusServiceUnavailable, ErrorStore, metadata)
	}
	return goerrors.Wrap(source, goerrors.CategoryOperation, "store "+op+" failed").
		WithCode(http.StatusServiceUnavailable).
		WithTextCode(ErrorStore).
		WithMetadata(metadata)
}

// UpstreamError é a rejeição da API de dispatch. Status 0 indica falha de transporte.
type UpstreamError struct {
	Status int
	Body   string
	Err    error
}

func NewUpstreamError(status int, body []byte) *UpstreamError {
	if len(body) > maxUpstreamBody {
		body = body[:maxUpstreamBody]
	}
	return &UpstreamError{Status: status, Body: string(body)}
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 && e.Err != nil {
		return "dispatch request failed: " + e.Err.Error()
	}
	return fmt.Sprintf("dispatch rejected with status %d: %s", e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ToRelayError converte para o envelope go-errors usado nas respostas HTTP.
func (e *UpstreamError) ToRelayError() *goerrors.Error {
	return relayError(e.Error(), goerrors.CategoryExternal, http.StatusBadGateway, ErrorUpstream,
		map[string]any{"upstream_status": e.Status})
}

// AsRelayError normaliza qualquer erro para *goerrors.Error.
// Erros não classificados viram internos (500) sem expor a mensagem original.
func AsRelayError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var up *UpstreamError
	if errors.As(err, &up) {
		return up.ToRelayError()
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		if rich.Code != 0 {
			return rich
		}
		// não altera o erro de quem chamou
		textCode := rich.TextCode
		if textCode == "" {
			textCode = ErrorInternal
		}
		return relayError(rich.Message, rich.Category, http.StatusInternalServerError, textCode, nil)
	}
	return relayError("internal error", goerrors.CategoryInternal, http.StatusInternalServerError, ErrorInternal, nil)
}

// HTTPStatus mapeia o erro para o status de resposta.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return AsRelayError(err).Code
}

// HasTextCode informa se err carrega o text code informado.
func HasTextCode(err error, textCode string) bool {
	rich := AsRelayError(err)
	return rich != nil && rich.TextCode == textCode
}
