package proxy

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidSource       = errors.New("invalid source")
	ErrMissingEndpoint     = errors.New("missing endpoint parameter")
	ErrInvalidEndpoint     = errors.New("invalid endpoint")
	ErrInvalidParams       = errors.New("invalid parameters")
	ErrQuotaExceeded       = errors.New("rate limit protection")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// UpstreamError - ответ провайдера со статусом вне 2xx.
type UpstreamError struct {
	Provider string
	Status   int
	Message  string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Provider, e.Status, e.Message)
}

// ErrorEnvelope - JSON-тело ошибки HTTP-интерфейса прокси.
type ErrorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Status  int    `json:"status,omitempty"`
}

// Envelope переводит ошибку Fetch в HTTP-статус и тело ответа.
func Envelope(err error) (int, ErrorEnvelope) {
	var upstream *UpstreamError
	switch {
	case errors.As(err, &upstream):
		return upstream.Status, ErrorEnvelope{
			Error:  upstream.Message,
			Status: upstream.Status,
		}
	case errors.Is(err, ErrQuotaExceeded):
		return http.StatusTooManyRequests, ErrorEnvelope{
			Error:   "Rate limit protection",
			Message: err.Error(),
		}
	case errors.Is(err, ErrInvalidSource),
		errors.Is(err, ErrMissingEndpoint),
		errors.Is(err, ErrInvalidEndpoint),
		errors.Is(err, ErrInvalidParams):
		return http.StatusBadRequest, ErrorEnvelope{Error: err.Error()}
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusBadGateway, ErrorEnvelope{
			Error:   "Upstream unavailable",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, ErrorEnvelope{Error: "Internal server error"}
	}
}

// StatusCode возвращает HTTP-статус, соответствующий ошибке.
func StatusCode(err error) int {
	code, _ := Envelope(err)
	return code
}

// fromEnvelope восстанавливает ошибку по ответу удалённого прокси.
func fromEnvelope(source string, status int, env ErrorEnvelope) error {
	msg := env.Message
	if msg == "" {
		msg = env.Error
	}
	switch status {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrInvalidParams, msg)
	case http.StatusTooManyRequests:
		if env.Status == 0 {
			return fmt.Errorf("%w: %s", ErrQuotaExceeded, msg)
		}
	case http.StatusBadGateway:
		if env.Status == 0 {
			return fmt.Errorf("%w: %s", ErrUpstreamUnavailable, msg)
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &UpstreamError{Provider: source, Status: status, Message: msg}
}
