// errors стандартизирует ответы об ошибках HTTP-слоя report-board.
// На вход принимает доменную ошибку (service/storage), на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/report-board/internal/service"
	"github.com/pribylovaa/report-board/internal/storage"
)

// StatusClientClosedRequest - нестандартный код «клиент закрыл соединение».
const StatusClientClosedRequest = 499

// ErrUnauthenticated - нет или невалиден токен администратора.
var ErrUnauthenticated = errors.New("unauthenticated")

// APIError - единый формат ошибки.
// Code - короткий стабильный код для машинной обработки.
// Message - безопасное человекочитаемое описание.
// RequestID - прокидывается из X-Request-Id, если есть.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse - корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированный ответ.
//
// Таблица:
//   - service.ErrInvalidArgument -> 400 invalid_argument;
//   - ErrUnauthenticated -> 401 unauthenticated;
//   - service.ErrUnknownView -> 404 not_found;
//   - context.Canceled -> 499 canceled;
//   - storage.ErrStoreUnavailable -> 503 unavailable;
//   - context.DeadlineExceeded -> 504 deadline_exceeded;
//   - прочее (в том числе nil, ErrQueryFailed, ErrMalformedTimestamp) -> 500 internal.
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := classify(err)
	return status, ErrorResponse{Error: APIError{Code: code, Message: msg}}
}

func classify(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal", "internal error"
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case errors.Is(err, service.ErrUnknownView):
		return http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case errors.Is(err, storage.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "unavailable", "service unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

// WriteError пишет статус и тело ошибки, добавляя request_id из заголовка.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
