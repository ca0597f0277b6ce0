// Package httpjson — JSON-ответы и перевод таксономии apperr в HTTP-статусы.
package httpjson

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ParcelDesk/ParcelDesk/internal/apperr"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error отвечает статусом по Kind ошибки. Внутренние детали store-ошибок
// наружу не уходят — только в лог.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	msg := err.Error()

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		msg = "internal server error"
		kind = apperr.KindStore
	}

	Write(w, status, errorBody{Error: msg, Kind: kind.String()})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Decode читает тело запроса; любой мусор — ValidationError, не 500.
func Decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("invalid request body: %s", err)
	}
	return nil
}
