package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/formaplus/internal/repository"
	"github.com/mmeshcher/formaplus/internal/service"
	"github.com/mmeshcher/formaplus/internal/validation"
)

// maxBodySize ограничивает размер тела запроса.
const maxBodySize = 1 << 20

type errorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// readBody читает тело запроса с ограничением размера.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, validation.FieldError("body", "is too large or unreadable")
	}
	return body, nil
}

// decodeJSON разбирает тело запроса в v. Ошибки возвращаются как *validation.Error.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return validation.FieldError(typeErr.Field, "has invalid type")
		}
		return validation.FieldError("body", "must be a valid JSON object")
	}
	return nil
}

// fail преобразует ошибку сервиса в HTTP-ответ. invalidMsg используется для ошибок валидации.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, invalidMsg string) {
	var vErr *validation.Error
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: invalidMsg, Details: vErr.Fields})
		return
	}

	switch {
	case errors.Is(err, service.ErrReservationNotFound),
		errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrNoPayment),
		errors.Is(err, repository.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrAlreadyPaid),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrNothingToUpdate):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrUserExists),
		errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		h.logger.Error("request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
