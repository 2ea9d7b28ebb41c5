package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/order-billing/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/order-billing/internal/service"
)

// ErrorResponse — единый формат ошибок API
type ErrorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// заголовок уже отправлен, остается только залогировать
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

// writeError переводит ошибки сервисного слоя в HTTP-статусы
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		validationErr *service.ValidationError
		notFoundErr   *service.NotFoundError
		conflictErr   *service.ConflictError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, logger, http.StatusUnprocessableEntity, ErrorResponse{
			Message: "the given data was invalid",
			Errors:  validationErr.Fields(),
		})
	case errors.As(err, &notFoundErr):
		writeJSON(w, logger, http.StatusNotFound, ErrorResponse{Message: notFoundErr.Error()})
	case errors.As(err, &conflictErr):
		logger.Error("identifier conflict", slog.Any("error", err))
		writeJSON(w, logger, http.StatusConflict, ErrorResponse{Message: "could not allocate unique identifiers, please retry"})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, logger, http.StatusUnauthorized, ErrorResponse{Message: "invalid credentials"})
	default:
		logger.Error("internal error", slog.Any("error", err))
		writeJSON(w, logger, http.StatusInternalServerError, ErrorResponse{Message: "internal server error"})
	}
}

// currentUser достает id пользователя, установленный JWT middleware; при отсутствии пишет 401
func currentUser(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (int64, bool) {
	userID, ok := jwtmiddleware.FromContext(r.Context())
	if !ok {
		logger.Error("userID not found in context")
		jwtmiddleware.Unauthorized(w, "no session")
		return 0, false
	}
	return userID, true
}
