package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/order-billing/internal/lib/validate"
	"github.com/linemk/order-billing/internal/service"
)

// AuthRequest представляет структуру запроса для аутентификации с тегами валидации
type AuthRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthResponse представляет структуру ответа с JWT-токеном
type AuthResponse struct {
	Token string `json:"token"`
}

var requestValidator = validate.New()

// AuthHandler – HTTP-обработчик для аутентификации, принимает логгер и экземпляр AuthService
func AuthHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AuthHandler"
		logger := log.With(slog.String("op", op))

		var req AuthRequest
		var violations []validate.Violation
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				logger.Error("invalid request: decoding error", slog.Any("error", err))
				writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{Message: "invalid request"})
				return
			}
			violations = append(violations, validate.TypeViolation(typeErr))
		}

		if err := requestValidator.Struct(req); err != nil {
			found, ok := validate.Violations(err)
			if !ok {
				writeError(w, logger, err)
				return
			}
			violations = append(violations, found...)
		}
		if len(violations) > 0 {
			logger.Info("invalid request: validation error", slog.Int("violations", len(violations)))
			writeError(w, logger, &service.ValidationError{Violations: violations})
			return
		}

		token, err := authService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			logger.Error("login failed", slog.Any("error", err))
			writeError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, AuthResponse{Token: token})
	}
}
