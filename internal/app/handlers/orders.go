package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/linemk/order-billing/internal/domain/models"
	"github.com/linemk/order-billing/internal/lib/validate"
	"github.com/linemk/order-billing/internal/service"
)

type OrdersResponse struct {
	Orders []*models.Order `json:"orders"`
}

type OrderResponse struct {
	Order *models.Order `json:"order"`
}

// PlaceOrderHandler обрабатывает POST /api/orders
func PlaceOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PlaceOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}

		var req service.PlaceOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			// поле не того типа: json дочитывает остальное, поэтому сообщаем обо всех нарушениях сразу
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				logger.Error("invalid request: decoding error", slog.Any("error", err))
				writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{Message: "invalid request"})
				return
			}
			logger.Info("invalid request: field type mismatch", slog.String("field", typeErr.Field))
			writeError(w, logger, req.Validate(validate.TypeViolation(typeErr)))
			return
		}

		result, err := orderService.PlaceOrder(r.Context(), userID, req)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusCreated, result)
	}
}

// ListOrdersHandler обрабатывает GET /api/orders
func ListOrdersHandler(log *slog.Logger, queryService service.OrderQueryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.ListOrdersHandler"))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}

		orders, err := queryService.ListOrders(r.Context(), userID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, OrdersResponse{Orders: orders})
	}
}

// GetOrderHandler обрабатывает GET /api/orders/{id}
func GetOrderHandler(log *slog.Logger, queryService service.OrderQueryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.GetOrderHandler"))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}

		rawID := chi.URLParam(r, "id")
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			// нечисловой id не может существовать
			writeError(w, logger, &service.NotFoundError{Resource: "order", ID: rawID})
			return
		}

		order, err := queryService.GetOrder(r.Context(), userID, id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, OrderResponse{Order: order})
	}
}
