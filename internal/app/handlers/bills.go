package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/linemk/order-billing/internal/domain/models"
	"github.com/linemk/order-billing/internal/service"
)

type BillsResponse struct {
	Bills []*models.Bill `json:"bills"`
}

type BillResponse struct {
	Bill *models.Bill `json:"bill"`
}

// ListBillsHandler обрабатывает GET /api/bills
func ListBillsHandler(log *slog.Logger, queryService service.OrderQueryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.ListBillsHandler"))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}

		bills, err := queryService.ListBills(r.Context(), userID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, BillsResponse{Bills: bills})
	}
}

// GetBillHandler обрабатывает GET /api/bills/{id}
func GetBillHandler(log *slog.Logger, queryService service.OrderQueryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.GetBillHandler"))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}

		rawID := chi.URLParam(r, "id")
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			writeError(w, logger, &service.NotFoundError{Resource: "bill", ID: rawID})
			return
		}

		bill, err := queryService.GetBill(r.Context(), userID, id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, BillResponse{Bill: bill})
	}
}

// GetBillByOrderHandler обрабатывает GET /api/bills/by-order/{orderId}
func GetBillByOrderHandler(log *slog.Logger, queryService service.OrderQueryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.GetBillByOrderHandler"))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}

		orderRef := chi.URLParam(r, "orderId")
		if orderRef == "" {
			writeError(w, logger, &service.NotFoundError{Resource: "bill", ID: orderRef})
			return
		}

		bill, err := queryService.GetBillByOrder(r.Context(), userID, orderRef)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, BillResponse{Bill: bill})
	}
}
