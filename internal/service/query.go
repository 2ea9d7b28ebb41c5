package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/linemk/order-billing/internal/domain/models"
	"github.com/linemk/order-billing/internal/storage"
)

// OrderQueryService — чтение заказов и счетов в пределах одного пользователя.
type OrderQueryService interface {
	ListOrders(ctx context.Context, userID int64) ([]*models.Order, error)
	GetOrder(ctx context.Context, userID, id int64) (*models.Order, error)
	ListBills(ctx context.Context, userID int64) ([]*models.Bill, error)
	GetBill(ctx context.Context, userID, id int64) (*models.Bill, error)
	// GetBillByOrder принимает внутренний id заказа или номер вида ORD-2025-XXXXXX.
	GetBillByOrder(ctx context.Context, userID int64, orderRef string) (*models.Bill, error)
}

type orderQueryService struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
	billRepo  storage.BillStorage
}

func NewOrderQueryService(log *slog.Logger, orderRepo storage.OrderStorage, billRepo storage.BillStorage) OrderQueryService {
	return &orderQueryService{
		log:       log,
		orderRepo: orderRepo,
		billRepo:  billRepo,
	}
}

func (s *orderQueryService) ListOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	const op = "service.OrderQueryService.ListOrders"

	orders, err := s.orderRepo.ListOrdersByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

func (s *orderQueryService) GetOrder(ctx context.Context, userID, id int64) (*models.Order, error) {
	const op = "service.OrderQueryService.GetOrder"

	order, err := s.orderRepo.GetOrderByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, &NotFoundError{Resource: "order", ID: strconv.FormatInt(id, 10)}
		}
		s.log.Error("failed to get order", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}

func (s *orderQueryService) ListBills(ctx context.Context, userID int64) ([]*models.Bill, error) {
	const op = "service.OrderQueryService.ListBills"

	bills, err := s.billRepo.ListBillsByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to list bills", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return bills, nil
}

func (s *orderQueryService) GetBill(ctx context.Context, userID, id int64) (*models.Bill, error) {
	const op = "service.OrderQueryService.GetBill"

	bill, err := s.billRepo.GetBillByID(ctx, userID, id)
	return s.billResult(op, userID, strconv.FormatInt(id, 10), bill, err)
}

func (s *orderQueryService) GetBillByOrder(ctx context.Context, userID int64, orderRef string) (*models.Bill, error) {
	const op = "service.OrderQueryService.GetBillByOrder"

	var (
		bill *models.Bill
		err  error
	)
	if orderID, convErr := strconv.ParseInt(orderRef, 10, 64); convErr == nil {
		bill, err = s.billRepo.GetBillByOrderID(ctx, userID, orderID)
	} else {
		bill, err = s.billRepo.GetBillByOrderRef(ctx, userID, orderRef)
	}
	return s.billResult(op, userID, orderRef, bill, err)
}

func (s *orderQueryService) billResult(op string, userID int64, id string, bill *models.Bill, err error) (*models.Bill, error) {
	if err == nil {
		return bill, nil
	}
	if errors.Is(err, storage.ErrBillNotFound) {
		return nil, &NotFoundError{Resource: "bill", ID: id}
	}
	s.log.Error("failed to get bill", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
	return nil, fmt.Errorf("%s: %w", op, err)
}
