package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/linemk/order-billing/internal/domain/models"
)

const TypeOrderPlaced = "order.placed"

// OrderPlaced публикуется после фиксации транзакции заказа и счета.
type OrderPlaced struct {
	EventID        string          `json:"event_id"`
	Type           string          `json:"type"`
	OccurredAt     time.Time       `json:"occurred_at"`
	OrderID        int64           `json:"order_id"`
	OrderRef       string          `json:"order_ref"`
	UserID         int64           `json:"user_id"`
	BillNumber     string          `json:"bill_number"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TrackingNumber string          `json:"tracking_number"`
}

// NewOrderPlaced собирает событие из только что созданных заказа и счета.
func NewOrderPlaced(order *models.Order, bill *models.Bill, at time.Time) OrderPlaced {
	return OrderPlaced{
		EventID:        uuid.NewString(),
		Type:           TypeOrderPlaced,
		OccurredAt:     at.UTC(),
		OrderID:        order.ID,
		OrderRef:       order.OrderRef,
		UserID:         order.UserID,
		BillNumber:     bill.BillNumber,
		TotalAmount:    order.TotalAmount,
		TrackingNumber: order.TrackingNumber,
	}
}

// Publisher отправляет доменные события заказов.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event OrderPlaced) error
	Close() error
}

// NoopPublisher используется, когда брокеры не настроены.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderPlaced(context.Context, OrderPlaced) error { return nil }

func (NoopPublisher) Close() error { return nil }
