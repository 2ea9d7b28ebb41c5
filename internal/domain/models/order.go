package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus — статус выполнения заказа
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
)

// LineItem — позиция корзины, зафиксированная на момент покупки
type LineItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// LineItems хранится в колонке orders.items (jsonb)
type LineItems []LineItem

// Value сериализует позиции в JSON для записи в БД
func (li LineItems) Value() (driver.Value, error) {
	if li == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(li)
}

// Scan читает позиции из jsonb
func (li *LineItems) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*li = LineItems{}
		return nil
	default:
		return errors.New("models: unsupported type for line items")
	}
	return json.Unmarshal(data, li)
}

// ShippingInfo — снимок адреса доставки на момент оформления
type ShippingInfo struct {
	Name    string `json:"shipping_name"`
	Email   string `json:"shipping_email"`
	Phone   string `json:"shipping_phone"`
	Address string `json:"shipping_address"`
	City    string `json:"shipping_city"`
	State   string `json:"shipping_state"`
	Zip     string `json:"shipping_zip"`
}

// Order представляет оформленный заказ пользователя
type Order struct {
	ID          int64           `json:"id"`
	OrderRef    string          `json:"order_id"` // ORD-<год>-XXXXXX
	UserID      int64           `json:"user_id"`
	Items       LineItems       `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Shipping    decimal.Decimal `json:"shipping"`
	Tax         decimal.Decimal `json:"tax"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      OrderStatus     `json:"status"`
	ShippingInfo
	PaymentMethod    string     `json:"payment_method"`
	EstimatedArrival time.Time  `json:"estimated_arrival"`
	ActualArrival    *time.Time `json:"actual_arrival"`
	TrackingNumber   string     `json:"tracking_number"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Bill *Bill `json:"bill,omitempty"`
}
