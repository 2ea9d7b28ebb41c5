package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus — статус оплаты счета
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Bill — счет, создаваемый строго один на заказ
type Bill struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	OrderID       int64           `json:"order_id"` // внутренний id заказа
	BillNumber    string          `json:"bill_number"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingFee   decimal.Decimal `json:"shipping_fee"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	BillingDate   time.Time       `json:"billing_date"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Order *Order `json:"order,omitempty"`
}
