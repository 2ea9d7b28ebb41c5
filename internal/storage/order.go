package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/linemk/order-billing/internal/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CreateOrder вставляет заказ в рамках транзакции и заполняет ID и временные метки.
	CreateOrder(ctx context.Context, tx *sql.Tx, order *models.Order) error
	// ListOrdersByUserID возвращает заказы пользователя (новые первыми) вместе со счетами.
	ListOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error)
	// GetOrderByID возвращает заказ только если он принадлежит пользователю.
	GetOrderByID(ctx context.Context, userID, id int64) (*models.Order, error)
}

// orderRepository — конкретная реализация OrderStorage.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const orderColumns = `o.id, o.order_id, o.user_id, o.items, o.subtotal, o.shipping, o.tax, o.total_amount, o.status,
	o.shipping_name, o.shipping_email, o.shipping_phone, o.shipping_address, o.shipping_city, o.shipping_state, o.shipping_zip,
	o.payment_method, o.estimated_arrival, o.actual_arrival, o.tracking_number, o.created_at, o.updated_at`

const billColumns = `b.id, b.user_id, b.order_id, b.bill_number, b.subtotal, b.shipping_fee, b.tax_amount, b.total_amount,
	b.payment_method, b.payment_status, b.billing_date, b.created_at, b.updated_at`

// CreateOrder вставляет новый заказ в таблицу orders.
func (r *orderRepository) CreateOrder(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	query := `INSERT INTO orders (order_id, user_id, items, subtotal, shipping, tax, total_amount, status,
		shipping_name, shipping_email, shipping_phone, shipping_address, shipping_city, shipping_state, shipping_zip,
		payment_method, estimated_arrival, tracking_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW(), NOW())
		RETURNING id, created_at, updated_at`
	err := tx.QueryRowContext(ctx, query,
		order.OrderRef, order.UserID, order.Items, order.Subtotal, order.Shipping, order.Tax, order.TotalAmount, order.Status,
		order.Name, order.Email, order.Phone, order.Address, order.City, order.State, order.Zip,
		order.PaymentMethod, order.EstimatedArrival, order.TrackingNumber,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if pqErr, ok := isUniqueViolation(err); ok {
			return fmt.Errorf("failed to create order: %w (%s)", ErrDuplicateIdentifier, pqErr.Constraint)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// ListOrdersByUserID возвращает список заказов пользователя, счет подтягивается через LEFT JOIN.
func (r *orderRepository) ListOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + `, ` + billColumns + `
		FROM orders o
		LEFT JOIN bills b ON b.order_id = o.id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		order, err := scanOrderWithBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrderByID ищет заказ по внутреннему id; чужой заказ не отличим от отсутствующего.
func (r *orderRepository) GetOrderByID(ctx context.Context, userID, id int64) (*models.Order, error) {
	query := `SELECT ` + orderColumns + `, ` + billColumns + `
		FROM orders o
		LEFT JOIN bills b ON b.order_id = o.id
		WHERE o.user_id = $1 AND o.id = $2`
	order, err := scanOrderWithBill(r.db.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// orderRow собирает nullable-колонки заказа
type orderRow struct {
	order            models.Order
	estimatedArrival sql.NullTime
	actualArrival    sql.NullTime
	trackingNumber   sql.NullString
}

func (o *orderRow) dest() []any {
	return []any{
		&o.order.ID, &o.order.OrderRef, &o.order.UserID, &o.order.Items,
		&o.order.Subtotal, &o.order.Shipping, &o.order.Tax, &o.order.TotalAmount, &o.order.Status,
		&o.order.Name, &o.order.Email, &o.order.Phone, &o.order.Address, &o.order.City, &o.order.State, &o.order.Zip,
		&o.order.PaymentMethod, &o.estimatedArrival, &o.actualArrival, &o.trackingNumber,
		&o.order.CreatedAt, &o.order.UpdatedAt,
	}
}

func (o *orderRow) result() *models.Order {
	order := o.order
	if o.estimatedArrival.Valid {
		order.EstimatedArrival = o.estimatedArrival.Time
	}
	if o.actualArrival.Valid {
		t := o.actualArrival.Time
		order.ActualArrival = &t
	}
	order.TrackingNumber = o.trackingNumber.String
	return &order
}

// billRow — счет из LEFT JOIN, все поля могут быть NULL
type billRow struct {
	id            sql.NullInt64
	userID        sql.NullInt64
	orderID       sql.NullInt64
	billNumber    sql.NullString
	subtotal      decimal.NullDecimal
	shippingFee   decimal.NullDecimal
	taxAmount     decimal.NullDecimal
	totalAmount   decimal.NullDecimal
	paymentMethod sql.NullString
	paymentStatus sql.NullString
	billingDate   sql.NullTime
	createdAt     sql.NullTime
	updatedAt     sql.NullTime
}

func (b *billRow) dest() []any {
	return []any{
		&b.id, &b.userID, &b.orderID, &b.billNumber, &b.subtotal, &b.shippingFee, &b.taxAmount, &b.totalAmount,
		&b.paymentMethod, &b.paymentStatus, &b.billingDate, &b.createdAt, &b.updatedAt,
	}
}

func (b *billRow) result() *models.Bill {
	if !b.id.Valid {
		return nil
	}
	return &models.Bill{
		ID:            b.id.Int64,
		UserID:        b.userID.Int64,
		OrderID:       b.orderID.Int64,
		BillNumber:    b.billNumber.String,
		Subtotal:      b.subtotal.Decimal,
		ShippingFee:   b.shippingFee.Decimal,
		TaxAmount:     b.taxAmount.Decimal,
		TotalAmount:   b.totalAmount.Decimal,
		PaymentMethod: b.paymentMethod.String,
		PaymentStatus: models.PaymentStatus(b.paymentStatus.String),
		BillingDate:   b.billingDate.Time,
		CreatedAt:     b.createdAt.Time,
		UpdatedAt:     b.updatedAt.Time,
	}
}

func scanOrderWithBill(row rowScanner) (*models.Order, error) {
	var o orderRow
	var b billRow
	if err := row.Scan(append(o.dest(), b.dest()...)...); err != nil {
		return nil, err
	}
	order := o.result()
	order.Bill = b.result()
	return order, nil
}
