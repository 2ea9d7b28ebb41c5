package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/order-billing/internal/domain/models"
)

var ErrBillNotFound = errors.New("bill not found")

// BillStorage описывает методы для работы со счетами.
type BillStorage interface {
	CreateBill(ctx context.Context, tx *sql.Tx, bill *models.Bill) error
	ListBillsByUserID(ctx context.Context, userID int64) ([]*models.Bill, error)
	GetBillByID(ctx context.Context, userID, id int64) (*models.Bill, error)
	// GetBillByOrderID ищет счет по внутреннему id заказа.
	GetBillByOrderID(ctx context.Context, userID, orderID int64) (*models.Bill, error)
	// GetBillByOrderRef ищет счет по номеру заказа вида ORD-2025-XXXXXX.
	GetBillByOrderRef(ctx context.Context, userID int64, orderRef string) (*models.Bill, error)
}

type billRepository struct {
	db *sql.DB
}

// NewBillRepository создаёт новый репозиторий счетов.
func NewBillRepository(db *sql.DB) BillStorage {
	return &billRepository{db: db}
}

func (r *billRepository) CreateBill(ctx context.Context, tx *sql.Tx, bill *models.Bill) error {
	query := `INSERT INTO bills (user_id, order_id, bill_number, subtotal, shipping_fee, tax_amount, total_amount,
		payment_method, payment_status, billing_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, created_at, updated_at`
	err := tx.QueryRowContext(ctx, query,
		bill.UserID, bill.OrderID, bill.BillNumber, bill.Subtotal, bill.ShippingFee, bill.TaxAmount, bill.TotalAmount,
		bill.PaymentMethod, bill.PaymentStatus, bill.BillingDate,
	).Scan(&bill.ID, &bill.CreatedAt, &bill.UpdatedAt)
	if err != nil {
		if pqErr, ok := isUniqueViolation(err); ok {
			return fmt.Errorf("failed to create bill: %w (%s)", ErrDuplicateIdentifier, pqErr.Constraint)
		}
		return fmt.Errorf("failed to create bill: %w", err)
	}
	return nil
}

const billWithOrderSelect = `SELECT ` + billColumns + `, ` + orderColumns + `
		FROM bills b
		JOIN orders o ON o.id = b.order_id`

func (r *billRepository) ListBillsByUserID(ctx context.Context, userID int64) ([]*models.Bill, error) {
	query := billWithOrderSelect + `
		WHERE b.user_id = $1
		ORDER BY b.billing_date DESC, b.id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer rows.Close()

	bills := make([]*models.Bill, 0)
	for rows.Next() {
		bill, err := scanBillWithOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *billRepository) GetBillByID(ctx context.Context, userID, id int64) (*models.Bill, error) {
	return r.getOne(ctx, billWithOrderSelect+` WHERE b.user_id = $1 AND b.id = $2`, userID, id)
}

func (r *billRepository) GetBillByOrderID(ctx context.Context, userID, orderID int64) (*models.Bill, error) {
	return r.getOne(ctx, billWithOrderSelect+` WHERE b.user_id = $1 AND b.order_id = $2`, userID, orderID)
}

func (r *billRepository) GetBillByOrderRef(ctx context.Context, userID int64, orderRef string) (*models.Bill, error) {
	return r.getOne(ctx, billWithOrderSelect+` WHERE b.user_id = $1 AND o.order_id = $2`, userID, orderRef)
}

func (r *billRepository) getOne(ctx context.Context, query string, args ...any) (*models.Bill, error) {
	bill, err := scanBillWithOrder(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}
	return bill, nil
}

func scanBillWithOrder(row rowScanner) (*models.Bill, error) {
	var b billRow
	var o orderRow
	if err := row.Scan(append(b.dest(), o.dest()...)...); err != nil {
		return nil, err
	}
	bill := b.result()
	bill.Order = o.result()
	return bill, nil
}
