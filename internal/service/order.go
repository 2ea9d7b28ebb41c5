package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/linemk/order-billing/internal/domain/models"
	"github.com/linemk/order-billing/internal/events"
	"github.com/linemk/order-billing/internal/lib/validate"
	"github.com/linemk/order-billing/internal/storage"
)

const (
	DateLayout = "2006-01-02"

	defaultIDAttempts      = 3
	defaultMinDeliveryDays = 5
	defaultMaxDeliveryDays = 7

	publishTimeout = 3 * time.Second
)

// LineItemRequest — позиция корзины в запросе на оформление.
// Границы в тегах совпадают с NUMERIC(10,2) и длинами колонок orders.
type LineItemRequest struct {
	ProductID   int64           `json:"product_id" validate:"required"`
	ProductName string          `json:"product_name" validate:"required,max=255"`
	Quantity    int             `json:"quantity" validate:"gt=0"`
	Price       *validate.Money `json:"price" validate:"required,amount,gte=0,lte=99999999.99"`
}

type ShippingInfoRequest struct {
	FullName string `json:"fullName" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,max=255,email"`
	Phone    string `json:"phone" validate:"required,max=64"`
	Address  string `json:"address" validate:"required"`
	City     string `json:"city" validate:"required,max=255"`
	State    string `json:"state" validate:"required,max=255"`
	ZipCode  string `json:"zipCode" validate:"required,max=32"`
}

type PaymentInfoRequest struct {
	Method string `json:"method" validate:"required,max=64"`
}

// PlaceOrderRequest — тело POST /api/orders
type PlaceOrderRequest struct {
	Items        []LineItemRequest   `json:"items" validate:"required,min=1,dive"`
	Subtotal     *validate.Money     `json:"subtotal" validate:"required,amount,gte=0,lte=99999999.99"`
	Shipping     *validate.Money     `json:"shipping" validate:"required,amount,gte=0,lte=99999999.99"`
	Tax          *validate.Money     `json:"tax" validate:"required,amount,gte=0,lte=99999999.99"`
	Total        *validate.Money     `json:"total" validate:"required,amount,gte=0,lte=99999999.99"`
	ShippingInfo ShippingInfoRequest `json:"shippingInfo"`
	PaymentInfo  PaymentInfoRequest  `json:"paymentInfo"`
}

var requestValidator = validate.New()

// Validate нормализует запрос и возвращает *ValidationError со всеми нарушениями сразу.
// extra — нарушения, найденные раньше, например при разборе JSON.
func (r *PlaceOrderRequest) Validate(extra ...validate.Violation) error {
	r.normalize()

	violations := append([]validate.Violation(nil), extra...)
	if err := requestValidator.Struct(r); err != nil {
		found, ok := validate.Violations(err)
		if !ok {
			return err
		}
		violations = append(violations, found...)
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// normalize обрезает пробелы, чтобы строка из пробелов не проходила required,
// и округляет суммы до копеек, как их сохранит БД
func (r *PlaceOrderRequest) normalize() {
	for i := range r.Items {
		r.Items[i].ProductName = strings.TrimSpace(r.Items[i].ProductName)
		r.Items[i].Price.Round()
	}
	for _, m := range []*validate.Money{r.Subtotal, r.Shipping, r.Tax, r.Total} {
		m.Round()
	}
	si := &r.ShippingInfo
	for _, f := range []*string{&si.FullName, &si.Email, &si.Phone, &si.Address, &si.City, &si.State, &si.ZipCode} {
		*f = strings.TrimSpace(*f)
	}
	r.PaymentInfo.Method = strings.TrimSpace(r.PaymentInfo.Method)
}

// reconciles проверяет total == subtotal + shipping + tax
func (r *PlaceOrderRequest) reconciles() bool {
	return r.Subtotal.Add(r.Shipping.Decimal).Add(r.Tax.Decimal).Equal(r.Total.Decimal)
}

// PlaceOrderResult — подтверждение оформленного заказа
type PlaceOrderResult struct {
	Message          string        `json:"message"`
	OrderID          string        `json:"order_id"`
	Order            *models.Order `json:"order"`
	Bill             *models.Bill  `json:"bill"`
	EstimatedArrival string        `json:"estimated_arrival"`
	TrackingNumber   string        `json:"tracking_number"`
}

// IdentifierGenerator выдает номера заказов, счетов и отправлений
type IdentifierGenerator interface {
	OrderID(year int) string
	BillNumber(year int) string
	TrackingNumber() string
	IntN(n int) int
}

// OrderOptions — настраиваемые параметры оформления
type OrderOptions struct {
	IDAttempts      int
	MinDeliveryDays int
	MaxDeliveryDays int
	Now             func() time.Time
}

type OrderService interface {
	PlaceOrder(ctx context.Context, userID int64, req PlaceOrderRequest) (*PlaceOrderResult, error)
}

type orderService struct {
	log       *slog.Logger
	db        *sql.DB
	orderRepo storage.OrderStorage
	billRepo  storage.BillStorage
	ids       IdentifierGenerator
	publisher events.Publisher
	opts      OrderOptions
}

func NewOrderService(
	log *slog.Logger,
	db *sql.DB,
	orderRepo storage.OrderStorage,
	billRepo storage.BillStorage,
	ids IdentifierGenerator,
	publisher events.Publisher,
	opts OrderOptions,
) OrderService {
	if opts.IDAttempts <= 0 {
		opts.IDAttempts = defaultIDAttempts
	}
	if opts.MinDeliveryDays <= 0 {
		opts.MinDeliveryDays = defaultMinDeliveryDays
	}
	if opts.MaxDeliveryDays < opts.MinDeliveryDays {
		opts.MaxDeliveryDays = max(defaultMaxDeliveryDays, opts.MinDeliveryDays)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &orderService{
		log:       log,
		db:        db,
		orderRepo: orderRepo,
		billRepo:  billRepo,
		ids:       ids,
		publisher: publisher,
		opts:      opts,
	}
}

// PlaceOrder валидирует корзину и в одной транзакции создает заказ и счет к нему.
// При коллизии сгенерированных номеров транзакция откатывается и номера генерируются заново.
func (s *orderService) PlaceOrder(ctx context.Context, userID int64, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	const op = "service.OrderService.PlaceOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	if err := req.Validate(); err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			logger.Error("validator failed", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Info("order request rejected", slog.Int("violations", len(verr.Violations)))
		return nil, err
	}

	// итог берем от клиента как есть, расхождение только логируем
	if !req.reconciles() {
		logger.Warn("order total does not reconcile",
			slog.String("subtotal", req.Subtotal.String()),
			slog.String("shipping", req.Shipping.String()),
			slog.String("tax", req.Tax.String()),
			slog.String("total", req.Total.String()),
		)
	}

	var lastErr error
	for attempt := 1; attempt <= s.opts.IDAttempts; attempt++ {
		order, bill, err := s.placeOnce(ctx, logger, userID, req)
		if err == nil {
			logger.Info("order placed successfully",
				slog.String("orderRef", order.OrderRef),
				slog.String("billNumber", bill.BillNumber),
				slog.Int("attempt", attempt),
			)
			s.publishPlaced(ctx, logger, order, bill)

			order.Bill = bill
			return &PlaceOrderResult{
				Message:          "Order placed successfully",
				OrderID:          order.OrderRef,
				Order:            order,
				Bill:             bill,
				EstimatedArrival: order.EstimatedArrival.Format(DateLayout),
				TrackingNumber:   order.TrackingNumber,
			}, nil
		}
		if !errors.Is(err, storage.ErrDuplicateIdentifier) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Warn("identifier collision, regenerating", slog.Int("attempt", attempt), slog.Any("error", err))
		lastErr = err
	}

	logger.Error("identifier attempts exhausted", slog.Int("attempts", s.opts.IDAttempts))
	return nil, &ConflictError{Attempts: s.opts.IDAttempts, Err: lastErr}
}

func (s *orderService) placeOnce(ctx context.Context, logger *slog.Logger, userID int64, req PlaceOrderRequest) (*models.Order, *models.Bill, error) {
	now := s.opts.Now()
	year := now.Year()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	order := s.buildOrder(now, userID, req)
	order.OrderRef = s.ids.OrderID(year)
	order.TrackingNumber = s.ids.TrackingNumber()
	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		rollback(tx, logger)
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, nil, err
	}

	bill := &models.Bill{
		UserID:        userID,
		OrderID:       order.ID,
		BillNumber:    s.ids.BillNumber(year),
		Subtotal:      order.Subtotal,
		ShippingFee:   order.Shipping,
		TaxAmount:     order.Tax,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: order.PaymentMethod,
		// платежного шлюза нет, счет сразу считается оплаченным
		PaymentStatus: models.PaymentStatusPaid,
		BillingDate:   now,
	}
	if err := s.billRepo.CreateBill(ctx, tx, bill); err != nil {
		rollback(tx, logger)
		logger.Error("failed to create bill", slog.Any("error", err))
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return order, bill, nil
}

func (s *orderService) buildOrder(now time.Time, userID int64, req PlaceOrderRequest) *models.Order {
	items := make(models.LineItems, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, models.LineItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price.Decimal,
		})
	}

	return &models.Order{
		UserID:      userID,
		Items:       items,
		Subtotal:    req.Subtotal.Decimal,
		Shipping:    req.Shipping.Decimal,
		Tax:         req.Tax.Decimal,
		TotalAmount: req.Total.Decimal,
		Status:      models.OrderStatusPending,
		ShippingInfo: models.ShippingInfo{
			Name:    req.ShippingInfo.FullName,
			Email:   req.ShippingInfo.Email,
			Phone:   req.ShippingInfo.Phone,
			Address: req.ShippingInfo.Address,
			City:    req.ShippingInfo.City,
			State:   req.ShippingInfo.State,
			Zip:     req.ShippingInfo.ZipCode,
		},
		PaymentMethod:    req.PaymentInfo.Method,
		EstimatedArrival: s.estimateArrival(now),
	}
}

// estimateArrival — сегодня плюс случайное число дней из [min, max], без времени суток
func (s *orderService) estimateArrival(now time.Time) time.Time {
	span := s.opts.MaxDeliveryDays - s.opts.MinDeliveryDays + 1
	days := s.opts.MinDeliveryDays + s.ids.IntN(span)
	y, m, d := now.AddDate(0, 0, days).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// publishPlaced не влияет на результат: заказ уже зафиксирован
func (s *orderService) publishPlaced(ctx context.Context, logger *slog.Logger, order *models.Order, bill *models.Bill) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.PublishOrderPlaced(pubCtx, events.NewOrderPlaced(order, bill, s.opts.Now())); err != nil {
		logger.Error("failed to publish order event", slog.String("orderRef", order.OrderRef), slog.Any("error", err))
	}
}

func rollback(tx *sql.Tx, logger *slog.Logger) {
	if rbErr := tx.Rollback(); rbErr != nil {
		logger.Error("transaction rollback failed", slog.Any("error", rbErr))
	}
}
