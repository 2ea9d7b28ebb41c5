package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linemk/order-billing/internal/app/handlers"
	"github.com/linemk/order-billing/internal/domain/models"
	"github.com/linemk/order-billing/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/order-billing/internal/lib/identifier"
	"github.com/linemk/order-billing/internal/lib/validate"
	"github.com/linemk/order-billing/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAuthService — фиктивная реализация для тестирования.
type fakeAuthService struct {
	token string
	err   error
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (string, error) {
	return f.token, f.err
}

type fakeOrderService struct {
	res     *service.PlaceOrderResult
	err     error
	gotUser int64
	gotReq  service.PlaceOrderRequest
}

func (f *fakeOrderService) PlaceOrder(ctx context.Context, userID int64, req service.PlaceOrderRequest) (*service.PlaceOrderResult, error) {
	f.gotUser = userID
	f.gotReq = req
	return f.res, f.err
}

type fakeQueryService struct {
	orders []*models.Order
	order  *models.Order
	bills  []*models.Bill
	bill   *models.Bill
	err    error

	gotID  int64
	gotRef string
}

func (f *fakeQueryService) ListOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	return f.orders, f.err
}

func (f *fakeQueryService) GetOrder(ctx context.Context, userID, id int64) (*models.Order, error) {
	f.gotID = id
	return f.order, f.err
}

func (f *fakeQueryService) ListBills(ctx context.Context, userID int64) ([]*models.Bill, error) {
	return f.bills, f.err
}

func (f *fakeQueryService) GetBill(ctx context.Context, userID, id int64) (*models.Bill, error) {
	f.gotID = id
	return f.bill, f.err
}

func (f *fakeQueryService) GetBillByOrder(ctx context.Context, userID int64, orderRef string) (*models.Bill, error) {
	f.gotRef = orderRef
	return f.bill, f.err
}

// withUser кладет userID в контекст так же, как это делает JWT middleware
func withUser(req *http.Request, userID int64) *http.Request {
	ctx := context.WithValue(req.Context(), jwtmiddleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) handlers.ErrorResponse {
	t.Helper()
	var resp handlers.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

func TestAuthHandler_Success(t *testing.T) {
	fakeSvc := &fakeAuthService{token: "test-token"}
	handler := handlers.AuthHandler(testLogger(), fakeSvc)

	reqBody := `{"email": "test@example.com", "password": "password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp handlers.AuthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "test-token", resp.Token)
}

func TestAuthHandler_InvalidJSON(t *testing.T) {
	handler := handlers.AuthHandler(testLogger(), &fakeAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth", bytes.NewBufferString(`{"email": "test@example.com", "password":`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuthHandler_ValidationError(t *testing.T) {
	handler := handlers.AuthHandler(testLogger(), &fakeAuthService{token: "unused"})

	req := httptest.NewRequest(http.MethodPost, "/api/auth", bytes.NewBufferString(`{"email": "bad", "password": "short"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	resp := decodeError(t, rr)
	assert.Contains(t, resp.Errors, "email")
	assert.Contains(t, resp.Errors, "password")
}

func TestAuthHandler_InvalidCredentials(t *testing.T) {
	fakeSvc := &fakeAuthService{err: errors.Join(errors.New("service.AuthService.Login"), service.ErrInvalidCredentials)}
	handler := handlers.AuthHandler(testLogger(), fakeSvc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth", bytes.NewBufferString(`{"email": "test@example.com", "password": "password123"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

const placeBody = `{
	"items": [{"product_id": 1, "product_name": "Citrus Bliss", "quantity": 2, "price": 97.49}],
	"subtotal": 194.98, "shipping": 10.00, "tax": 19.50, "total": 224.48,
	"shippingInfo": {"fullName": "Jane Doe", "email": "jane@example.com", "phone": "555-0100",
		"address": "1 Main St", "city": "Springfield", "state": "IL", "zipCode": "62701"},
	"paymentInfo": {"method": "Credit Card"}
}`

func TestPlaceOrderHandler_Created(t *testing.T) {
	order := &models.Order{ID: 1, OrderRef: "ORD-2025-ABC123", TrackingNumber: "TRKABCDEFGHIJKL"}
	bill := &models.Bill{ID: 1, OrderID: 1, BillNumber: "BILL-2025-ABCD1234", PaymentStatus: models.PaymentStatusPaid}
	order.Bill = bill
	fakeSvc := &fakeOrderService{res: &service.PlaceOrderResult{
		Message:          "Order placed successfully",
		OrderID:          order.OrderRef,
		Order:            order,
		Bill:             bill,
		EstimatedArrival: "2025-03-07",
		TrackingNumber:   order.TrackingNumber,
	}}
	handler := handlers.PlaceOrderHandler(testLogger(), fakeSvc)

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(placeBody)), 42)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, int64(42), fakeSvc.gotUser)
	require.Len(t, fakeSvc.gotReq.Items, 1)
	assert.True(t, fakeSvc.gotReq.Total.Equal(decimal.RequireFromString("224.48")))
	assert.Equal(t, "62701", fakeSvc.gotReq.ShippingInfo.ZipCode)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ORD-2025-ABC123", resp["order_id"])
	assert.Equal(t, "2025-03-07", resp["estimated_arrival"])
	assert.Equal(t, "TRKABCDEFGHIJKL", resp["tracking_number"])
	nested, ok := resp["order"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, nested, "bill")
}

func TestPlaceOrderHandler_Unauthenticated(t *testing.T) {
	handler := handlers.PlaceOrderHandler(testLogger(), &fakeOrderService{})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(placeBody))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestPlaceOrderHandler_MalformedJSON(t *testing.T) {
	handler := handlers.PlaceOrderHandler(testLogger(), &fakeOrderService{})

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(`{"items": [`)), 1)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPlaceOrderHandler_ValidationError(t *testing.T) {
	fakeSvc := &fakeOrderService{err: &service.ValidationError{Violations: []validate.Violation{
		{Field: "items", Message: "items is required"},
		{Field: "shippingInfo.email", Message: "shippingInfo.email must be a valid email address"},
	}}}
	handler := handlers.PlaceOrderHandler(testLogger(), fakeSvc)

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(`{}`)), 1)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	resp := decodeError(t, rr)
	assert.Equal(t, []string{"items is required"}, resp.Errors["items"])
	assert.Len(t, resp.Errors, 2)
}

// заказ с неверным типом поля не доходит до БД, поэтому сервису хватает nil-зависимостей
func newValidatingOrderService() service.OrderService {
	return service.NewOrderService(testLogger(), nil, nil, nil, identifier.New(), nil, service.OrderOptions{})
}

func TestPlaceOrderHandler_WrongFieldTypes(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		fields []string
	}{
		{
			name:   "non-numeric total",
			body:   strings.Replace(placeBody, `"total": 224.48`, `"total": "abc"`, 1),
			fields: []string{"total"},
		},
		{
			name:   "quoted quantity",
			body:   strings.Replace(placeBody, `"quantity": 2`, `"quantity": "2"`, 1),
			fields: []string{"items.quantity", "items[0].quantity"},
		},
		{
			name:   "numeric phone",
			body:   strings.Replace(placeBody, `"phone": "555-0100"`, `"phone": 123`, 1),
			fields: []string{"shippingInfo.phone"},
		},
		{
			name:   "several at once",
			body:   strings.Replace(strings.Replace(placeBody, `"tax": 19.50`, `"tax": [1]`, 1), `"phone": "555-0100"`, `"phone": 123`, 1),
			fields: []string{"tax", "shippingInfo.phone"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NotEqual(t, placeBody, tc.body)
			handler := handlers.PlaceOrderHandler(testLogger(), newValidatingOrderService())

			req := withUser(httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(tc.body)), 1)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			resp := decodeError(t, rr)
			for _, f := range tc.fields {
				assert.Contains(t, resp.Errors, f)
			}
		})
	}
}

func TestPlaceOrderHandler_OversizedInputRejected(t *testing.T) {
	body := strings.Replace(placeBody, `"total": 224.48`, `"total": 1e9`, 1)
	body = strings.Replace(body, `"method": "Credit Card"`, `"method": "`+strings.Repeat("x", 101)+`"`, 1)
	handler := handlers.PlaceOrderHandler(testLogger(), newValidatingOrderService())

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(body)), 1)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	resp := decodeError(t, rr)
	assert.Contains(t, resp.Errors, "total")
	assert.Contains(t, resp.Errors, "paymentInfo.method")
}

func TestAuthHandler_WrongFieldType(t *testing.T) {
	handler := handlers.AuthHandler(testLogger(), &fakeAuthService{token: "unused"})

	req := httptest.NewRequest(http.MethodPost, "/api/auth", bytes.NewBufferString(`{"email": 42, "password": "password123"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	resp := decodeError(t, rr)
	assert.Contains(t, resp.Errors, "email")
}

func TestPlaceOrderHandler_Conflict(t *testing.T) {
	fakeSvc := &fakeOrderService{err: &service.ConflictError{Attempts: 3, Err: errors.New("duplicate identifier")}}
	handler := handlers.PlaceOrderHandler(testLogger(), fakeSvc)

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(placeBody)), 1)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestPlaceOrderHandler_InternalError(t *testing.T) {
	fakeSvc := &fakeOrderService{err: errors.New("db is down")}
	handler := handlers.PlaceOrderHandler(testLogger(), fakeSvc)

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(placeBody)), 1)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	resp := decodeError(t, rr)
	assert.NotContains(t, resp.Message, "db is down")
}

func TestListOrdersHandler_Empty(t *testing.T) {
	handler := handlers.ListOrdersHandler(testLogger(), &fakeQueryService{orders: []*models.Order{}})

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/orders", nil), 1)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"orders":[]}`, rr.Body.String())
}

func TestListOrdersHandler_Success(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	fakeSvc := &fakeQueryService{orders: []*models.Order{
		{ID: 2, OrderRef: "ORD-2025-BBBBBB", CreatedAt: now},
		{ID: 1, OrderRef: "ORD-2025-AAAAAA", CreatedAt: now.Add(-time.Hour)},
	}}
	handler := handlers.ListOrdersHandler(testLogger(), fakeSvc)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/orders", nil), 1)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp handlers.OrdersResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Orders, 2)
	assert.Equal(t, "ORD-2025-BBBBBB", resp.Orders[0].OrderRef)
}

func TestGetOrderHandler_Success(t *testing.T) {
	fakeSvc := &fakeQueryService{order: &models.Order{ID: 7, OrderRef: "ORD-2025-CCCCCC"}}
	handler := handlers.GetOrderHandler(testLogger(), fakeSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/7", nil)
	req = withURLParam(withUser(req, 1), "id", "7")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(7), fakeSvc.gotID)
	var resp handlers.OrderResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ORD-2025-CCCCCC", resp.Order.OrderRef)
}

func TestGetOrderHandler_NotFound(t *testing.T) {
	fakeSvc := &fakeQueryService{err: &service.NotFoundError{Resource: "order", ID: "7"}}
	handler := handlers.GetOrderHandler(testLogger(), fakeSvc)

	req := withURLParam(withUser(httptest.NewRequest(http.MethodGet, "/api/orders/7", nil), 1), "id", "7")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetOrderHandler_NonNumericID(t *testing.T) {
	fakeSvc := &fakeQueryService{}
	handler := handlers.GetOrderHandler(testLogger(), fakeSvc)

	req := withURLParam(withUser(httptest.NewRequest(http.MethodGet, "/api/orders/abc", nil), 1), "id", "abc")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Zero(t, fakeSvc.gotID)
}

func TestListBillsHandler_Success(t *testing.T) {
	fakeSvc := &fakeQueryService{bills: []*models.Bill{{ID: 1, BillNumber: "BILL-2025-AAAAAAAA", Order: &models.Order{ID: 1}}}}
	handler := handlers.ListBillsHandler(testLogger(), fakeSvc)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/bills", nil), 1)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp handlers.BillsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Bills, 1)
	require.NotNil(t, resp.Bills[0].Order)
}

func TestGetBillHandler_NotFound(t *testing.T) {
	fakeSvc := &fakeQueryService{err: &service.NotFoundError{Resource: "bill", ID: "3"}}
	handler := handlers.GetBillHandler(testLogger(), fakeSvc)

	req := withURLParam(withUser(httptest.NewRequest(http.MethodGet, "/api/bills/3", nil), 1), "id", "3")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, int64(3), fakeSvc.gotID)
}

func TestGetBillByOrderHandler_Success(t *testing.T) {
	fakeSvc := &fakeQueryService{bill: &models.Bill{ID: 5, BillNumber: "BILL-2025-AAAAAAAA"}}
	handler := handlers.GetBillByOrderHandler(testLogger(), fakeSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/bills/by-order/ORD-2025-AAAAAA", nil)
	req = withURLParam(withUser(req, 1), "orderId", "ORD-2025-AAAAAA")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ORD-2025-AAAAAA", fakeSvc.gotRef)
	var resp handlers.BillResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "BILL-2025-AAAAAAAA", resp.Bill.BillNumber)
}

type fakePinger struct {
	err error
}

func (p fakePinger) PingContext(ctx context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	handlers.HealthHandler(testLogger(), fakePinger{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	handlers.HealthHandler(testLogger(), fakePinger{err: errors.New("down")}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
