package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/domain"
	"rental-backend/internal/lock"
	"rental-backend/internal/pricing"
	"rental-backend/internal/repository/memory"
	"rental-backend/internal/security"
	"rental-backend/internal/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type apiFixture struct {
	handler http.Handler
	tokens  security.TokenManager
	staff   string
	manager string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store := memory.NewStore()
	clock := domain.FixedClock{Day: mustDate("2024-03-01")}
	machine := domain.NewOrderMachine(clock, pricing.DefaultPolicy())
	locker := lock.NewKeyedMutex()
	ids := service.NewSequenceGenerator()
	notifier := service.NewLogNotifier()
	tokens := security.NewTokenManager(testSecret, "rental-backend", time.Hour)

	handler := NewRouter(Dependencies{
		Customers: service.NewCustomerService(store, store.CustomerRepository, store.RentalOrderRepository, ids),
		Products:  service.NewProductService(store, store.ProductRepository, store.RentalOrderRepository, locker, ids, clock),
		Orders: service.NewRentalOrderService(store, store.RentalOrderRepository, store.CustomerRepository,
			store.ProductRepository, machine, locker, ids, notifier),
		Payments: service.NewPaymentService(store, store.RentalOrderRepository, store.PaymentRepository,
			store.CustomerRepository, machine, locker, notifier),
		Tokens:         tokens,
		Store:          store,
		AllowedOrigins: []string{"http://localhost:3000"},
	})

	staff, err := tokens.GenerateAccessToken("clerk", "clerk@example.com", []string{security.RoleStaff})
	require.NoError(t, err)
	manager, err := tokens.GenerateAccessToken("boss", "boss@example.com", []string{security.RoleStaff, security.RoleManager})
	require.NoError(t, err)
	return &apiFixture{handler: handler, tokens: tokens, staff: staff, manager: manager}
}

func (f *apiFixture) do(t *testing.T, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	return decodeBody[errorResponse](t, rec).Error
}

func (f *apiFixture) seed(t *testing.T) (customerID, productID int64) {
	t.Helper()
	rec := f.do(t, f.staff, http.MethodPost, "/api/v1/customers", map[string]any{
		"name": "Jane Doe", "email": "jane@example.com", "phone": "555 123 4567",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	customer := decodeBody[domain.Customer](t, rec)
	assert.Equal(t, "CUST0001", customer.Code)

	rec = f.do(t, f.staff, http.MethodPost, "/api/v1/products", map[string]any{
		"name": "Concrete Mixer", "price_per_day": "100",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decodeBody[domain.Product](t, rec)
	assert.Equal(t, "PROD0001", product.Code)
	return customer.ID, product.ID
}

func (f *apiFixture) createOrder(t *testing.T, customerID, productID int64, start, end string) domain.RentalOrder {
	t.Helper()
	rec := f.do(t, f.staff, http.MethodPost, "/api/v1/orders", map[string]any{
		"customer_id": customerID, "product_id": productID, "start_date": start, "end_date": end,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[domain.RentalOrder](t, rec)
}

func TestRouter_PublicEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, "", http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = f.do(t, "", http.MethodGet, "/api/v1/customers", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, codeUnauthorized, errorOf(t, rec).Code)

	rec = f.do(t, "garbage", http.MethodGet, "/api/v1/customers", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	f.do(t, f.staff, http.MethodGet, "/api/v1/customers", nil)
	rec = f.do(t, "", http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rental_http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/api/v1/customers"`)
}

func TestRouter_OrderLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	customerID, productID := f.seed(t)

	order := f.createOrder(t, customerID, productID, "2024-03-05", "2024-03-08")
	assert.Equal(t, "RO0001", order.OrderNumber)
	assert.Equal(t, domain.OrderStateDraft, order.State)
	assert.Equal(t, "clerk", order.ResponsibleUser)
	assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(440)))

	rival := f.createOrder(t, customerID, productID, "2024-03-07", "2024-03-10")

	rec := f.do(t, f.staff, http.MethodPost, "/api/v1/orders/1/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.OrderStateConfirmed, decodeBody[domain.RentalOrder](t, rec).State)

	t.Run("overlapping confirmation conflicts", func(t *testing.T) {
		rec := f.do(t, f.staff, http.MethodPost, "/api/v1/orders/2/confirm", nil)
		require.Equal(t, http.StatusConflict, rec.Code)
		body := errorOf(t, rec)
		assert.Equal(t, codeConflict, body.Code)
		assert.Equal(t, []any{"RO0001"}, body.Details["order_numbers"])
		assert.NotZero(t, rival.ID)
	})

	t.Run("action from the wrong state", func(t *testing.T) {
		rec := f.do(t, f.staff, http.MethodPost, "/api/v1/orders/2/return", nil)
		require.Equal(t, http.StatusConflict, rec.Code)
		body := errorOf(t, rec)
		assert.Equal(t, codeInvalidState, body.Code)
		assert.Equal(t, "draft", body.Details["current"])
	})

	t.Run("unknown action", func(t *testing.T) {
		rec := f.do(t, f.staff, http.MethodPost, "/api/v1/orders/1/teleport", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("payments", func(t *testing.T) {
		rec := f.do(t, f.staff, http.MethodPost, "/api/v1/orders/1/payments", map[string]any{"amount": "140", "method": "credit_card"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		resp := decodeBody[paymentResponse](t, rec)
		assert.Equal(t, domain.PaymentStatusPartial, resp.Order.PaymentStatus)
		assert.True(t, resp.Order.RemainingAmount.Equal(decimal.NewFromInt(300)))

		rec = f.do(t, f.staff, http.MethodPost, "/api/v1/orders/1/payments", map[string]any{"amount": "1000"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "amount", errorOf(t, rec).Details["field"])

		rec = f.do(t, f.staff, http.MethodGet, "/api/v1/orders/1/payments", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		list := decodeBody[listResponse[domain.Payment]](t, rec)
		assert.Equal(t, int32(1), list.TotalCount)
	})

	rec = f.do(t, f.staff, http.MethodGet, "/api/v1/orders/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	details := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "RO0001 - Jane Doe (Concrete Mixer)", details["display_name"])

	rec = f.do(t, f.staff, http.MethodGet, "/api/v1/products/1/availability?start=2024-03-06&end=2024-03-12", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	avail := decodeBody[availabilityResponse](t, rec)
	assert.False(t, avail.Available)
	require.Len(t, avail.Conflicts, 1)

	rec = f.do(t, f.staff, http.MethodGet, "/api/v1/orders?state=confirmed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), decodeBody[listResponse[domain.RentalOrder]](t, rec).TotalCount)

	rec = f.do(t, f.staff, http.MethodGet, "/api/v1/orders?state=lost", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRouter_UpdateOrder(t *testing.T) {
	f := newAPIFixture(t)
	customerID, productID := f.seed(t)
	f.createOrder(t, customerID, productID, "2024-03-05", "2024-03-08")

	rec := f.do(t, f.staff, http.MethodPatch, "/api/v1/orders/1", map[string]any{"end_date": "2024-03-09", "notes": "gate code 4411"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	order := decodeBody[domain.RentalOrder](t, rec)
	assert.Equal(t, 5, order.RentalDays)
	assert.Equal(t, "gate code 4411", order.Notes)

	rec = f.do(t, f.staff, http.MethodPatch, "/api/v1/orders/1", map[string]any{"end_date": "03/09/2024"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, errorOf(t, rec).Details["fields"], "end_date")

	rec = f.do(t, f.staff, http.MethodPatch, "/api/v1/orders/1", map[string]any{"end_date": "2024-03-01"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRouter_RequestErrors(t *testing.T) {
	f := newAPIFixture(t)
	customerID, _ := f.seed(t)

	tests := []struct {
		name   string
		token  string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"malformed json", f.staff, http.MethodPost, "/api/v1/customers", `{"name":`, http.StatusBadRequest, codeBadRequest},
		{"unknown field", f.staff, http.MethodPost, "/api/v1/customers", `{"nickname":"J"}`, http.StatusBadRequest, codeBadRequest},
		{"invalid email", f.staff, http.MethodPost, "/api/v1/customers",
			map[string]any{"name": "J", "email": "nope", "phone": "5551234567"}, http.StatusUnprocessableEntity, codeValidation},
		{"short phone", f.staff, http.MethodPost, "/api/v1/customers",
			map[string]any{"name": "J", "email": "j@example.com", "phone": "123"}, http.StatusUnprocessableEntity, codeValidation},
		{"zero price", f.staff, http.MethodPost, "/api/v1/products",
			map[string]any{"name": "Drill", "price_per_day": "0"}, http.StatusUnprocessableEntity, codeValidation},
		{"missing customer", f.staff, http.MethodGet, "/api/v1/customers/99", nil, http.StatusNotFound, codeNotFound},
		{"order for missing product", f.staff, http.MethodPost, "/api/v1/orders",
			map[string]any{"customer_id": customerID, "product_id": 42, "start_date": "2024-03-05", "end_date": "2024-03-06"},
			http.StatusNotFound, codeNotFound},
		{"staff cannot delete", f.staff, http.MethodDelete, "/api/v1/customers/1", nil, http.StatusForbidden, codeForbidden},
		{"availability without dates", f.staff, http.MethodGet, "/api/v1/products/1/availability", nil, http.StatusUnprocessableEntity, codeValidation},
		{"rented is not a manual status", f.staff, http.MethodPut, "/api/v1/products/1/status",
			map[string]any{"status": "rented"}, http.StatusUnprocessableEntity, codeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.token, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, errorOf(t, rec).Code)
		})
	}

	rec := f.do(t, f.manager, http.MethodDelete, "/api/v1/customers/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func mustDate(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
