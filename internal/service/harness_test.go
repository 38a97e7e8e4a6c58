package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/domain"
	"rental-backend/internal/lock"
	"rental-backend/internal/pricing"
	"rental-backend/internal/repository/memory"
)

// harness wires every service to one memory store, as cmd/server does with storage type memory
type harness struct {
	store    *memory.Store
	clock    *testClock
	notifier *MockNotifier

	customers CustomerService
	products  ProductService
	orders    RentalOrderService
	payments  PaymentService

	customer *domain.Customer
	product  *domain.Product
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := memory.NewStore()
	clock := newTestClock("2024-03-01")
	machine := domain.NewOrderMachine(clock, pricing.DefaultPolicy())
	locker := lock.NewKeyedMutex()
	ids := NewSequenceGenerator()
	notifier := new(MockNotifier)

	h := &harness{
		store:     store,
		clock:     clock,
		notifier:  notifier,
		customers: NewCustomerService(store, store.CustomerRepository, store.RentalOrderRepository, ids),
		products:  NewProductService(store, store.ProductRepository, store.RentalOrderRepository, locker, ids, clock),
		orders: NewRentalOrderService(store, store.RentalOrderRepository, store.CustomerRepository,
			store.ProductRepository, machine, locker, ids, notifier),
		payments: NewPaymentService(store, store.RentalOrderRepository, store.PaymentRepository,
			store.CustomerRepository, machine, locker, notifier),
	}

	ctx := context.Background()
	h.customer = domain.NewCustomer("Jane Doe", "jane@example.com", "555 123 4567")
	require.NoError(t, h.customers.CreateCustomer(ctx, h.customer))
	h.product = domain.NewProduct("Concrete Mixer", decimal.NewFromInt(100))
	require.NoError(t, h.products.CreateProduct(ctx, h.product))
	return h
}

func (h *harness) allowNotifications() {
	h.notifier.On("SendOrderConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	h.notifier.On("SendPaymentReceipt", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func (h *harness) draft(t *testing.T, start, end string) *domain.RentalOrder {
	t.Helper()
	o, err := h.orders.CreateOrder(context.Background(), domain.NewOrderInput{
		CustomerID: h.customer.ID,
		ProductID:  h.product.ID,
		StartDate:  mustDate(start),
		EndDate:    mustDate(end),
	})
	require.NoError(t, err)
	return o
}

func (h *harness) productStatus(t *testing.T) domain.ProductStatus {
	t.Helper()
	p, err := h.products.GetProduct(context.Background(), h.product.ID)
	require.NoError(t, err)
	return p.Status
}
