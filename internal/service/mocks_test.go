package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"rental-backend/internal/domain"
	"rental-backend/internal/repository"
)

// MockCustomerRepo
type MockCustomerRepo struct {
	mock.Mock
}

func (m *MockCustomerRepo) Create(ctx context.Context, c *domain.Customer) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}
func (m *MockCustomerRepo) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}
func (m *MockCustomerRepo) Update(ctx context.Context, c *domain.Customer) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}
func (m *MockCustomerRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockCustomerRepo) List(ctx context.Context, f repository.CustomerFilter) ([]domain.Customer, int32, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.Customer), args.Get(1).(int32), args.Error(2)
}
func (m *MockCustomerRepo) LastCode(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockRentalOrderRepo
type MockRentalOrderRepo struct {
	mock.Mock
}

func (m *MockRentalOrderRepo) Create(ctx context.Context, o *domain.RentalOrder) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}
func (m *MockRentalOrderRepo) GetByID(ctx context.Context, id int64) (*domain.RentalOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RentalOrder), args.Error(1)
}
func (m *MockRentalOrderRepo) GetByIDForUpdate(ctx context.Context, id int64) (*domain.RentalOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RentalOrder), args.Error(1)
}
func (m *MockRentalOrderRepo) Update(ctx context.Context, o *domain.RentalOrder) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}
func (m *MockRentalOrderRepo) List(ctx context.Context, f repository.OrderFilter) ([]domain.RentalOrder, int32, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.RentalOrder), args.Get(1).(int32), args.Error(2)
}
func (m *MockRentalOrderRepo) LastOrderNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// mockTx runs fn directly against the mocks
type mockTx struct {
	customers *MockCustomerRepo
	orders    *MockRentalOrderRepo
}

func (t *mockTx) Execute(ctx context.Context, fn func(repos repository.RepositoryFactory) error) error {
	return fn(t)
}
func (t *mockTx) NewCustomerRepository() repository.CustomerRepository       { return t.customers }
func (t *mockTx) NewProductRepository() repository.ProductRepository         { return nil }
func (t *mockTx) NewRentalOrderRepository() repository.RentalOrderRepository { return t.orders }
func (t *mockTx) NewPaymentRepository() repository.PaymentRepository         { return nil }

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendOrderConfirmation(ctx context.Context, c *domain.Customer, p *domain.Product, o *domain.RentalOrder) error {
	args := m.Called(ctx, c, p, o)
	return args.Error(0)
}
func (m *MockNotifier) SendOverdueReminder(ctx context.Context, c *domain.Customer, p *domain.Product, o *domain.RentalOrder, lateFee decimal.Decimal) error {
	args := m.Called(ctx, c, p, o, lateFee)
	return args.Error(0)
}
func (m *MockNotifier) SendPaymentReceipt(ctx context.Context, c *domain.Customer, o *domain.RentalOrder, p *domain.Payment) error {
	args := m.Called(ctx, c, o, p)
	return args.Error(0)
}
func (m *MockNotifier) SendMaintenanceReport(ctx context.Context, products []domain.Product) error {
	args := m.Called(ctx, products)
	return args.Error(0)
}

// testClock is a Clock whose day can be moved between calls
type testClock struct {
	mu  sync.Mutex
	day time.Time
}

func newTestClock(day string) *testClock {
	return &testClock{day: mustDate(day)}
}

func (c *testClock) Today() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.day
}

func (c *testClock) Set(day string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.day = mustDate(day)
}

func mustDate(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
