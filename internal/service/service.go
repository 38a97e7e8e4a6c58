package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"rental-backend/internal/domain"
	"rental-backend/internal/logger"
	"rental-backend/internal/repository"
)

type CustomerService interface {
	CreateCustomer(ctx context.Context, customer *domain.Customer) error
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer *domain.Customer) error
	DeleteCustomer(ctx context.Context, id int64) error
	ListCustomers(ctx context.Context, filter repository.CustomerFilter) ([]domain.Customer, int32, error)
	GetCustomerStats(ctx context.Context, id int64) (*domain.CustomerStats, error)
}

type ProductService interface {
	CreateProduct(ctx context.Context, product *domain.Product) error
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int32, error)
	SetProductStatus(ctx context.Context, id int64, status domain.ProductStatus) (*domain.Product, error)
	CheckAvailability(ctx context.Context, id int64, start, end time.Time) (bool, []domain.RentalOrder, error)
	GetProductStats(ctx context.Context, id int64) (*domain.ProductStats, error)
	RecordMaintenance(ctx context.Context, id int64, day time.Time) (*domain.Product, error)
	ListMaintenanceDue(ctx context.Context) ([]domain.Product, error)
}

type RentalOrderService interface {
	CreateOrder(ctx context.Context, in domain.NewOrderInput) (*domain.RentalOrder, error)
	GetOrder(ctx context.Context, id int64) (*OrderDetails, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.RentalOrder, int32, error)
	UpdateOrder(ctx context.Context, id int64, patch domain.OrderPatch) (*domain.RentalOrder, error)
	ApplyAction(ctx context.Context, id int64, action domain.Action, opts domain.ApplyOptions) (*domain.RentalOrder, error)
	ListOverdueOrders(ctx context.Context) ([]domain.RentalOrder, error)
}

type PaymentService interface {
	RegisterPayment(ctx context.Context, reg domain.PaymentRegistration) (*domain.Payment, *domain.RentalOrder, error)
	ListPayments(ctx context.Context, orderID int64) ([]domain.Payment, error)
}

// Notifier delivers customer and staff notifications. Delivery failures never roll back the
// operation that triggered them.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, customer *domain.Customer, product *domain.Product, order *domain.RentalOrder) error
	SendOverdueReminder(ctx context.Context, customer *domain.Customer, product *domain.Product, order *domain.RentalOrder, lateFee decimal.Decimal) error
	SendPaymentReceipt(ctx context.Context, customer *domain.Customer, order *domain.RentalOrder, payment *domain.Payment) error
	SendMaintenanceReport(ctx context.Context, products []domain.Product) error
}

// OrderDetails is an order with the names needed to display it
type OrderDetails struct {
	Order            *domain.RentalOrder `json:"order"`
	DisplayName      string              `json:"display_name"`
	CustomerName     string              `json:"customer_name"`
	ProductName      string              `json:"product_name"`
	Overdue          bool                `json:"overdue"`
	ProjectedLateFee decimal.Decimal     `json:"projected_late_fee"`
}

// logFailure logs business rejections at warn and everything else at error
func logFailure(method string, err error, args ...any) {
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrInvalidState) ||
		errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) {
		logger.RejectMethod(method, err, args...)
		return
	}
	logger.ExitMethodWithError(method, err, args...)
}
