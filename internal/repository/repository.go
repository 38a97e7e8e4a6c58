package repository

import (
	"context"
	"time"

	"rental-backend/internal/domain"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	Update(ctx context.Context, customer *domain.Customer) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter CustomerFilter) ([]domain.Customer, int32, error)
	// LastCode returns the highest customer code, or "" when none exist
	LastCode(ctx context.Context) (string, error)
}

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	// GetByIDForUpdate locks the product row until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int32, error)
	ListMaintenanceDue(ctx context.Context, day time.Time) ([]domain.Product, error)
	LastCode(ctx context.Context) (string, error)
}

type RentalOrderRepository interface {
	Create(ctx context.Context, order *domain.RentalOrder) error
	GetByID(ctx context.Context, id int64) (*domain.RentalOrder, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.RentalOrder, error)
	Update(ctx context.Context, order *domain.RentalOrder) error
	List(ctx context.Context, filter OrderFilter) ([]domain.RentalOrder, int32, error)
	LastOrderNumber(ctx context.Context) (string, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	ListByOrder(ctx context.Context, orderID int64) ([]domain.Payment, error)
}

type CustomerFilter struct {
	ActiveOnly bool
	Page       int32
	PageSize   int32
}

type ProductFilter struct {
	Status     domain.ProductStatus
	ActiveOnly bool
	Page       int32
	PageSize   int32
}

// OrderFilter selects orders. From/To select orders whose range overlaps [From, To] inclusively.
// A zero PageSize returns every match.
type OrderFilter struct {
	CustomerID *int64
	ProductID  *int64
	States     []domain.OrderState
	From       *time.Time
	To         *time.Time
	// EndBefore selects orders whose end date is strictly before the given day
	EndBefore *time.Time
	Page      int32
	PageSize  int32
}

// Matches applies the filter in memory
func (f OrderFilter) Matches(o *domain.RentalOrder) bool {
	if f.CustomerID != nil && o.CustomerID != *f.CustomerID {
		return false
	}
	if f.ProductID != nil && o.ProductID != *f.ProductID {
		return false
	}
	if len(f.States) > 0 {
		found := false
		for _, s := range f.States {
			if o.State == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && o.EndDate.Before(domain.DateOf(*f.From)) {
		return false
	}
	if f.To != nil && o.StartDate.After(domain.DateOf(*f.To)) {
		return false
	}
	if f.EndBefore != nil && !o.EndDate.Before(domain.DateOf(*f.EndBefore)) {
		return false
	}
	return true
}

// Offset returns the row offset for a 1-based page
func Offset(page, pageSize int32) int32 {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

// TransactionManager runs fn inside one transaction, committing only if fn returns nil
type TransactionManager interface {
	Execute(ctx context.Context, fn func(repos RepositoryFactory) error) error
}

// RepositoryFactory hands out repositories bound to the current transaction
type RepositoryFactory interface {
	NewCustomerRepository() CustomerRepository
	NewProductRepository() ProductRepository
	NewRentalOrderRepository() RentalOrderRepository
	NewPaymentRepository() PaymentRepository
}
