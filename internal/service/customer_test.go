package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/domain"
	"rental-backend/internal/repository"
)

func newMockedCustomerService() (CustomerService, *MockCustomerRepo, *MockRentalOrderRepo) {
	customers := new(MockCustomerRepo)
	orders := new(MockRentalOrderRepo)
	tx := &mockTx{customers: customers, orders: orders}
	return NewCustomerService(tx, customers, orders, NewSequenceGenerator()), customers, orders
}

func TestCustomerService_CreateCustomer(t *testing.T) {
	svc, customers, _ := newMockedCustomerService()
	ctx := context.Background()

	customers.On("LastCode", ctx).Return("CUST0041", nil).Once()
	customers.On("Create", ctx, mock.AnythingOfType("*domain.Customer")).Return(nil).Once()

	c := domain.NewCustomer("Acme Builders", "ops@acme.test", "(555) 010-2030")
	require.NoError(t, svc.CreateCustomer(ctx, c))
	assert.Equal(t, "CUST0042", c.Code)
	customers.AssertExpectations(t)

	t.Run("invalid email never reaches the store", func(t *testing.T) {
		bad := domain.NewCustomer("Acme Builders", "not-an-email", "5550102030")
		err := svc.CreateCustomer(ctx, bad)
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "email", verr.Field)
		customers.AssertNumberOfCalls(t, "Create", 1)
	})
}

func TestCustomerService_DeleteCustomer(t *testing.T) {
	ctx := context.Background()
	id := int64(7)
	existing := domain.NewCustomer("Acme Builders", "ops@acme.test", "5550102030")
	existing.ID = id
	withOrders := repository.OrderFilter{CustomerID: &id, Page: 1, PageSize: 1}

	t.Run("without orders", func(t *testing.T) {
		svc, customers, orders := newMockedCustomerService()
		customers.On("GetByID", ctx, id).Return(existing, nil)
		orders.On("List", ctx, withOrders).Return([]domain.RentalOrder{}, int32(0), nil)
		customers.On("Delete", ctx, id).Return(nil)

		require.NoError(t, svc.DeleteCustomer(ctx, id))
		customers.AssertExpectations(t)
		orders.AssertExpectations(t)
	})

	t.Run("with orders", func(t *testing.T) {
		svc, customers, orders := newMockedCustomerService()
		customers.On("GetByID", ctx, id).Return(existing, nil)
		orders.On("List", ctx, withOrders).Return([]domain.RentalOrder{{ID: 1}}, int32(3), nil)

		err := svc.DeleteCustomer(ctx, id)
		assert.True(t, errors.Is(err, domain.ErrValidation))
		customers.AssertNotCalled(t, "Delete", ctx, id)
	})

	t.Run("unknown customer", func(t *testing.T) {
		svc, customers, orders := newMockedCustomerService()
		customers.On("GetByID", ctx, id).Return(nil, domain.NotFound("customer", id))

		err := svc.DeleteCustomer(ctx, id)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		orders.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})
}

func TestCustomerService_GetCustomerStats(t *testing.T) {
	svc, customers, orders := newMockedCustomerService()
	ctx := context.Background()
	id := int64(3)

	customers.On("GetByID", ctx, id).Return(&domain.Customer{ID: id}, nil)
	orders.On("List", ctx, mock.MatchedBy(func(f repository.OrderFilter) bool {
		return f.CustomerID != nil && *f.CustomerID == id && len(f.States) == 2
	})).Return([]domain.RentalOrder{
		{CustomerID: id, State: domain.OrderStateDone, StartDate: mustDate("2024-01-10"), TotalPrice: decimal.NewFromInt(300)},
		{CustomerID: id, State: domain.OrderStateConfirmed, StartDate: mustDate("2024-02-02"), TotalPrice: decimal.NewFromInt(120)},
	}, int32(2), nil)

	stats, err := svc.GetCustomerStats(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.RentalCount)
	assert.True(t, stats.TotalSpent.Equal(decimal.NewFromInt(420)))
	require.NotNil(t, stats.LastRentalDate)
	assert.Equal(t, mustDate("2024-02-02"), *stats.LastRentalDate)
}

func TestCustomerService_UpdateCustomer(t *testing.T) {
	svc, customers, _ := newMockedCustomerService()
	ctx := context.Background()

	c := domain.NewCustomer("Acme Builders", "ops@acme.test", "5550102030")
	c.ID = 9
	customers.On("Update", ctx, c).Return(domain.NotFound("customer", c.ID))
	assert.True(t, errors.Is(svc.UpdateCustomer(ctx, c), domain.ErrNotFound))

	c.Rating = 6
	err := svc.UpdateCustomer(ctx, c)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	customers.AssertNumberOfCalls(t, "Update", 1)
}
