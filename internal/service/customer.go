package service

import (
	"context"

	"rental-backend/internal/domain"
	"rental-backend/internal/logger"
	"rental-backend/internal/repository"
)

type customerService struct {
	tm           repository.TransactionManager
	customerRepo repository.CustomerRepository
	orderRepo    repository.RentalOrderRepository
	ids          IdentifierGenerator
}

func NewCustomerService(
	tm repository.TransactionManager,
	customerRepo repository.CustomerRepository,
	orderRepo repository.RentalOrderRepository,
	ids IdentifierGenerator,
) CustomerService {
	return &customerService{
		tm:           tm,
		customerRepo: customerRepo,
		orderRepo:    orderRepo,
		ids:          ids,
	}
}

func (s *customerService) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	logger.EnterMethod("customerService.CreateCustomer", "email", customer.Email)

	if err := customer.Validate(); err != nil {
		logFailure("customerService.CreateCustomer", err)
		return err
	}

	err := s.tm.Execute(ctx, func(repos repository.RepositoryFactory) error {
		code, err := s.ids.NextCustomerCode(ctx, repos)
		if err != nil {
			return err
		}
		customer.Code = code
		return repos.NewCustomerRepository().Create(ctx, customer)
	})
	if err != nil {
		logFailure("customerService.CreateCustomer", err)
		return err
	}

	logger.InfoContext(ctx, "Customer created", "customer_id", customer.ID, "code", customer.Code)
	logger.ExitMethod("customerService.CreateCustomer", "customerID", customer.ID)
	return nil
}

func (s *customerService) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.customerRepo.GetByID(ctx, id)
}

func (s *customerService) UpdateCustomer(ctx context.Context, customer *domain.Customer) error {
	logger.EnterMethod("customerService.UpdateCustomer", "customerID", customer.ID)

	if err := customer.Validate(); err != nil {
		logFailure("customerService.UpdateCustomer", err, "customerID", customer.ID)
		return err
	}
	if err := s.customerRepo.Update(ctx, customer); err != nil {
		logFailure("customerService.UpdateCustomer", err, "customerID", customer.ID)
		return err
	}

	logger.ExitMethod("customerService.UpdateCustomer", "customerID", customer.ID)
	return nil
}

// DeleteCustomer refuses to drop a customer that still has orders on record
func (s *customerService) DeleteCustomer(ctx context.Context, id int64) error {
	logger.EnterMethod("customerService.DeleteCustomer", "customerID", id)

	err := s.tm.Execute(ctx, func(repos repository.RepositoryFactory) error {
		customers := repos.NewCustomerRepository()
		if _, err := customers.GetByID(ctx, id); err != nil {
			return err
		}
		_, count, err := repos.NewRentalOrderRepository().List(ctx, repository.OrderFilter{CustomerID: &id, Page: 1, PageSize: 1})
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.NewValidationError("customer_id", "customer has rental orders; deactivate it instead")
		}
		return customers.Delete(ctx, id)
	})
	if err != nil {
		logFailure("customerService.DeleteCustomer", err, "customerID", id)
		return err
	}

	logger.InfoContext(ctx, "Customer deleted", "customer_id", id)
	logger.ExitMethod("customerService.DeleteCustomer", "customerID", id)
	return nil
}

func (s *customerService) ListCustomers(ctx context.Context, filter repository.CustomerFilter) ([]domain.Customer, int32, error) {
	return s.customerRepo.List(ctx, filter)
}

func (s *customerService) GetCustomerStats(ctx context.Context, id int64) (*domain.CustomerStats, error) {
	if _, err := s.customerRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	orders, _, err := s.orderRepo.List(ctx, repository.OrderFilter{
		CustomerID: &id,
		States:     []domain.OrderState{domain.OrderStateConfirmed, domain.OrderStateDone},
	})
	if err != nil {
		return nil, err
	}
	stats := domain.ComputeCustomerStats(orders)
	return &stats, nil
}
