package service

import (
	"context"
	"time"

	"rental-backend/internal/domain"
	"rental-backend/internal/lock"
	"rental-backend/internal/logger"
	"rental-backend/internal/repository"
)

type productService struct {
	tm          repository.TransactionManager
	productRepo repository.ProductRepository
	orderRepo   repository.RentalOrderRepository
	locker      lock.Locker
	ids         IdentifierGenerator
	clock       domain.Clock
}

func NewProductService(
	tm repository.TransactionManager,
	productRepo repository.ProductRepository,
	orderRepo repository.RentalOrderRepository,
	locker lock.Locker,
	ids IdentifierGenerator,
	clock domain.Clock,
) ProductService {
	return &productService{
		tm:          tm,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		locker:      locker,
		ids:         ids,
		clock:       clock,
	}
}

func (s *productService) CreateProduct(ctx context.Context, product *domain.Product) error {
	logger.EnterMethod("productService.CreateProduct", "name", product.Name)

	if product.Status == "" {
		product.Status = domain.ProductStatusAvailable
	}
	if product.Status == domain.ProductStatusRented {
		err := domain.NewValidationError("status", "products become rented only by confirming a rental order")
		logFailure("productService.CreateProduct", err)
		return err
	}
	product.ScheduleNextMaintenance()
	if err := product.Validate(); err != nil {
		logFailure("productService.CreateProduct", err)
		return err
	}

	err := s.tm.Execute(ctx, func(repos repository.RepositoryFactory) error {
		code, err := s.ids.NextProductCode(ctx, repos)
		if err != nil {
			return err
		}
		product.Code = code
		return repos.NewProductRepository().Create(ctx, product)
	})
	if err != nil {
		logFailure("productService.CreateProduct", err)
		return err
	}

	logger.InfoContext(ctx, "Product created", "product_id", product.ID, "code", product.Code)
	logger.ExitMethod("productService.CreateProduct", "productID", product.ID)
	return nil
}

func (s *productService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.productRepo.GetByID(ctx, id)
}

// UpdateProduct edits the descriptive and rate fields. Status and code are kept from the stored row;
// status changes go through SetProductStatus and order actions.
func (s *productService) UpdateProduct(ctx context.Context, product *domain.Product) error {
	logger.EnterMethod("productService.UpdateProduct", "productID", product.ID)

	release, err := acquire(ctx, s.locker, lock.ProductKey(product.ID))
	if err != nil {
		logFailure("productService.UpdateProduct", err, "productID", product.ID)
		return err
	}
	defer release()

	err = s.tm.Execute(ctx, func(repos repository.RepositoryFactory) error {
		products := repos.NewProductRepository()
		existing, err := products.GetByIDForUpdate(ctx, product.ID)
		if err != nil {
			return err
		}
		product.Code = existing.Code
		product.Status = existing.Status
		product.ScheduleNextMaintenance()
		if err := product.Validate(); err != nil {
			return err
		}
		return products.Update(ctx, product)
	})
	if err != nil {
		logFailure("productService.UpdateProduct", err, "productID", product.ID)
		return err
	}

	logger.ExitMethod("productService.UpdateProduct", "productID", product.ID)
	return nil
}

func (s *productService) DeleteProduct(ctx context.Context, id int64) error {
	logger.EnterMethod("productService.DeleteProduct", "productID", id)

	release, err := acquire(ctx, s.locker, lock.ProductKey(id))
	if err != nil {
		return err
	}
	defer release()

	err = s.tm.Execute(ctx, func(repos repository.RepositoryFactory) error {
		products := repos.NewProductRepository()
		if _, err := products.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		_, count, err := repos.NewRentalOrderRepository().List(ctx, repository.OrderFilter{ProductID: &id, Page: 1, PageSize: 1})
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.NewValidationError("product_id", "product has rental orders; retire it instead")
		}
		return products.Delete(ctx, id)
	})
	if err != nil {
		logFailure("productService.DeleteProduct", err, "productID", id)
		return err
	}

	logger.InfoContext(ctx, "Product deleted", "product_id", id)
	logger.ExitMethod("productService.DeleteProduct", "productID", id)
	return nil
}

func (s *productService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int32, error) {
	return s.productRepo.List(ctx, filter)
}

// SetProductStatus is the manual status change (maintenance, available, retired)
func (s *productService) SetProductStatus(ctx context.Context, id int64, status domain.ProductStatus) (*domain.Product, error) {
	logger.EnterMethod("productService.SetProductStatus", "productID", id, "status", status)

	release, err := acquire(ctx, s.locker, lock.ProductKey(id))
	if err != nil {
		return nil, err
	}
	defer release()

	var updated *domain.Product
	err = s.tm.Execute(ctx, func(repos repository.RepositoryFactory) error {
		products := repos.NewProductRepository()
		p, err := products.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := p.SetStatus(status); err != nil {
			return err
		}
		if err := products.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		logFailure("productService.SetProductStatus", err, "productID", id)
		return nil, err
	}

	logger.InfoContext(ctx, "Product status changed", "product_id", id, "status", status)
	logger.ExitMethod("productService.SetProductStatus", "productID", id)
	return updated, nil
}

// CheckAvailability reports whether the product is free over [start, end] and lists the blocking orders
func (s *productService) CheckAvailability(ctx context.Context, id int64, start, end time.Time) (bool, []domain.RentalOrder, error) {
	start, end = domain.DateOf(start), domain.DateOf(end)
	if end.Before(start) {
		return false, nil, domain.NewValidationError("end_date", "end date must not be before start date")
	}
	p, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return false, nil, err
	}
	commitments, err := loadCommitments(ctx, s.orderRepo, id, start, end)
	if err != nil {
		return false, nil, err
	}
	conflicts := domain.FindConflicts(commitments, p.ID, start, end, 0)
	return len(conflicts) == 0, conflicts, nil
}

func (s *productService) GetProductStats(ctx context.Context, id int64) (*domain.ProductStats, error) {
	p, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	orders, _, err := s.orderRepo.List(ctx, repository.OrderFilter{
		ProductID: &id,
		States:    []domain.OrderState{domain.OrderStateDone},
	})
	if err != nil {
		return nil, err
	}
	stats := domain.ComputeProductStats(p, orders, s.clock.Today())
	return &stats, nil
}

// RecordMaintenance stamps a completed maintenance and reschedules the next one
func (s *productService) RecordMaintenance(ctx context.Context, id int64, day time.Time) (*domain.Product, error) {
	logger.EnterMethod("productService.RecordMaintenance", "productID", id)

	day = domain.DateOf(day)
	if day.After(s.clock.Today()) {
		return nil, domain.NewValidationError("date", "maintenance date cannot be in the future")
	}

	release, err := acquire(ctx, s.locker, lock.ProductKey(id))
	if err != nil {
		return nil, err
	}
	defer release()

	var updated *domain.Product
	err = s.tm.Execute(ctx, func(repos repository.RepositoryFactory) error {
		products := repos.NewProductRepository()
		p, err := products.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		p.LastMaintenanceDate = &day
		p.ScheduleNextMaintenance()
		if err := products.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		logFailure("productService.RecordMaintenance", err, "productID", id)
		return nil, err
	}

	logger.ExitMethod("productService.RecordMaintenance", "productID", id)
	return updated, nil
}

func (s *productService) ListMaintenanceDue(ctx context.Context) ([]domain.Product, error) {
	return s.productRepo.ListMaintenanceDue(ctx, s.clock.Today())
}
