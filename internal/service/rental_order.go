package service

import (
	"context"
	"errors"

	"rental-backend/internal/domain"
	"rental-backend/internal/lock"
	"rental-backend/internal/logger"
	"rental-backend/internal/metrics"
	"rental-backend/internal/repository"
)

type rentalOrderService struct {
	tm           repository.TransactionManager
	orderRepo    repository.RentalOrderRepository
	customerRepo repository.CustomerRepository
	productRepo  repository.ProductRepository
	machine      *domain.OrderMachine
	locker       lock.Locker
	ids          IdentifierGenerator
	notifier     Notifier
}

func NewRentalOrderService(
	tm repository.TransactionManager,
	orderRepo repository.RentalOrderRepository,
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
	machine *domain.OrderMachine,
	locker lock.Locker,
	ids IdentifierGenerator,
	notifier Notifier,
) RentalOrderService {
	return &rentalOrderService{
		tm:           tm,
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		productRepo:  productRepo,
		machine:      machine,
		locker:       locker,
		ids:          ids,
		notifier:     notifier,
	}
}

// CreateOrder opens a draft. Drafts never block dates, so no product lock is taken.
func (s *rentalOrderService) CreateOrder(ctx context.Context, in domain.NewOrderInput) (*domain.RentalOrder, error) {
	logger.EnterMethod("rentalOrderService.CreateOrder", "customerID", in.CustomerID, "productID", in.ProductID)

	var created *domain.RentalOrder
	err := s.tm.Execute(ctx, func(repos repository.RepositoryFactory) error {
		if in.CustomerID != 0 {
			if _, err := repos.NewCustomerRepository().GetByID(ctx, in.CustomerID); err != nil {
				return err
			}
		}
		var product *domain.Product
		if in.ProductID != 0 {
			p, err := repos.NewProductRepository().GetByID(ctx, in.ProductID)
			if err != nil {
				return err
			}
			product = p
		}

		number, err := s.ids.NextOrderNumber(ctx, repos)
		if err != nil {
			return err
		}
		in.OrderNumber = number

		order, err := s.machine.NewOrder(in, product, nil)
		if err != nil {
			return err
		}
		if err := repos.NewRentalOrderRepository().Create(ctx, order); err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		logFailure("rentalOrderService.CreateOrder", err)
		return nil, err
	}

	logger.InfoContext(ctx, "Rental order created", "order_id", created.ID, "order_number", created.OrderNumber,
		"product_id", created.ProductID, "total", created.TotalPrice.String())
	logger.ExitMethod("rentalOrderService.CreateOrder", "orderID", created.ID)
	return created, nil
}

func (s *rentalOrderService) GetOrder(ctx context.Context, id int64) (*OrderDetails, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	details := &OrderDetails{
		Order:            order,
		Overdue:          order.IsOverdue(s.machine.Today()),
		ProjectedLateFee: order.LateFee,
	}
	if order.State == domain.OrderStateOngoing {
		details.ProjectedLateFee = s.machine.ProjectedLateFee(order)
	}
	if c, err := s.customerRepo.GetByID(ctx, order.CustomerID); err == nil {
		details.CustomerName = c.Name
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if p, err := s.productRepo.GetByID(ctx, order.ProductID); err == nil {
		details.ProductName = p.Name
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	details.DisplayName = order.DisplayName(details.CustomerName, details.ProductName)
	return details, nil
}

func (s *rentalOrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.RentalOrder, int32, error) {
	for _, st := range filter.States {
		if !st.Valid() {
			return nil, 0, domain.NewValidationError("state", "unknown order state "+string(st))
		}
	}
	return s.orderRepo.List(ctx, filter)
}

// UpdateOrder applies a partial edit under the lock of the order's current product
func (s *rentalOrderService) UpdateOrder(ctx context.Context, id int64, patch domain.OrderPatch) (*domain.RentalOrder, error) {
	logger.EnterMethod("rentalOrderService.UpdateOrder", "orderID", id)

	current, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		logFailure("rentalOrderService.UpdateOrder", err, "orderID", id)
		return nil, err
	}
	release, err := acquire(ctx, s.locker, lock.ProductKey(current.ProductID))
	if err != nil {
		logFailure("rentalOrderService.UpdateOrder", err, "orderID", id)
		return nil, err
	}
	defer release()

	var updated *domain.RentalOrder
	err = s.tm.Execute(ctx, func(repos repository.RepositoryFactory) error {
		orders := repos.NewRentalOrderRepository()
		order, err := orders.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.ProductID != current.ProductID {
			return errProductMoved(id)
		}

		// only drafts can move to another product; the machine reports the rest
		productID := order.ProductID
		if order.State == domain.OrderStateDraft && patch.ProductID != nil && *patch.ProductID != 0 {
			productID = *patch.ProductID
		}
		product, err := repos.NewProductRepository().GetByIDForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		start, end := order.StartDate, order.EndDate
		if patch.StartDate != nil {
			start = domain.DateOf(*patch.StartDate)
		}
		if patch.EndDate != nil {
			end = domain.DateOf(*patch.EndDate)
		}
		commitments, err := loadCommitments(ctx, orders, productID, start, end)
		if err != nil {
			return err
		}

		o, err := s.machine.Update(order, patch, product, commitments)
		if err != nil {
			return err
		}
		if o.CustomerID != order.CustomerID {
			if _, err := repos.NewCustomerRepository().GetByID(ctx, o.CustomerID); err != nil {
				return err
			}
		}
		if err := orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		logFailure("rentalOrderService.UpdateOrder", err, "orderID", id)
		return nil, err
	}

	logger.InfoContext(ctx, "Rental order updated", "order_id", id, "state", updated.State, "total", updated.TotalPrice.String())
	logger.ExitMethod("rentalOrderService.UpdateOrder", "orderID", id)
	return updated, nil
}

// ApplyAction runs one lifecycle action. The order and its product are written in one transaction
// while the product lock is held, so two confirmations of overlapping orders cannot both succeed.
func (s *rentalOrderService) ApplyAction(ctx context.Context, id int64, action domain.Action, opts domain.ApplyOptions) (*domain.RentalOrder, error) {
	logger.EnterMethod("rentalOrderService.ApplyAction", "orderID", id, "action", action)

	current, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.recordAction(action, err)
		logFailure("rentalOrderService.ApplyAction", err, "orderID", id, "action", action)
		return nil, err
	}
	release, err := acquire(ctx, s.locker, lock.ProductKey(current.ProductID))
	if err != nil {
		s.recordAction(action, err)
		logFailure("rentalOrderService.ApplyAction", err, "orderID", id, "action", action)
		return nil, err
	}
	defer release()

	var (
		updated *domain.RentalOrder
		product *domain.Product
	)
	err = s.tm.Execute(ctx, func(repos repository.RepositoryFactory) error {
		orders := repos.NewRentalOrderRepository()
		products := repos.NewProductRepository()

		order, err := orders.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.ProductID != current.ProductID {
			return errProductMoved(id)
		}
		p, err := products.GetByIDForUpdate(ctx, order.ProductID)
		if err != nil {
			return err
		}
		commitments, err := loadCommitments(ctx, orders, order.ProductID, order.StartDate, order.EndDate)
		if err != nil {
			return err
		}

		o, np, err := s.machine.Apply(order, action, p, commitments, opts)
		if err != nil {
			return err
		}
		if err := orders.Update(ctx, o); err != nil {
			return err
		}
		if np.Status != p.Status {
			if err := products.Update(ctx, np); err != nil {
				return err
			}
		}
		updated, product = o, np
		return nil
	})
	s.recordAction(action, err)
	if err != nil {
		logFailure("rentalOrderService.ApplyAction", err, "orderID", id, "action", action)
		return nil, err
	}

	logger.InfoContext(ctx, "Rental order transitioned", "order_id", id, "action", action,
		"state", updated.State, "product_id", product.ID, "product_status", product.Status)

	if action == domain.ActionConfirm {
		s.notifyConfirmed(ctx, updated, product)
	}

	logger.ExitMethod("rentalOrderService.ApplyAction", "orderID", id, "state", updated.State)
	return updated, nil
}

func (s *rentalOrderService) recordAction(action domain.Action, err error) {
	result := metrics.ResultOK
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrNotFound):
		result = metrics.ResultRejected
	default:
		result = metrics.ResultError
	}
	metrics.OrderActions.WithLabelValues(string(action), result).Inc()
}

func (s *rentalOrderService) notifyConfirmed(ctx context.Context, order *domain.RentalOrder, product *domain.Product) {
	customer, err := s.customerRepo.GetByID(ctx, order.CustomerID)
	if err != nil {
		logger.WarnContext(ctx, "Skipping confirmation notice", "order_id", order.ID, "error", err)
		return
	}
	if err := s.notifier.SendOrderConfirmation(ctx, customer, product, order); err != nil {
		logger.WarnContext(ctx, "Failed to send confirmation notice", "order_id", order.ID, "error", err)
	}
}

// ListOverdueOrders returns ongoing orders whose end date has passed
func (s *rentalOrderService) ListOverdueOrders(ctx context.Context) ([]domain.RentalOrder, error) {
	today := s.machine.Today()
	orders, _, err := s.orderRepo.List(ctx, repository.OrderFilter{
		States:    []domain.OrderState{domain.OrderStateOngoing},
		EndBefore: &today,
	})
	return orders, err
}
