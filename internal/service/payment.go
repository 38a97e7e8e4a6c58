package service

import (
	"context"

	"github.com/google/uuid"

	"rental-backend/internal/domain"
	"rental-backend/internal/lock"
	"rental-backend/internal/logger"
	"rental-backend/internal/metrics"
	"rental-backend/internal/repository"
)

type paymentService struct {
	tm           repository.TransactionManager
	orderRepo    repository.RentalOrderRepository
	paymentRepo  repository.PaymentRepository
	customerRepo repository.CustomerRepository
	machine      *domain.OrderMachine
	locker       lock.Locker
	notifier     Notifier
}

func NewPaymentService(
	tm repository.TransactionManager,
	orderRepo repository.RentalOrderRepository,
	paymentRepo repository.PaymentRepository,
	customerRepo repository.CustomerRepository,
	machine *domain.OrderMachine,
	locker lock.Locker,
	notifier Notifier,
) PaymentService {
	return &paymentService{
		tm:           tm,
		orderRepo:    orderRepo,
		paymentRepo:  paymentRepo,
		customerRepo: customerRepo,
		machine:      machine,
		locker:       locker,
		notifier:     notifier,
	}
}

// RegisterPayment records a payment and adds it to the order's paid amount. The remaining amount
// is recomputed from the order read inside the transaction.
func (s *paymentService) RegisterPayment(ctx context.Context, reg domain.PaymentRegistration) (*domain.Payment, *domain.RentalOrder, error) {
	logger.EnterMethod("paymentService.RegisterPayment", "orderID", reg.OrderID, "amount", reg.Amount.String())

	reg.Normalize(s.machine.Today())
	if err := reg.Validate(); err != nil {
		logFailure("paymentService.RegisterPayment", err, "orderID", reg.OrderID)
		return nil, nil, err
	}

	release, err := acquire(ctx, s.locker, lock.OrderKey(reg.OrderID))
	if err != nil {
		logFailure("paymentService.RegisterPayment", err, "orderID", reg.OrderID)
		return nil, nil, err
	}
	defer release()

	var (
		payment *domain.Payment
		updated *domain.RentalOrder
	)
	err = s.tm.Execute(ctx, func(repos repository.RepositoryFactory) error {
		orders := repos.NewRentalOrderRepository()
		order, err := orders.GetByIDForUpdate(ctx, reg.OrderID)
		if err != nil {
			return err
		}
		o, err := s.machine.ApplyPayment(order, reg.Amount)
		if err != nil {
			return err
		}
		p := &domain.Payment{
			ID:      uuid.NewString(),
			OrderID: o.ID,
			Amount:  reg.Amount,
			Date:    domain.DateOf(*reg.Date),
			Method:  reg.Method,
			Notes:   reg.Notes,
		}
		if err := repos.NewPaymentRepository().Create(ctx, p); err != nil {
			return err
		}
		if err := orders.Update(ctx, o); err != nil {
			return err
		}
		payment, updated = p, o
		return nil
	})
	if err != nil {
		logFailure("paymentService.RegisterPayment", err, "orderID", reg.OrderID)
		return nil, nil, err
	}

	metrics.PaymentsRegistered.Inc()
	metrics.PaymentAmount.Add(payment.Amount.InexactFloat64())
	logger.InfoContext(ctx, "Payment registered", "order_id", updated.ID, "payment_id", payment.ID,
		"amount", payment.Amount.String(), "payment_status", updated.PaymentStatus)

	if customer, err := s.customerRepo.GetByID(ctx, updated.CustomerID); err == nil {
		if err := s.notifier.SendPaymentReceipt(ctx, customer, updated, payment); err != nil {
			logger.WarnContext(ctx, "Failed to send payment receipt", "order_id", updated.ID, "error", err)
		}
	}

	logger.ExitMethod("paymentService.RegisterPayment", "orderID", updated.ID)
	return payment, updated, nil
}

func (s *paymentService) ListPayments(ctx context.Context, orderID int64) ([]domain.Payment, error) {
	if _, err := s.orderRepo.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.paymentRepo.ListByOrder(ctx, orderID)
}
