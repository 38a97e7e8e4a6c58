package service

import (
	"context"
	"fmt"
	"time"

	"rental-backend/internal/domain"
	"rental-backend/internal/lock"
	"rental-backend/internal/metrics"
	"rental-backend/internal/repository"
)

// acquire takes key on locker and records the wait
func acquire(ctx context.Context, locker lock.Locker, key string) (func(), error) {
	start := time.Now()
	release, err := locker.Acquire(ctx, key)
	metrics.LockWait.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return release, nil
}

// commitmentStates are the states whose orders block a product's dates
var commitmentStates = []domain.OrderState{domain.OrderStateConfirmed, domain.OrderStateOngoing}

// loadCommitments returns the confirmed and ongoing orders on productID that overlap [start, end]
func loadCommitments(ctx context.Context, orders repository.RentalOrderRepository, productID int64, start, end time.Time) ([]domain.RentalOrder, error) {
	from, to := start, end
	if to.Before(from) {
		from, to = to, from
	}
	commitments, _, err := orders.List(ctx, repository.OrderFilter{
		ProductID: &productID,
		States:    commitmentStates,
		From:      &from,
		To:        &to,
	})
	if err != nil {
		return nil, fmt.Errorf("load commitments for product %d: %w", productID, err)
	}
	return commitments, nil
}

// errProductMoved is returned when an order's product changed between locking and reading it
func errProductMoved(orderID int64) error {
	return fmt.Errorf("order %d was moved to another product while waiting, retry the request: %w", orderID, domain.ErrConflict)
}
