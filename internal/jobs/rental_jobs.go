package jobs

import (
	"context"
	"fmt"

	"rental-backend/internal/logger"
	"rental-backend/internal/metrics"
)

// SendOverdueReminders emails every customer whose ongoing rental is past its end date, quoting
// the late fee accrued so far. One failed reminder does not stop the others.
func (jr *JobRunner) SendOverdueReminders() error {
	return jr.runWithRecovery(JobSendOverdueReminders, func(ctx context.Context) error {
		orders, err := jr.services.Orders.ListOverdueOrders(ctx)
		if err != nil {
			return fmt.Errorf("list overdue orders: %w", err)
		}
		metrics.OverdueOrders.Set(float64(len(orders)))

		sent, failed := 0, 0
		for i := range orders {
			order := &orders[i]
			customer, err := jr.services.Customers.GetCustomer(ctx, order.CustomerID)
			if err != nil {
				logger.WarnContext(ctx, "Skipping overdue reminder", "order_id", order.ID, "error", err)
				failed++
				continue
			}
			product, err := jr.services.Products.GetProduct(ctx, order.ProductID)
			if err != nil {
				logger.WarnContext(ctx, "Skipping overdue reminder", "order_id", order.ID, "error", err)
				failed++
				continue
			}

			lateFee := jr.machine.ProjectedLateFee(order)
			if err := jr.services.Notifier.SendOverdueReminder(ctx, customer, product, order, lateFee); err != nil {
				logger.WarnContext(ctx, "Failed to send overdue reminder", "order_id", order.ID, "error", err)
				failed++
				continue
			}
			logger.DebugContext(ctx, "Sent overdue reminder",
				"order_id", order.ID,
				"order_number", order.OrderNumber,
				"end_date", order.EndDate,
				"late_fee", lateFee.String())
			sent++
		}

		logger.InfoContext(ctx, "Overdue reminders processed", "overdue", len(orders), "sent", sent, "failed", failed)
		return nil
	})
}
