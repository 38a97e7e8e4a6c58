package jobs

import (
	"context"
	"fmt"

	"rental-backend/internal/logger"
	"rental-backend/internal/metrics"
)

// FlagMaintenanceDue reports products whose next maintenance date has arrived to operations
func (jr *JobRunner) FlagMaintenanceDue() error {
	return jr.runWithRecovery(JobFlagMaintenanceDue, func(ctx context.Context) error {
		products, err := jr.services.Products.ListMaintenanceDue(ctx)
		if err != nil {
			return fmt.Errorf("list maintenance due: %w", err)
		}
		metrics.MaintenanceDueProducts.Set(float64(len(products)))

		if len(products) == 0 {
			logger.InfoContext(ctx, "No products due for maintenance")
			return nil
		}
		for i := range products {
			logger.DebugContext(ctx, "Maintenance due",
				"product_id", products[i].ID,
				"code", products[i].Code,
				"next_maintenance_date", products[i].NextMaintenanceDate)
		}
		if err := jr.services.Notifier.SendMaintenanceReport(ctx, products); err != nil {
			return fmt.Errorf("send maintenance report: %w", err)
		}
		logger.InfoContext(ctx, "Maintenance report sent", "count", len(products))
		return nil
	})
}
