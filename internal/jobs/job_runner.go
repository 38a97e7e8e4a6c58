package jobs

import (
	"context"
	"fmt"
	"time"

	"rental-backend/internal/domain"
	"rental-backend/internal/logger"
	"rental-backend/internal/metrics"
	"rental-backend/internal/service"
)

const (
	JobSendOverdueReminders = "send-overdue-reminders"
	JobFlagMaintenanceDue   = "flag-maintenance-due"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	machine  *domain.OrderMachine
	timeout  time.Duration
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Customers service.CustomerService
	Products  service.ProductService
	Orders    service.RentalOrderService
	Notifier  service.Notifier
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, machine *domain.OrderMachine) *JobRunner {
	return &JobRunner{
		services: services,
		machine:  machine,
		timeout:  10 * time.Minute,
	}
}

// runWithRecovery wraps job execution with panic recovery, a deadline and the job metrics
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()
	ctx = logger.WithRequestID(ctx, "job:"+jobName)

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Job panicked", "job", jobName, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
		result := metrics.ResultOK
		if err != nil {
			result = metrics.ResultError
		}
		metrics.JobRuns.WithLabelValues(jobName, result).Inc()
	}()

	logger.InfoContext(ctx, "Starting job", "job", jobName)
	start := time.Now()
	if err = jobFunc(ctx); err != nil {
		logger.ErrorContext(ctx, "Job failed", "job", jobName, "error", err)
		return err
	}
	logger.InfoContext(ctx, "Job completed", "job", jobName, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Run executes one job by name
func (jr *JobRunner) Run(jobName string) error {
	switch jobName {
	case JobSendOverdueReminders:
		return jr.SendOverdueReminders()
	case JobFlagMaintenanceDue:
		return jr.FlagMaintenanceDue()
	}
	return fmt.Errorf("unknown job %q", jobName)
}

// RunAllDailyJobs runs all daily jobs (for manual execution)
func (jr *JobRunner) RunAllDailyJobs() error {
	var failed []string
	for _, name := range []string{JobSendOverdueReminders, JobFlagMaintenanceDue} {
		if err := jr.Run(name); err != nil {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("jobs failed: %v", failed)
	}
	return nil
}
