package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rental-backend/internal/app"
	"rental-backend/internal/config"
	"rental-backend/internal/jobs"
	"rental-backend/internal/logger"
	"rental-backend/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'send-overdue-reminders', 'all-daily')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Rental Cronjob Runner...", "log_level", cfg.Log.Level, "timezone", cfg.Timezone)

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialise application", "error", err)
		log.Fatalf("Failed to initialise application: %v", err)
	}
	defer a.Close()

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := runJobOnce(a.Jobs, *runOnce); err != nil {
			a.Close()
			log.Fatalf("Job %s failed: %v", *runOnce, err)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(a.Jobs, cfg.Scheduler, cfg.Location())
	if err != nil {
		a.Close()
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	for _, next := range cronScheduler.NextRuns() {
		logger.Info("Next scheduled run", "at", next)
	}
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) error {
	switch jobName {
	case jobs.JobSendOverdueReminders, jobs.JobFlagMaintenanceDue:
		return jobRunner.Run(jobName)
	case "all-daily":
		return jobRunner.RunAllDailyJobs()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - %s\n", jobs.JobSendOverdueReminders)
		fmt.Printf("  - %s\n", jobs.JobFlagMaintenanceDue)
		fmt.Printf("  - all-daily\n")
		os.Exit(1)
	}
	return nil
}
