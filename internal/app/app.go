package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"rental-backend/internal/config"
	"rental-backend/internal/domain"
	"rental-backend/internal/jobs"
	"rental-backend/internal/lock"
	"rental-backend/internal/logger"
	"rental-backend/internal/repository"
	"rental-backend/internal/repository/memory"
	"rental-backend/internal/repository/postgres"
	"rental-backend/internal/security"
	"rental-backend/internal/service"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Store is what the services need from a persistence backend
type Store struct {
	Tx        repository.TransactionManager
	Customers repository.CustomerRepository
	Products  repository.ProductRepository
	Orders    repository.RentalOrderRepository
	Payments  repository.PaymentRepository
	pinger    interface{ Ping(ctx context.Context) error }
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pinger.Ping(ctx)
}

// App holds the wired services shared by the server and the cronjob runner
type App struct {
	Config    *config.Config
	Store     *Store
	Clock     domain.Clock
	Machine   *domain.OrderMachine
	Tokens    security.TokenManager
	Notifier  service.Notifier
	Customers service.CustomerService
	Products  service.ProductService
	Orders    service.RentalOrderService
	Payments  service.PaymentService
	Jobs      *jobs.JobRunner

	closers []io.Closer
}

// New connects the configured backends and wires every service
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	policy, err := cfg.PricingPolicy()
	if err != nil {
		return nil, err
	}
	a.Clock = domain.SystemClock{Location: cfg.Location()}
	a.Machine = domain.NewOrderMachine(a.Clock, policy)
	logger.Info("Pricing policy", "tax_rate", policy.TaxRate.String(), "late_fee_multiplier", policy.LateFeeMultiplier.String(),
		"timezone", cfg.Location().String())

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	locker, err := a.newLocker(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.SendGrid.APIKey != "" {
		logger.Info("Using SendGrid notifications", "from", cfg.SendGrid.FromEmail)
		a.Notifier = service.NewSendGridNotifier(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName, cfg.SendGrid.OpsEmail)
	} else {
		logger.Info("No SendGrid API key, notifications are logged only")
		a.Notifier = service.NewLogNotifier()
	}

	a.Tokens = security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.AccessTokenTTL())

	ids := service.NewSequenceGenerator()
	s := a.Store
	a.Customers = service.NewCustomerService(s.Tx, s.Customers, s.Orders, ids)
	a.Products = service.NewProductService(s.Tx, s.Products, s.Orders, locker, ids, a.Clock)
	a.Orders = service.NewRentalOrderService(s.Tx, s.Orders, s.Customers, s.Products, a.Machine, locker, ids, a.Notifier)
	a.Payments = service.NewPaymentService(s.Tx, s.Orders, s.Payments, s.Customers, a.Machine, locker, a.Notifier)
	a.Jobs = jobs.NewJobRunner(&jobs.Services{
		Customers: a.Customers,
		Products:  a.Products,
		Orders:    a.Orders,
		Notifier:  a.Notifier,
	}, a.Machine)

	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Storage.Type {
	case StorageMemory:
		logger.Warn("Using in-memory storage; data is lost on restart")
		m := memory.NewStore()
		a.closers = append(a.closers, m)
		a.Store = &Store{
			Tx:        m,
			Customers: m.CustomerRepository,
			Products:  m.ProductRepository,
			Orders:    m.RentalOrderRepository,
			Payments:  m.PaymentRepository,
			pinger:    m,
		}
		return nil

	case StoragePostgres:
		logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
		db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		a.closers = append(a.closers, db)
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}
		logger.Info("Database connection established")

		if cfg.Database.AutoMigrate {
			if err := postgres.RunMigrations(cfg.GetDatabaseConnectionString()); err != nil {
				return err
			}
		}

		p := postgres.NewStore(db)
		a.Store = &Store{
			Tx:        p.TransactionManager,
			Customers: p.CustomerRepository,
			Products:  p.ProductRepository,
			Orders:    p.RentalOrderRepository,
			Payments:  p.PaymentRepository,
			pinger:    p,
		}
		return nil
	}
	return fmt.Errorf("unsupported storage type %q", cfg.Storage.Type)
}

// newLocker returns the redis locker when redis is configured, otherwise an in-process one
func (a *App) newLocker(ctx context.Context) (lock.Locker, error) {
	cfg := a.Config
	if cfg.Redis.Addr == "" {
		logger.Info("Using in-process locks")
		return lock.NewKeyedMutex(), nil
	}
	client, err := lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client)
	logger.Info("Using redis locks", "addr", cfg.Redis.Addr, "ttl", cfg.LockTTL())
	return lock.NewRedisLocker(client, cfg.LockTTL(), cfg.LockRetry()), nil
}

// Close releases connections in reverse order of opening
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logger.Warn("Failed to close resource", "error", err)
		}
	}
	a.closers = nil
}
