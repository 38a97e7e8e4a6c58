package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"rental-backend/internal/domain"
	"rental-backend/internal/repository"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
	repository.CustomerRepository
	repository.ProductRepository
	repository.RentalOrderRepository
	repository.PaymentRepository
	repository.TransactionManager
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                    db,
		CustomerRepository:    NewCustomerRepository(db),
		ProductRepository:     NewProductRepository(db),
		RentalOrderRepository: NewRentalOrderRepository(db),
		PaymentRepository:     NewPaymentRepository(db),
		TransactionManager:    NewTransactionManager(db),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// notFoundOr maps sql.ErrNoRows to a domain not-found error and wraps everything else
func notFoundOr(err error, entity string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(entity, id)
	}
	return errors.Wrapf(err, "query %s %v", entity, id)
}

func checkAffected(res sql.Result, entity string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return domain.NotFound(entity, id)
	}
	return nil
}

func normalizeDates(dates ...*time.Time) {
	for _, d := range dates {
		if d != nil && !d.IsZero() {
			*d = domain.DateOf(*d)
		}
	}
}

func normalizeOptionalDates(dates ...**time.Time) {
	for _, d := range dates {
		if *d != nil {
			v := domain.DateOf(**d)
			*d = &v
		}
	}
}
