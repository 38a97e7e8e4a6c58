package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"rental-backend/internal/repository"
)

type transactionManager struct {
	db *sql.DB
}

// repositoryFactory binds repositories to one *sql.Tx
type repositoryFactory struct {
	tx *sql.Tx
}

func (f *repositoryFactory) NewCustomerRepository() repository.CustomerRepository {
	return NewCustomerRepository(f.tx)
}

func (f *repositoryFactory) NewProductRepository() repository.ProductRepository {
	return NewProductRepository(f.tx)
}

func (f *repositoryFactory) NewRentalOrderRepository() repository.RentalOrderRepository {
	return NewRentalOrderRepository(f.tx)
}

func (f *repositoryFactory) NewPaymentRepository() repository.PaymentRepository {
	return NewPaymentRepository(f.tx)
}

func NewTransactionManager(db *sql.DB) repository.TransactionManager {
	return &transactionManager{db: db}
}

func (tm *transactionManager) Execute(ctx context.Context, fn func(repos repository.RepositoryFactory) error) error {
	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(&repositoryFactory{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
