package postgres

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"rental-backend/internal/domain"
	"rental-backend/internal/logger"
	"rental-backend/internal/repository"
)

type paymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `INSERT INTO payments (id, order_id, amount, payment_date, method, notes, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	p.CreatedOn = time.Now()
	logger.DatabaseCall("INSERT", "payments", "orderID", p.OrderID)
	res, err := r.db.ExecContext(ctx, query, p.ID, p.OrderID, p.Amount, p.Date, p.Method, p.Notes, p.CreatedOn)
	if err != nil {
		logger.DatabaseResult("INSERT", 0, err, "orderID", p.OrderID)
		return errors.Wrap(err, "insert payment")
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("INSERT", n, nil, "paymentID", p.ID)
	return nil
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID int64) ([]domain.Payment, error) {
	query := `SELECT id, order_id, amount, payment_date, method, notes, created_on
	          FROM payments WHERE order_id = $1 ORDER BY payment_date, created_on`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "list payments")
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Date, &p.Method, &p.Notes, &p.CreatedOn); err != nil {
			return nil, errors.Wrap(err, "scan payment")
		}
		normalizeDates(&p.Date)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
