package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"rental-backend/internal/domain"
	"rental-backend/internal/logger"
	"rental-backend/internal/repository"
)

const orderColumns = `id, order_number, customer_id, product_id, start_date, end_date, actual_return_date,
	price_per_day, insurance_required, insurance_cost_per_day, deposit_amount, rental_days, subtotal, tax_amount,
	insurance_fee, late_fee, damage_fee, total_price, paid_amount, remaining_amount, state, payment_status, notes,
	internal_notes, return_condition, responsible_user, created_on, updated_on`

type rentalOrderRepository struct {
	db DBTX
}

func NewRentalOrderRepository(db DBTX) repository.RentalOrderRepository {
	return &rentalOrderRepository{db: db}
}

func scanOrder(row interface{ Scan(...any) error }, o *domain.RentalOrder) error {
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.ProductID, &o.StartDate, &o.EndDate,
		&o.ActualReturnDate, &o.PricePerDay, &o.InsuranceRequired, &o.InsuranceCostPerDay, &o.DepositAmount,
		&o.RentalDays, &o.Subtotal, &o.TaxAmount, &o.InsuranceFee, &o.LateFee, &o.DamageFee, &o.TotalPrice,
		&o.PaidAmount, &o.RemainingAmount, &o.State, &o.PaymentStatus, &o.Notes, &o.InternalNotes,
		&o.ReturnCondition, &o.ResponsibleUser, &o.CreatedOn, &o.UpdatedOn)
	if err != nil {
		return err
	}
	normalizeDates(&o.StartDate, &o.EndDate)
	normalizeOptionalDates(&o.ActualReturnDate)
	return nil
}

func (r *rentalOrderRepository) Create(ctx context.Context, o *domain.RentalOrder) error {
	query := `INSERT INTO rental_orders (order_number, customer_id, product_id, start_date, end_date, actual_return_date,
	          price_per_day, insurance_required, insurance_cost_per_day, deposit_amount, rental_days, subtotal,
	          tax_amount, insurance_fee, late_fee, damage_fee, total_price, paid_amount, remaining_amount, state,
	          payment_status, notes, internal_notes, return_condition, responsible_user, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
	          $21, $22, $23, $24, $25, $26, $27) RETURNING id`
	now := time.Now()
	o.CreatedOn = now
	o.UpdatedOn = now
	logger.DatabaseCall("INSERT", "rental_orders", "orderNumber", o.OrderNumber)
	err := r.db.QueryRowContext(ctx, query, o.OrderNumber, o.CustomerID, o.ProductID, o.StartDate, o.EndDate,
		o.ActualReturnDate, o.PricePerDay, o.InsuranceRequired, o.InsuranceCostPerDay, o.DepositAmount,
		o.RentalDays, o.Subtotal, o.TaxAmount, o.InsuranceFee, o.LateFee, o.DamageFee, o.TotalPrice,
		o.PaidAmount, o.RemainingAmount, o.State, o.PaymentStatus, o.Notes, o.InternalNotes,
		o.ReturnCondition, o.ResponsibleUser, o.CreatedOn, o.UpdatedOn).Scan(&o.ID)
	logger.DatabaseResult("INSERT", 1, err, "orderID", o.ID)
	return errors.Wrap(err, "insert rental order")
}

func (r *rentalOrderRepository) GetByID(ctx context.Context, id int64) (*domain.RentalOrder, error) {
	return r.get(ctx, id, "")
}

func (r *rentalOrderRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.RentalOrder, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *rentalOrderRepository) get(ctx context.Context, id int64, lock string) (*domain.RentalOrder, error) {
	o := &domain.RentalOrder{}
	query := `SELECT ` + orderColumns + ` FROM rental_orders WHERE id = $1` + lock
	if err := scanOrder(r.db.QueryRowContext(ctx, query, id), o); err != nil {
		return nil, notFoundOr(err, "rental order", id)
	}
	return o, nil
}

// Update writes every mutable column. order_number is immutable and never updated.
func (r *rentalOrderRepository) Update(ctx context.Context, o *domain.RentalOrder) error {
	query := `UPDATE rental_orders SET customer_id=$1, product_id=$2, start_date=$3, end_date=$4, actual_return_date=$5,
	          price_per_day=$6, insurance_required=$7, insurance_cost_per_day=$8, deposit_amount=$9, rental_days=$10,
	          subtotal=$11, tax_amount=$12, insurance_fee=$13, late_fee=$14, damage_fee=$15, total_price=$16,
	          paid_amount=$17, remaining_amount=$18, state=$19, payment_status=$20, notes=$21, internal_notes=$22,
	          return_condition=$23, updated_on=$24 WHERE id=$25`
	o.UpdatedOn = time.Now()
	logger.DatabaseCall("UPDATE", "rental_orders", "orderID", o.ID, "state", o.State)
	res, err := r.db.ExecContext(ctx, query, o.CustomerID, o.ProductID, o.StartDate, o.EndDate, o.ActualReturnDate,
		o.PricePerDay, o.InsuranceRequired, o.InsuranceCostPerDay, o.DepositAmount, o.RentalDays,
		o.Subtotal, o.TaxAmount, o.InsuranceFee, o.LateFee, o.DamageFee, o.TotalPrice,
		o.PaidAmount, o.RemainingAmount, o.State, o.PaymentStatus, o.Notes, o.InternalNotes,
		o.ReturnCondition, o.UpdatedOn, o.ID)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "orderID", o.ID)
		return errors.Wrap(err, "update rental order")
	}
	return checkAffected(res, "rental order", o.ID)
}

func (r *rentalOrderRepository) List(ctx context.Context, f repository.OrderFilter) ([]domain.RentalOrder, int32, error) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.CustomerID != nil {
		conds = append(conds, "customer_id = "+arg(*f.CustomerID))
	}
	if f.ProductID != nil {
		conds = append(conds, "product_id = "+arg(*f.ProductID))
	}
	if len(f.States) > 0 {
		placeholders := make([]string, len(f.States))
		for i, s := range f.States {
			placeholders[i] = arg(string(s))
		}
		conds = append(conds, "state IN ("+strings.Join(placeholders, ", ")+")")
	}
	// inclusive overlap: NOT (end < from OR start > to)
	if f.From != nil {
		conds = append(conds, "end_date >= "+arg(domain.DateOf(*f.From)))
	}
	if f.To != nil {
		conds = append(conds, "start_date <= "+arg(domain.DateOf(*f.To)))
	}
	if f.EndBefore != nil {
		conds = append(conds, "end_date < "+arg(domain.DateOf(*f.EndBefore)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM rental_orders`+where, args...).Scan(&count); err != nil {
		return nil, 0, errors.Wrap(err, "count rental orders")
	}

	query := `SELECT ` + orderColumns + ` FROM rental_orders` + where + ` ORDER BY start_date, id`
	if f.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT %s OFFSET %s", arg(f.PageSize), arg(repository.Offset(f.Page, f.PageSize)))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list rental orders")
	}
	defer rows.Close()

	var orders []domain.RentalOrder
	for rows.Next() {
		var o domain.RentalOrder
		if err := scanOrder(rows, &o); err != nil {
			return nil, 0, errors.Wrap(err, "scan rental order")
		}
		orders = append(orders, o)
	}
	return orders, count, rows.Err()
}

func (r *rentalOrderRepository) LastOrderNumber(ctx context.Context) (string, error) {
	return lastCode(ctx, r.db, "rental_orders", "order_number")
}
