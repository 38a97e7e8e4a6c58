package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"rental-backend/internal/domain"
	"rental-backend/internal/logger"
	"rental-backend/internal/repository"
)

const productColumns = `id, code, name, description, brand, model, serial_number, price_per_day, weekend_price,
	holiday_price, security_deposit, insurance_required, insurance_cost_per_day, weight_kg, dimensions, color,
	year_manufactured, active, location, condition, last_maintenance_date, next_maintenance_date,
	maintenance_interval_days, purchase_date, purchase_price, supplier, warranty_expiry, min_rental_days,
	max_rental_days, advance_booking_days, setup_instructions, safety_instructions, return_instructions,
	internal_notes, status, created_on`

type productRepository struct {
	db DBTX
}

func NewProductRepository(db DBTX) repository.ProductRepository {
	return &productRepository{db: db}
}

func scanProduct(row interface{ Scan(...any) error }, p *domain.Product) error {
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Brand, &p.Model, &p.SerialNumber, &p.PricePerDay,
		&p.WeekendPrice, &p.HolidayPrice, &p.SecurityDeposit, &p.InsuranceRequired, &p.InsuranceCostPerDay,
		&p.WeightKg, &p.Dimensions, &p.Color, &p.YearManufactured, &p.Active, &p.Location, &p.Condition,
		&p.LastMaintenanceDate, &p.NextMaintenanceDate, &p.MaintenanceIntervalDays, &p.PurchaseDate,
		&p.PurchasePrice, &p.Supplier, &p.WarrantyExpiry, &p.MinRentalDays, &p.MaxRentalDays,
		&p.AdvanceBookingDays, &p.SetupInstructions, &p.SafetyInstructions, &p.ReturnInstructions,
		&p.InternalNotes, &p.Status, &p.CreatedOn)
	if err != nil {
		return err
	}
	normalizeOptionalDates(&p.LastMaintenanceDate, &p.NextMaintenanceDate, &p.PurchaseDate, &p.WarrantyExpiry)
	return nil
}

func productArgs(p *domain.Product) []any {
	return []any{p.Code, p.Name, p.Description, p.Brand, p.Model, p.SerialNumber, p.PricePerDay, p.WeekendPrice,
		p.HolidayPrice, p.SecurityDeposit, p.InsuranceRequired, p.InsuranceCostPerDay, p.WeightKg, p.Dimensions,
		p.Color, p.YearManufactured, p.Active, p.Location, p.Condition, p.LastMaintenanceDate,
		p.NextMaintenanceDate, p.MaintenanceIntervalDays, p.PurchaseDate, p.PurchasePrice, p.Supplier,
		p.WarrantyExpiry, p.MinRentalDays, p.MaxRentalDays, p.AdvanceBookingDays, p.SetupInstructions,
		p.SafetyInstructions, p.ReturnInstructions, p.InternalNotes, p.Status}
}

func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `INSERT INTO products (code, name, description, brand, model, serial_number, price_per_day, weekend_price,
	          holiday_price, security_deposit, insurance_required, insurance_cost_per_day, weight_kg, dimensions, color,
	          year_manufactured, active, location, condition, last_maintenance_date, next_maintenance_date,
	          maintenance_interval_days, purchase_date, purchase_price, supplier, warranty_expiry, min_rental_days,
	          max_rental_days, advance_booking_days, setup_instructions, safety_instructions, return_instructions,
	          internal_notes, status, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
	          $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35) RETURNING id`
	p.CreatedOn = time.Now()
	args := append(productArgs(p), p.CreatedOn)
	logger.DatabaseCall("INSERT", "products", "code", p.Code)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&p.ID)
	logger.DatabaseResult("INSERT", 1, err, "productID", p.ID)
	return errors.Wrap(err, "insert product")
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	return r.get(ctx, id, "")
}

func (r *productRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *productRepository) get(ctx context.Context, id int64, lock string) (*domain.Product, error) {
	p := &domain.Product{}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1` + lock
	if err := scanProduct(r.db.QueryRowContext(ctx, query, id), p); err != nil {
		return nil, notFoundOr(err, "product", id)
	}
	return p, nil
}

func (r *productRepository) Update(ctx context.Context, p *domain.Product) error {
	query := `UPDATE products SET code=$1, name=$2, description=$3, brand=$4, model=$5, serial_number=$6,
	          price_per_day=$7, weekend_price=$8, holiday_price=$9, security_deposit=$10, insurance_required=$11,
	          insurance_cost_per_day=$12, weight_kg=$13, dimensions=$14, color=$15, year_manufactured=$16,
	          active=$17, location=$18, condition=$19, last_maintenance_date=$20, next_maintenance_date=$21,
	          maintenance_interval_days=$22, purchase_date=$23, purchase_price=$24, supplier=$25,
	          warranty_expiry=$26, min_rental_days=$27, max_rental_days=$28, advance_booking_days=$29,
	          setup_instructions=$30, safety_instructions=$31, return_instructions=$32, internal_notes=$33,
	          status=$34 WHERE id=$35`
	args := append(productArgs(p), p.ID)
	logger.DatabaseCall("UPDATE", "products", "productID", p.ID, "status", p.Status)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "productID", p.ID)
		return errors.Wrap(err, "update product")
	}
	return checkAffected(res, "product", p.ID)
}

func (r *productRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete product")
	}
	return checkAffected(res, "product", id)
}

func (r *productRepository) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, int32, error) {
	where := ` WHERE 1=1`
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.ActiveOnly {
		where += " AND active = TRUE"
	}

	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM products`+where, args...).Scan(&count); err != nil {
		return nil, 0, errors.Wrap(err, "count products")
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY code`
	if f.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, f.PageSize, repository.Offset(f.Page, f.PageSize))
	}

	products, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return products, count, nil
}

func (r *productRepository) ListMaintenanceDue(ctx context.Context, day time.Time) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products
	          WHERE active = TRUE AND status <> 'retired' AND next_maintenance_date IS NOT NULL AND next_maintenance_date <= $1
	          ORDER BY next_maintenance_date`
	return r.query(ctx, query, domain.DateOf(day))
}

func (r *productRepository) LastCode(ctx context.Context) (string, error) {
	return lastCode(ctx, r.db, "products", "code")
}

func (r *productRepository) query(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
