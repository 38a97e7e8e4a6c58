package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"rental-backend/internal/domain"
	"rental-backend/internal/logger"
	"rental-backend/internal/repository"
)

const customerColumns = `id, code, name, email, phone, address, city, state, zip_code, country, customer_type,
	company_name, tax_id, active, notes, credit_limit, rating, created_on`

type customerRepository struct {
	db DBTX
}

func NewCustomerRepository(db DBTX) repository.CustomerRepository {
	return &customerRepository{db: db}
}

func scanCustomer(row interface{ Scan(...any) error }, c *domain.Customer) error {
	return row.Scan(&c.ID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.Address, &c.City, &c.State, &c.ZipCode,
		&c.Country, &c.Type, &c.CompanyName, &c.TaxID, &c.Active, &c.Notes, &c.CreditLimit, &c.Rating, &c.CreatedOn)
}

func (r *customerRepository) Create(ctx context.Context, c *domain.Customer) error {
	query := `INSERT INTO customers (code, name, email, phone, address, city, state, zip_code, country, customer_type,
	          company_name, tax_id, active, notes, credit_limit, rating, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17) RETURNING id`
	c.CreatedOn = time.Now()
	logger.DatabaseCall("INSERT", "customers", "code", c.Code)
	err := r.db.QueryRowContext(ctx, query, c.Code, c.Name, c.Email, c.Phone, c.Address, c.City, c.State, c.ZipCode,
		c.Country, c.Type, c.CompanyName, c.TaxID, c.Active, c.Notes, c.CreditLimit, c.Rating, c.CreatedOn).Scan(&c.ID)
	logger.DatabaseResult("INSERT", 1, err, "customerID", c.ID)
	return errors.Wrap(err, "insert customer")
}

func (r *customerRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	c := &domain.Customer{}
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	if err := scanCustomer(r.db.QueryRowContext(ctx, query, id), c); err != nil {
		return nil, notFoundOr(err, "customer", id)
	}
	return c, nil
}

func (r *customerRepository) Update(ctx context.Context, c *domain.Customer) error {
	query := `UPDATE customers SET name=$1, email=$2, phone=$3, address=$4, city=$5, state=$6, zip_code=$7, country=$8,
	          customer_type=$9, company_name=$10, tax_id=$11, active=$12, notes=$13, credit_limit=$14, rating=$15
	          WHERE id=$16`
	res, err := r.db.ExecContext(ctx, query, c.Name, c.Email, c.Phone, c.Address, c.City, c.State, c.ZipCode, c.Country,
		c.Type, c.CompanyName, c.TaxID, c.Active, c.Notes, c.CreditLimit, c.Rating, c.ID)
	if err != nil {
		return errors.Wrap(err, "update customer")
	}
	return checkAffected(res, "customer", c.ID)
}

func (r *customerRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete customer")
	}
	return checkAffected(res, "customer", id)
}

func (r *customerRepository) List(ctx context.Context, f repository.CustomerFilter) ([]domain.Customer, int32, error) {
	where := ""
	if f.ActiveOnly {
		where = " WHERE active = TRUE"
	}

	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM customers`+where).Scan(&count); err != nil {
		return nil, 0, errors.Wrap(err, "count customers")
	}

	query := `SELECT ` + customerColumns + ` FROM customers` + where + ` ORDER BY code`
	var args []any
	if f.PageSize > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, f.PageSize, repository.Offset(f.Page, f.PageSize))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list customers")
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, 0, errors.Wrap(err, "scan customer")
		}
		customers = append(customers, c)
	}
	return customers, count, rows.Err()
}

func (r *customerRepository) LastCode(ctx context.Context) (string, error) {
	return lastCode(ctx, r.db, "customers", "code")
}

// lastCode reads the highest code in table. Codes share a prefix and fixed-width counter, so
// ordering by length then value yields the newest.
func lastCode(ctx context.Context, db DBTX, table, column string) (string, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY length(%s) DESC, %s DESC LIMIT 1`, column, table, column, column)
	var code string
	err := db.QueryRowContext(ctx, query).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "last %s.%s", table, column)
	}
	return code, nil
}
