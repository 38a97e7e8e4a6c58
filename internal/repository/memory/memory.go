// Package memory is an in-process store used for local development and tests. Transactions are
// serialised and roll back by restoring a snapshot.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rental-backend/internal/domain"
	"rental-backend/internal/repository"
)

type data struct {
	customers map[int64]domain.Customer
	products  map[int64]domain.Product
	orders    map[int64]domain.RentalOrder
	payments  []domain.Payment

	customerSeq int64
	productSeq  int64
	orderSeq    int64
}

func newData() *data {
	return &data{
		customers: map[int64]domain.Customer{},
		products:  map[int64]domain.Product{},
		orders:    map[int64]domain.RentalOrder{},
	}
}

func (d *data) clone() *data {
	c := &data{
		customers:   make(map[int64]domain.Customer, len(d.customers)),
		products:    make(map[int64]domain.Product, len(d.products)),
		orders:      make(map[int64]domain.RentalOrder, len(d.orders)),
		payments:    append([]domain.Payment(nil), d.payments...),
		customerSeq: d.customerSeq,
		productSeq:  d.productSeq,
		orderSeq:    d.orderSeq,
	}
	for k, v := range d.customers {
		c.customers[k] = v
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v
	}
	return c
}

type Store struct {
	mu sync.Mutex
	d  *data

	repository.CustomerRepository
	repository.ProductRepository
	repository.RentalOrderRepository
	repository.PaymentRepository
}

func NewStore() *Store {
	s := &Store{d: newData()}
	f := &factory{s: s}
	s.CustomerRepository = f.NewCustomerRepository()
	s.ProductRepository = f.NewProductRepository()
	s.RentalOrderRepository = f.NewRentalOrderRepository()
	s.PaymentRepository = f.NewPaymentRepository()
	return s
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

// Execute holds the store lock for the whole of fn and restores the snapshot if fn fails
func (s *Store) Execute(ctx context.Context, fn func(repos repository.RepositoryFactory) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	defer func() {
		if r := recover(); r != nil {
			s.d = snapshot
			panic(r)
		}
		if err != nil {
			s.d = snapshot
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&factory{s: s, inTx: true})
}

// factory hands out repositories; inside a transaction the store lock is already held
type factory struct {
	s    *Store
	inTx bool
}

func (f *factory) NewCustomerRepository() repository.CustomerRepository {
	return &customerRepository{f}
}

func (f *factory) NewProductRepository() repository.ProductRepository {
	return &productRepository{f}
}

func (f *factory) NewRentalOrderRepository() repository.RentalOrderRepository {
	return &rentalOrderRepository{f}
}

func (f *factory) NewPaymentRepository() repository.PaymentRepository {
	return &paymentRepository{f}
}

func (f *factory) with(fn func(d *data) error) error {
	if !f.inTx {
		f.s.mu.Lock()
		defer f.s.mu.Unlock()
	}
	return fn(f.s.d)
}

// page slices items for a 1-based page; a zero size returns everything
func page[T any](items []T, pageNum, size int32) []T {
	if size <= 0 {
		return items
	}
	start := int(repository.Offset(pageNum, size))
	if start >= len(items) {
		return nil
	}
	end := start + int(size)
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func lastCode(codes []string) string {
	last := ""
	for _, c := range codes {
		if len(c) > len(last) || (len(c) == len(last) && c > last) {
			last = c
		}
	}
	return last
}

type customerRepository struct{ *factory }

func (r *customerRepository) Create(ctx context.Context, c *domain.Customer) error {
	return r.with(func(d *data) error {
		d.customerSeq++
		c.ID = d.customerSeq
		c.CreatedOn = time.Now()
		d.customers[c.ID] = *c
		return nil
	})
}

func (r *customerRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	var out *domain.Customer
	err := r.with(func(d *data) error {
		c, ok := d.customers[id]
		if !ok {
			return domain.NotFound("customer", id)
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *customerRepository) Update(ctx context.Context, c *domain.Customer) error {
	return r.with(func(d *data) error {
		existing, ok := d.customers[c.ID]
		if !ok {
			return domain.NotFound("customer", c.ID)
		}
		c.Code = existing.Code
		c.CreatedOn = existing.CreatedOn
		d.customers[c.ID] = *c
		return nil
	})
}

func (r *customerRepository) Delete(ctx context.Context, id int64) error {
	return r.with(func(d *data) error {
		if _, ok := d.customers[id]; !ok {
			return domain.NotFound("customer", id)
		}
		delete(d.customers, id)
		return nil
	})
}

func (r *customerRepository) List(ctx context.Context, f repository.CustomerFilter) ([]domain.Customer, int32, error) {
	var out []domain.Customer
	var count int32
	err := r.with(func(d *data) error {
		var all []domain.Customer
		for _, c := range d.customers {
			if f.ActiveOnly && !c.Active {
				continue
			}
			all = append(all, c)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
		count = int32(len(all))
		out = page(all, f.Page, f.PageSize)
		return nil
	})
	return out, count, err
}

func (r *customerRepository) LastCode(ctx context.Context) (string, error) {
	var code string
	err := r.with(func(d *data) error {
		codes := make([]string, 0, len(d.customers))
		for _, c := range d.customers {
			codes = append(codes, c.Code)
		}
		code = lastCode(codes)
		return nil
	})
	return code, err
}

type productRepository struct{ *factory }

func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	return r.with(func(d *data) error {
		d.productSeq++
		p.ID = d.productSeq
		p.CreatedOn = time.Now()
		d.products[p.ID] = *p
		return nil
	})
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var out *domain.Product
	err := r.with(func(d *data) error {
		p, ok := d.products[id]
		if !ok {
			return domain.NotFound("product", id)
		}
		out = &p
		return nil
	})
	return out, err
}

// GetByIDForUpdate is GetByID; the transaction already holds the store lock
func (r *productRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *productRepository) Update(ctx context.Context, p *domain.Product) error {
	return r.with(func(d *data) error {
		existing, ok := d.products[p.ID]
		if !ok {
			return domain.NotFound("product", p.ID)
		}
		p.CreatedOn = existing.CreatedOn
		d.products[p.ID] = *p
		return nil
	})
}

func (r *productRepository) Delete(ctx context.Context, id int64) error {
	return r.with(func(d *data) error {
		if _, ok := d.products[id]; !ok {
			return domain.NotFound("product", id)
		}
		delete(d.products, id)
		return nil
	})
}

func (r *productRepository) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, int32, error) {
	var out []domain.Product
	var count int32
	err := r.with(func(d *data) error {
		var all []domain.Product
		for _, p := range d.products {
			if f.Status != "" && p.Status != f.Status {
				continue
			}
			if f.ActiveOnly && !p.Active {
				continue
			}
			all = append(all, p)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
		count = int32(len(all))
		out = page(all, f.Page, f.PageSize)
		return nil
	})
	return out, count, err
}

func (r *productRepository) ListMaintenanceDue(ctx context.Context, day time.Time) ([]domain.Product, error) {
	var out []domain.Product
	err := r.with(func(d *data) error {
		for _, p := range d.products {
			if p.Active && p.Status != domain.ProductStatusRetired && p.MaintenanceDue(day) {
				out = append(out, p)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].NextMaintenanceDate.Before(*out[j].NextMaintenanceDate) })
		return nil
	})
	return out, err
}

func (r *productRepository) LastCode(ctx context.Context) (string, error) {
	var code string
	err := r.with(func(d *data) error {
		codes := make([]string, 0, len(d.products))
		for _, p := range d.products {
			codes = append(codes, p.Code)
		}
		code = lastCode(codes)
		return nil
	})
	return code, err
}

type rentalOrderRepository struct{ *factory }

func (r *rentalOrderRepository) Create(ctx context.Context, o *domain.RentalOrder) error {
	return r.with(func(d *data) error {
		d.orderSeq++
		o.ID = d.orderSeq
		now := time.Now()
		o.CreatedOn = now
		o.UpdatedOn = now
		d.orders[o.ID] = *o
		return nil
	})
}

func (r *rentalOrderRepository) GetByID(ctx context.Context, id int64) (*domain.RentalOrder, error) {
	var out *domain.RentalOrder
	err := r.with(func(d *data) error {
		o, ok := d.orders[id]
		if !ok {
			return domain.NotFound("rental order", id)
		}
		out = &o
		return nil
	})
	return out, err
}

func (r *rentalOrderRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.RentalOrder, error) {
	return r.GetByID(ctx, id)
}

func (r *rentalOrderRepository) Update(ctx context.Context, o *domain.RentalOrder) error {
	return r.with(func(d *data) error {
		existing, ok := d.orders[o.ID]
		if !ok {
			return domain.NotFound("rental order", o.ID)
		}
		o.OrderNumber = existing.OrderNumber
		o.CreatedOn = existing.CreatedOn
		o.UpdatedOn = time.Now()
		d.orders[o.ID] = *o
		return nil
	})
}

func (r *rentalOrderRepository) List(ctx context.Context, f repository.OrderFilter) ([]domain.RentalOrder, int32, error) {
	var out []domain.RentalOrder
	var count int32
	err := r.with(func(d *data) error {
		var all []domain.RentalOrder
		for _, o := range d.orders {
			if f.Matches(&o) {
				all = append(all, o)
			}
		}
		sort.Slice(all, func(i, j int) bool {
			if !all[i].StartDate.Equal(all[j].StartDate) {
				return all[i].StartDate.Before(all[j].StartDate)
			}
			return all[i].ID < all[j].ID
		})
		count = int32(len(all))
		out = page(all, f.Page, f.PageSize)
		return nil
	})
	return out, count, err
}

func (r *rentalOrderRepository) LastOrderNumber(ctx context.Context) (string, error) {
	var number string
	err := r.with(func(d *data) error {
		numbers := make([]string, 0, len(d.orders))
		for _, o := range d.orders {
			numbers = append(numbers, o.OrderNumber)
		}
		number = lastCode(numbers)
		return nil
	})
	return number, err
}

type paymentRepository struct{ *factory }

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	return r.with(func(d *data) error {
		if _, ok := d.orders[p.OrderID]; !ok {
			return domain.NotFound("rental order", p.OrderID)
		}
		p.CreatedOn = time.Now()
		d.payments = append(d.payments, *p)
		return nil
	})
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID int64) ([]domain.Payment, error) {
	var out []domain.Payment
	err := r.with(func(d *data) error {
		for _, p := range d.payments {
			if p.OrderID == orderID {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}
