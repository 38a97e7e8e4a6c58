package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"rental-backend/internal/pricing"
)

type ProductStatus string

const (
	ProductStatusAvailable   ProductStatus = "available"
	ProductStatusRented      ProductStatus = "rented"
	ProductStatusMaintenance ProductStatus = "maintenance"
	ProductStatusDamaged     ProductStatus = "damaged"
	ProductStatusRetired     ProductStatus = "retired"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusAvailable, ProductStatusRented, ProductStatusMaintenance, ProductStatusDamaged, ProductStatusRetired:
		return true
	}
	return false
}

type ProductCondition string

const (
	ProductConditionExcellent ProductCondition = "excellent"
	ProductConditionGood      ProductCondition = "good"
	ProductConditionFair      ProductCondition = "fair"
	ProductConditionPoor      ProductCondition = "poor"
)

const (
	DefaultMaintenanceIntervalDays = 365
	DefaultMinRentalDays           = 1
	DefaultMaxRentalDays           = 365
)

var (
	weeklyDiscount  = decimal.RequireFromString("0.85")
	monthlyDiscount = decimal.RequireFromString("0.75")
)

type Product struct {
	ID           int64  `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Brand        string `json:"brand,omitempty"`
	Model        string `json:"model,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`

	PricePerDay         decimal.Decimal `json:"price_per_day"`
	WeekendPrice        decimal.Decimal `json:"weekend_price"`
	HolidayPrice        decimal.Decimal `json:"holiday_price"`
	SecurityDeposit     decimal.Decimal `json:"security_deposit"`
	InsuranceRequired   bool            `json:"insurance_required"`
	InsuranceCostPerDay decimal.Decimal `json:"insurance_cost_per_day"`

	WeightKg         float64 `json:"weight_kg,omitempty"`
	Dimensions       string  `json:"dimensions,omitempty"`
	Color            string  `json:"color,omitempty"`
	YearManufactured int     `json:"year_manufactured,omitempty"`

	Active    bool             `json:"active"`
	Location  string           `json:"location,omitempty"`
	Condition ProductCondition `json:"condition"`

	LastMaintenanceDate     *time.Time `json:"last_maintenance_date,omitempty"`
	NextMaintenanceDate     *time.Time `json:"next_maintenance_date,omitempty"`
	MaintenanceIntervalDays int        `json:"maintenance_interval_days"`

	PurchaseDate   *time.Time      `json:"purchase_date,omitempty"`
	PurchasePrice  decimal.Decimal `json:"purchase_price"`
	Supplier       string          `json:"supplier,omitempty"`
	WarrantyExpiry *time.Time      `json:"warranty_expiry,omitempty"`

	MinRentalDays      int `json:"min_rental_days"`
	MaxRentalDays      int `json:"max_rental_days"`
	AdvanceBookingDays int `json:"advance_booking_days"`

	SetupInstructions  string `json:"setup_instructions,omitempty"`
	SafetyInstructions string `json:"safety_instructions,omitempty"`
	ReturnInstructions string `json:"return_instructions,omitempty"`
	InternalNotes      string `json:"internal_notes,omitempty"`

	Status    ProductStatus `json:"status"`
	CreatedOn time.Time     `json:"created_on"`
}

// NewProduct returns an available product with the default booking limits
func NewProduct(name string, pricePerDay decimal.Decimal) *Product {
	return &Product{
		Name:                    name,
		PricePerDay:             pricePerDay,
		Active:                  true,
		Condition:               ProductConditionExcellent,
		MaintenanceIntervalDays: DefaultMaintenanceIntervalDays,
		MinRentalDays:           DefaultMinRentalDays,
		MaxRentalDays:           DefaultMaxRentalDays,
		Status:                  ProductStatusAvailable,
	}
}

// Validate checks pricing and rental-day bounds
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("name", "product name is required")
	}
	if !p.PricePerDay.IsPositive() {
		return NewValidationError("price_per_day", "price per day must be greater than 0")
	}
	if p.SecurityDeposit.IsNegative() {
		return NewValidationError("security_deposit", "security deposit cannot be negative")
	}
	if p.InsuranceCostPerDay.IsNegative() {
		return NewValidationError("insurance_cost_per_day", "insurance cost cannot be negative")
	}
	if p.MinRentalDays <= 0 {
		return NewValidationError("min_rental_days", "minimum rental days must be at least 1")
	}
	if p.MaxRentalDays < p.MinRentalDays {
		return NewValidationError("max_rental_days", "maximum rental days must be greater than minimum rental days")
	}
	if !p.Status.Valid() {
		return NewValidationError("status", fmt.Sprintf("unknown product status %q", p.Status))
	}
	return nil
}

// PricePerWeek applies the 15% weekly discount
func (p *Product) PricePerWeek() decimal.Decimal {
	return p.PricePerDay.Mul(decimal.NewFromInt(7)).Mul(weeklyDiscount)
}

// PricePerMonth applies the 25% monthly discount over 30 days
func (p *Product) PricePerMonth() decimal.Decimal {
	return p.PricePerDay.Mul(decimal.NewFromInt(30)).Mul(monthlyDiscount)
}

// ScheduleNextMaintenance derives the next maintenance date from the last one
func (p *Product) ScheduleNextMaintenance() {
	if p.LastMaintenanceDate == nil || p.MaintenanceIntervalDays <= 0 {
		return
	}
	next := DateOf(*p.LastMaintenanceDate).AddDate(0, 0, p.MaintenanceIntervalDays)
	p.NextMaintenanceDate = &next
}

// MaintenanceDue reports whether the next maintenance date is today or earlier
func (p *Product) MaintenanceDue(today time.Time) bool {
	return p.NextMaintenanceDate != nil && !DateOf(*p.NextMaintenanceDate).After(DateOf(today))
}

// SetStatus is the external status change. Only rental orders move a product into or out of
// rented, so a rented product is locked here.
func (p *Product) SetStatus(target ProductStatus) error {
	if !target.Valid() {
		return NewValidationError("status", fmt.Sprintf("unknown product status %q", target))
	}
	if target == ProductStatusRented {
		return NewValidationError("status", "products become rented only by confirming a rental order")
	}
	if p.Status == ProductStatusRented {
		if target == ProductStatusMaintenance {
			return NewValidationError("status", "cannot set rented product to maintenance")
		}
		return NewValidationError("status", fmt.Sprintf("cannot set rented product to %s while an order is active", target))
	}
	p.Status = target
	return nil
}

// applyOrderAction is the product side of an order transition
func (p *Product) applyOrderAction(action Action, previous OrderState) {
	switch action {
	case ActionConfirm:
		p.Status = ProductStatusRented
	case ActionDone:
		p.Status = ProductStatusAvailable
	case ActionCancel:
		if p.Status == ProductStatusRented && previous.HoldsProduct() {
			p.Status = ProductStatusAvailable
		}
	}
}

// CheckAvailability reports whether no confirmed or ongoing order on this product overlaps the range
func (p *Product) CheckAvailability(orders []RentalOrder, start, end time.Time) bool {
	return len(FindConflicts(orders, p.ID, start, end, 0)) == 0
}

func (p *Product) DisplayName() string {
	name := p.Name
	if p.Code != "" {
		name = fmt.Sprintf("[%s] %s", p.Code, name)
	}
	if p.Status != ProductStatusAvailable {
		name = fmt.Sprintf("%s (%s)", name, strings.ToUpper(string(p.Status[:1]))+string(p.Status[1:]))
	}
	return name
}

type ProductStats struct {
	RentalCount     int             `json:"rental_count"`
	TotalRentalDays int             `json:"total_rental_days"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	UtilizationRate decimal.Decimal `json:"utilization_rate"`
}

// ComputeProductStats aggregates completed orders. Utilization is rental days over days owned, in percent.
func ComputeProductStats(p *Product, orders []RentalOrder, today time.Time) ProductStats {
	stats := ProductStats{TotalRevenue: decimal.Zero, UtilizationRate: decimal.Zero}
	for i := range orders {
		o := &orders[i]
		if o.ProductID != p.ID || o.State != OrderStateDone {
			continue
		}
		stats.RentalCount++
		stats.TotalRentalDays += rentalDaysOf(o)
		stats.TotalRevenue = stats.TotalRevenue.Add(o.TotalPrice)
	}

	if p.PurchaseDate != nil {
		owned := pricing.DaysBetween(*p.PurchaseDate, today)
		if owned > 0 {
			stats.UtilizationRate = decimal.NewFromInt(int64(stats.TotalRentalDays)).
				Div(decimal.NewFromInt(int64(owned))).
				Mul(decimal.NewFromInt(100))
		}
	}
	return stats
}
