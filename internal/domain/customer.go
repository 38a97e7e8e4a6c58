package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CustomerType string

const (
	CustomerTypeIndividual CustomerType = "individual"
	CustomerTypeCompany    CustomerType = "company"
)

const (
	MinRating     = 1
	MaxRating     = 5
	DefaultRating = 3

	minPhoneDigits = 8
)

var (
	emailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneSeparator = regexp.MustCompile(`[\s\-()]`)
)

type Customer struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	Address     string          `json:"address,omitempty"`
	City        string          `json:"city,omitempty"`
	State       string          `json:"state,omitempty"`
	ZipCode     string          `json:"zip_code,omitempty"`
	Country     string          `json:"country,omitempty"`
	Type        CustomerType    `json:"type"`
	CompanyName string          `json:"company_name,omitempty"`
	TaxID       string          `json:"tax_id,omitempty"`
	Active      bool            `json:"active"`
	Notes       string          `json:"notes,omitempty"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	Rating      int             `json:"rating"`
	CreatedOn   time.Time       `json:"created_on"`
}

// NewCustomer returns a customer with the defaults applied
func NewCustomer(name, email, phone string) *Customer {
	return &Customer{
		Name:   name,
		Email:  email,
		Phone:  phone,
		Type:   CustomerTypeIndividual,
		Active: true,
		Rating: DefaultRating,
	}
}

// Validate checks contact details, classification, credit limit and rating
func (c *Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("name", "customer name is required")
	}
	if c.Email == "" {
		return NewValidationError("email", "email is required")
	}
	if !emailPattern.MatchString(c.Email) {
		return NewValidationError("email", "invalid email format")
	}
	if c.Phone == "" {
		return NewValidationError("phone", "phone is required")
	}
	if !ValidPhone(c.Phone) {
		return NewValidationError("phone", "phone number must contain at least 8 digits")
	}
	switch c.Type {
	case CustomerTypeIndividual, CustomerTypeCompany:
	default:
		return NewValidationError("type", fmt.Sprintf("unknown customer type %q", c.Type))
	}
	if c.CreditLimit.IsNegative() {
		return NewValidationError("credit_limit", "credit limit cannot be negative")
	}
	if c.Rating < MinRating || c.Rating > MaxRating {
		return NewValidationError("rating", fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating))
	}
	return nil
}

// ValidPhone strips spaces, dashes and parentheses and requires at least 8 digits
func ValidPhone(phone string) bool {
	clean := phoneSeparator.ReplaceAllString(phone, "")
	if len(clean) < minPhoneDigits {
		return false
	}
	for _, r := range clean {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (c *Customer) DisplayName() string {
	if c.Code == "" {
		return c.Name
	}
	return fmt.Sprintf("[%s] %s", c.Code, c.Name)
}

type CustomerStats struct {
	RentalCount    int             `json:"rental_count"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	LastRentalDate *time.Time      `json:"last_rental_date,omitempty"`
}

// ComputeCustomerStats aggregates the customer's confirmed and done orders
func ComputeCustomerStats(orders []RentalOrder) CustomerStats {
	stats := CustomerStats{TotalSpent: decimal.Zero}
	for i := range orders {
		o := &orders[i]
		if o.State != OrderStateConfirmed && o.State != OrderStateDone {
			continue
		}
		stats.RentalCount++
		stats.TotalSpent = stats.TotalSpent.Add(o.TotalPrice)
		if stats.LastRentalDate == nil || o.StartDate.After(*stats.LastRentalDate) {
			start := o.StartDate
			stats.LastRentalDate = &start
		}
	}
	return stats
}
