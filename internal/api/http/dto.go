package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"rental-backend/internal/domain"
)

const maxBodyBytes = 1 << 20

var errMalformedBody = errors.New("malformed request body")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json field names in validation details
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and runs its validate tags
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return validate.Struct(dst)
}

func parseDate(field, s string) (time.Time, error) {
	t, err := domain.ParseDate(s)
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, err.Error())
	}
	return t, nil
}

func parseOptionalDate(field string, s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := parseDate(field, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type customerRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Email       string          `json:"email" validate:"required,email"`
	Phone       string          `json:"phone" validate:"required"`
	Address     string          `json:"address"`
	City        string          `json:"city"`
	State       string          `json:"state"`
	ZipCode     string          `json:"zip_code"`
	Country     string          `json:"country"`
	Type        string          `json:"type" validate:"omitempty,oneof=individual company"`
	CompanyName string          `json:"company_name"`
	TaxID       string          `json:"tax_id"`
	Active      *bool           `json:"active"`
	Notes       string          `json:"notes"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	Rating      int             `json:"rating" validate:"omitempty,min=1,max=5"`
}

func (req *customerRequest) toCustomer() *domain.Customer {
	c := domain.NewCustomer(req.Name, req.Email, req.Phone)
	c.Address = req.Address
	c.City = req.City
	c.State = req.State
	c.ZipCode = req.ZipCode
	c.Country = req.Country
	if req.Type != "" {
		c.Type = domain.CustomerType(req.Type)
	}
	c.CompanyName = req.CompanyName
	c.TaxID = req.TaxID
	if req.Active != nil {
		c.Active = *req.Active
	}
	c.Notes = req.Notes
	c.CreditLimit = req.CreditLimit
	if req.Rating != 0 {
		c.Rating = req.Rating
	}
	return c
}

type productRequest struct {
	Name                    string          `json:"name" validate:"required,max=200"`
	Description             string          `json:"description"`
	Brand                   string          `json:"brand"`
	Model                   string          `json:"model"`
	SerialNumber            string          `json:"serial_number"`
	PricePerDay             decimal.Decimal `json:"price_per_day"`
	WeekendPrice            decimal.Decimal `json:"weekend_price"`
	HolidayPrice            decimal.Decimal `json:"holiday_price"`
	SecurityDeposit         decimal.Decimal `json:"security_deposit"`
	InsuranceRequired       bool            `json:"insurance_required"`
	InsuranceCostPerDay     decimal.Decimal `json:"insurance_cost_per_day"`
	WeightKg                float64         `json:"weight_kg" validate:"gte=0"`
	Dimensions              string          `json:"dimensions"`
	Color                   string          `json:"color"`
	YearManufactured        int             `json:"year_manufactured" validate:"omitempty,gte=1900"`
	Active                  *bool           `json:"active"`
	Location                string          `json:"location"`
	Condition               string          `json:"condition" validate:"omitempty,oneof=excellent good fair poor"`
	LastMaintenanceDate     *string         `json:"last_maintenance_date" validate:"omitempty,datetime=2006-01-02"`
	MaintenanceIntervalDays *int            `json:"maintenance_interval_days" validate:"omitempty,gte=0"`
	PurchaseDate            *string         `json:"purchase_date" validate:"omitempty,datetime=2006-01-02"`
	PurchasePrice           decimal.Decimal `json:"purchase_price"`
	Supplier                string          `json:"supplier"`
	WarrantyExpiry          *string         `json:"warranty_expiry" validate:"omitempty,datetime=2006-01-02"`
	MinRentalDays           int             `json:"min_rental_days" validate:"gte=0"`
	MaxRentalDays           int             `json:"max_rental_days" validate:"gte=0"`
	AdvanceBookingDays      int             `json:"advance_booking_days" validate:"gte=0"`
	SetupInstructions       string          `json:"setup_instructions"`
	SafetyInstructions      string          `json:"safety_instructions"`
	ReturnInstructions      string          `json:"return_instructions"`
	InternalNotes           string          `json:"internal_notes"`
	Status                  string          `json:"status" validate:"omitempty,oneof=available rented maintenance damaged retired"`
}

func (req *productRequest) toProduct() (*domain.Product, error) {
	p := domain.NewProduct(req.Name, req.PricePerDay)
	p.Description = req.Description
	p.Brand = req.Brand
	p.Model = req.Model
	p.SerialNumber = req.SerialNumber
	p.WeekendPrice = req.WeekendPrice
	p.HolidayPrice = req.HolidayPrice
	p.SecurityDeposit = req.SecurityDeposit
	p.InsuranceRequired = req.InsuranceRequired
	p.InsuranceCostPerDay = req.InsuranceCostPerDay
	p.WeightKg = req.WeightKg
	p.Dimensions = req.Dimensions
	p.Color = req.Color
	p.YearManufactured = req.YearManufactured
	if req.Active != nil {
		p.Active = *req.Active
	}
	p.Location = req.Location
	if req.Condition != "" {
		p.Condition = domain.ProductCondition(req.Condition)
	}
	if req.MaintenanceIntervalDays != nil {
		p.MaintenanceIntervalDays = *req.MaintenanceIntervalDays
	}
	p.PurchasePrice = req.PurchasePrice
	p.Supplier = req.Supplier
	if req.MinRentalDays != 0 {
		p.MinRentalDays = req.MinRentalDays
	}
	if req.MaxRentalDays != 0 {
		p.MaxRentalDays = req.MaxRentalDays
	}
	p.AdvanceBookingDays = req.AdvanceBookingDays
	p.SetupInstructions = req.SetupInstructions
	p.SafetyInstructions = req.SafetyInstructions
	p.ReturnInstructions = req.ReturnInstructions
	p.InternalNotes = req.InternalNotes
	if req.Status != "" {
		p.Status = domain.ProductStatus(req.Status)
	}

	var err error
	if p.LastMaintenanceDate, err = parseOptionalDate("last_maintenance_date", req.LastMaintenanceDate); err != nil {
		return nil, err
	}
	if p.PurchaseDate, err = parseOptionalDate("purchase_date", req.PurchaseDate); err != nil {
		return nil, err
	}
	if p.WarrantyExpiry, err = parseOptionalDate("warranty_expiry", req.WarrantyExpiry); err != nil {
		return nil, err
	}
	return p, nil
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=available rented maintenance damaged retired"`
}

type maintenanceRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

type orderRequest struct {
	CustomerID    int64            `json:"customer_id" validate:"required,gt=0"`
	ProductID     int64            `json:"product_id" validate:"required,gt=0"`
	StartDate     string           `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string           `json:"end_date" validate:"required,datetime=2006-01-02"`
	DamageFee     *decimal.Decimal `json:"damage_fee"`
	Notes         string           `json:"notes"`
	InternalNotes string           `json:"internal_notes"`
}

func (req *orderRequest) toInput(user string) (domain.NewOrderInput, error) {
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return domain.NewOrderInput{}, err
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return domain.NewOrderInput{}, err
	}
	in := domain.NewOrderInput{
		CustomerID:      req.CustomerID,
		ProductID:       req.ProductID,
		StartDate:       start,
		EndDate:         end,
		DamageFee:       decimal.Zero,
		Notes:           req.Notes,
		InternalNotes:   req.InternalNotes,
		ResponsibleUser: user,
	}
	if req.DamageFee != nil {
		in.DamageFee = *req.DamageFee
	}
	return in, nil
}

type orderPatchRequest struct {
	CustomerID      *int64           `json:"customer_id" validate:"omitempty,gt=0"`
	ProductID       *int64           `json:"product_id" validate:"omitempty,gt=0"`
	StartDate       *string          `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate         *string          `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	DamageFee       *decimal.Decimal `json:"damage_fee"`
	PaidAmount      *decimal.Decimal `json:"paid_amount"`
	Notes           *string          `json:"notes"`
	InternalNotes   *string          `json:"internal_notes"`
	ReturnCondition *string          `json:"return_condition"`
}

func (req *orderPatchRequest) toPatch() (domain.OrderPatch, error) {
	patch := domain.OrderPatch{
		CustomerID:      req.CustomerID,
		ProductID:       req.ProductID,
		DamageFee:       req.DamageFee,
		PaidAmount:      req.PaidAmount,
		Notes:           req.Notes,
		InternalNotes:   req.InternalNotes,
		ReturnCondition: req.ReturnCondition,
	}
	var err error
	if patch.StartDate, err = parseOptionalDate("start_date", req.StartDate); err != nil {
		return domain.OrderPatch{}, err
	}
	if patch.EndDate, err = parseOptionalDate("end_date", req.EndDate); err != nil {
		return domain.OrderPatch{}, err
	}
	return patch, nil
}

// actionRequest is the optional body of an order action; only return reads it
type actionRequest struct {
	ReturnCondition string           `json:"return_condition" validate:"max=500"`
	DamageFee       *decimal.Decimal `json:"damage_fee"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Date   *string         `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Method string          `json:"method" validate:"omitempty,oneof=cash bank_transfer credit_card debit_card"`
	Notes  string          `json:"notes" validate:"max=500"`
}

func (req *paymentRequest) toRegistration(orderID int64) (domain.PaymentRegistration, error) {
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		return domain.PaymentRegistration{}, err
	}
	return domain.PaymentRegistration{
		OrderID: orderID,
		Amount:  req.Amount,
		Date:    date,
		Method:  domain.PaymentMethod(req.Method),
		Notes:   req.Notes,
	}, nil
}

type listResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int32 `json:"total_count"`
	Page       int32 `json:"page,omitempty"`
	PageSize   int32 `json:"page_size,omitempty"`
}

func newList[T any](items []T, count, page, size int32) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, TotalCount: count, Page: page, PageSize: size}
}

type availabilityResponse struct {
	Available bool                 `json:"available"`
	Conflicts []domain.RentalOrder `json:"conflicts"`
}

type paymentResponse struct {
	Payment *domain.Payment     `json:"payment"`
	Order   *domain.RentalOrder `json:"order"`
}
