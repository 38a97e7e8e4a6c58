package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// PaymentStatusFor is the single status rule shared by every payment path
func PaymentStatusFor(paid, total decimal.Decimal) PaymentStatus {
	switch {
	case paid.IsZero():
		return PaymentStatusUnpaid
	case paid.GreaterThanOrEqual(total):
		return PaymentStatusPaid
	default:
		return PaymentStatusPartial
	}
}

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodDebitCard    PaymentMethod = "debit_card"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCreditCard, PaymentMethodDebitCard:
		return true
	}
	return false
}

// Payment is a registered payment against an order
type Payment struct {
	ID        string          `json:"id"`
	OrderID   int64           `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Method    PaymentMethod   `json:"method"`
	Notes     string          `json:"notes,omitempty"`
	CreatedOn time.Time       `json:"created_on"`
}

// PaymentRegistration is the input of the payment registration flow
type PaymentRegistration struct {
	OrderID int64
	Amount  decimal.Decimal
	Date    *time.Time
	Method  PaymentMethod
	Notes   string
}

// Normalize fills the default method and date
func (r *PaymentRegistration) Normalize(today time.Time) {
	if r.Method == "" {
		r.Method = PaymentMethodCash
	}
	if r.Date == nil {
		d := DateOf(today)
		r.Date = &d
	}
}

func (r *PaymentRegistration) Validate() error {
	if r.OrderID == 0 {
		return NewValidationError("order_id", "order is required")
	}
	if !r.Method.Valid() {
		return NewValidationError("method", fmt.Sprintf("unknown payment method %q", r.Method))
	}
	return nil
}

// ApplyPayment adds amount to the order's paid amount. The remaining amount is derived from the
// current total, never from a cached value.
func (m *OrderMachine) ApplyPayment(order *RentalOrder, amount decimal.Decimal) (*RentalOrder, error) {
	if !amount.IsPositive() {
		return nil, NewValidationError("amount", "payment amount must be greater than 0")
	}
	o := *order
	m.RecomputeDerived(&o)
	if amount.GreaterThan(o.RemainingAmount) {
		return nil, NewValidationError("amount", fmt.Sprintf("payment amount %s exceeds remaining amount %s", amount, o.RemainingAmount))
	}
	o.PaidAmount = o.PaidAmount.Add(amount)
	m.RecomputeDerived(&o)
	return &o, nil
}

// SetPaidAmount is the direct field path behind OrderPatch.PaidAmount; it shares the bounds and
// status rule with ApplyPayment
func (m *OrderMachine) SetPaidAmount(order *RentalOrder, paid decimal.Decimal) (*RentalOrder, error) {
	o := *order
	o.PaidAmount = paid
	m.RecomputeDerived(&o)
	if err := validatePaid(&o); err != nil {
		return nil, err
	}
	return &o, nil
}

func validatePaid(o *RentalOrder) error {
	if o.PaidAmount.IsNegative() {
		return NewValidationError("paid_amount", "paid amount cannot be negative")
	}
	if o.PaidAmount.GreaterThan(o.TotalPrice) {
		return NewValidationError("paid_amount", "paid amount cannot exceed total price")
	}
	return nil
}
