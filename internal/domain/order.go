package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"rental-backend/internal/pricing"
)

type OrderState string

const (
	OrderStateDraft     OrderState = "draft"
	OrderStateConfirmed OrderState = "confirmed"
	OrderStateOngoing   OrderState = "ongoing"
	OrderStateReturned  OrderState = "returned"
	OrderStateDone      OrderState = "done"
	OrderStateCancelled OrderState = "cancelled"
)

func (s OrderState) Valid() bool {
	switch s {
	case OrderStateDraft, OrderStateConfirmed, OrderStateOngoing, OrderStateReturned, OrderStateDone, OrderStateCancelled:
		return true
	}
	return false
}

// Commits reports whether an order in this state blocks its product's dates
func (s OrderState) Commits() bool {
	return s == OrderStateConfirmed || s == OrderStateOngoing
}

// HoldsProduct reports whether the order owns the product's rented flag
func (s OrderState) HoldsProduct() bool {
	return s == OrderStateConfirmed || s == OrderStateOngoing || s == OrderStateReturned
}

// Action names a lifecycle transition or a guarded edit
type Action string

const (
	ActionConfirm      Action = "confirm"
	ActionStartRental  Action = "start_rental"
	ActionReturn       Action = "return"
	ActionDone         Action = "done"
	ActionCancel       Action = "cancel"
	ActionResetToDraft Action = "reset_to_draft"

	ActionReassign     Action = "reassign"
	ActionReschedule   Action = "reschedule"
	ActionChargeDamage Action = "charge damage on"
)

// ParseAction accepts only lifecycle actions
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionConfirm, ActionStartRental, ActionReturn, ActionDone, ActionCancel, ActionResetToDraft:
		return a, nil
	}
	return "", NewValidationError("action", fmt.Sprintf("unknown action %q", s))
}

type RentalOrder struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"order_number"`
	CustomerID  int64  `json:"customer_id"`
	ProductID   int64  `json:"product_id"`

	StartDate        time.Time  `json:"start_date"`
	EndDate          time.Time  `json:"end_date"`
	ActualReturnDate *time.Time `json:"actual_return_date,omitempty"`

	// rate snapshot copied from the product
	PricePerDay         decimal.Decimal `json:"price_per_day"`
	InsuranceRequired   bool            `json:"insurance_required"`
	InsuranceCostPerDay decimal.Decimal `json:"insurance_cost_per_day"`
	DepositAmount       decimal.Decimal `json:"deposit_amount"`

	RentalDays      int             `json:"rental_days"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	InsuranceFee    decimal.Decimal `json:"insurance_fee"`
	LateFee         decimal.Decimal `json:"late_fee"`
	DamageFee       decimal.Decimal `json:"damage_fee"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`

	State           OrderState `json:"state"`
	Notes           string     `json:"notes,omitempty"`
	InternalNotes   string     `json:"internal_notes,omitempty"`
	ReturnCondition string     `json:"return_condition,omitempty"`
	ResponsibleUser string     `json:"responsible_user,omitempty"`
	CreatedOn       time.Time  `json:"created_on"`
	UpdatedOn       time.Time  `json:"updated_on"`
}

func (o *RentalOrder) DisplayName(customerName, productName string) string {
	return fmt.Sprintf("%s - %s (%s)", o.OrderNumber, customerName, productName)
}

// IsOverdue reports an ongoing rental past its end date
func (o *RentalOrder) IsOverdue(today time.Time) bool {
	return o.State == OrderStateOngoing && DateOf(today).After(DateOf(o.EndDate))
}

func rentalDaysOf(o *RentalOrder) int {
	return pricing.RentalDays(o.StartDate, o.EndDate)
}

// NewOrderInput is what a caller supplies to open a draft
type NewOrderInput struct {
	OrderNumber     string
	CustomerID      int64
	ProductID       int64
	StartDate       time.Time
	EndDate         time.Time
	DamageFee       decimal.Decimal
	Notes           string
	InternalNotes   string
	ResponsibleUser string
}

// OrderPatch is a partial update; nil fields are left alone
type OrderPatch struct {
	CustomerID      *int64
	ProductID       *int64
	StartDate       *time.Time
	EndDate         *time.Time
	DamageFee       *decimal.Decimal
	PaidAmount      *decimal.Decimal
	Notes           *string
	InternalNotes   *string
	ReturnCondition *string
}

// ApplyOptions carries inputs specific to a single action
type ApplyOptions struct {
	// return inspection
	ReturnCondition string
	DamageFee       *decimal.Decimal
}

type changeSet uint8

const (
	changeCreated changeSet = 1 << iota
	changeDates
	changeProduct
	changeConfirm
)

func (c changeSet) has(flags changeSet) bool {
	return c&flags != 0
}

// OrderMachine owns every write to a RentalOrder: creation, edits, lifecycle actions and payments.
// All methods work on copies and return the new values only when every validation passes.
type OrderMachine struct {
	clock  Clock
	policy pricing.Policy
}

func NewOrderMachine(clock Clock, policy pricing.Policy) *OrderMachine {
	return &OrderMachine{clock: clock, policy: policy}
}

func (m *OrderMachine) Today() time.Time {
	return m.clock.Today()
}

func (m *OrderMachine) Policy() pricing.Policy {
	return m.policy
}

// RecomputeDerived is the only writer of the derived pricing fields
func (m *OrderMachine) RecomputeDerived(o *RentalOrder) {
	b := pricing.Compute(pricing.Input{
		StartDate:           o.StartDate,
		EndDate:             o.EndDate,
		ActualReturnDate:    o.ActualReturnDate,
		PricePerDay:         o.PricePerDay,
		InsuranceRequired:   o.InsuranceRequired,
		InsuranceCostPerDay: o.InsuranceCostPerDay,
		DamageFee:           o.DamageFee,
		PaidAmount:          o.PaidAmount,
	}, m.policy)

	o.RentalDays = b.RentalDays
	o.Subtotal = b.Subtotal
	o.TaxAmount = b.TaxAmount
	o.InsuranceFee = b.InsuranceFee
	o.LateFee = b.LateFee
	o.DamageFee = b.DamageFee
	o.TotalPrice = b.TotalPrice
	o.RemainingAmount = b.RemainingAmount
	o.PaymentStatus = PaymentStatusFor(o.PaidAmount, o.TotalPrice)
}

// ProjectedLateFee is the late fee the order would carry if returned today
func (m *OrderMachine) ProjectedLateFee(o *RentalOrder) decimal.Decimal {
	today := m.clock.Today()
	return m.policy.LateFee(pricing.LateDays(o.EndDate, &today), o.PricePerDay)
}

func snapshotRates(o *RentalOrder, p *Product) {
	o.PricePerDay = p.PricePerDay
	o.InsuranceRequired = p.InsuranceRequired
	o.InsuranceCostPerDay = p.InsuranceCostPerDay
	o.DepositAmount = p.SecurityDeposit
}

// NewOrder opens a draft for product. commitments are the product's existing orders.
func (m *OrderMachine) NewOrder(in NewOrderInput, product *Product, commitments []RentalOrder) (*RentalOrder, error) {
	if in.CustomerID == 0 {
		return nil, NewValidationError("customer_id", "customer is required")
	}
	if in.ProductID == 0 || product == nil {
		return nil, NewValidationError("product_id", "product is required")
	}
	if product.ID != in.ProductID {
		return nil, NewValidationError("product_id", "product does not match order")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return nil, NewValidationError("start_date", "start and end dates are required")
	}
	if in.DamageFee.IsNegative() {
		return nil, NewValidationError("damage_fee", "damage fee cannot be negative")
	}

	o := &RentalOrder{
		OrderNumber:     in.OrderNumber,
		CustomerID:      in.CustomerID,
		ProductID:       in.ProductID,
		StartDate:       DateOf(in.StartDate),
		EndDate:         DateOf(in.EndDate),
		DamageFee:       in.DamageFee,
		PaidAmount:      decimal.Zero,
		State:           OrderStateDraft,
		Notes:           in.Notes,
		InternalNotes:   in.InternalNotes,
		ResponsibleUser: in.ResponsibleUser,
	}
	snapshotRates(o, product)
	m.RecomputeDerived(o)

	if err := m.validate(o, product, commitments, changeCreated|changeDates); err != nil {
		return nil, err
	}
	return o, nil
}

// Update applies a patch. product is the order's product after the patch, commitments its orders.
func (m *OrderMachine) Update(order *RentalOrder, patch OrderPatch, product *Product, commitments []RentalOrder) (*RentalOrder, error) {
	o := *order
	var changes changeSet

	reassigned := (patch.CustomerID != nil && *patch.CustomerID != o.CustomerID) ||
		(patch.ProductID != nil && *patch.ProductID != o.ProductID)
	if reassigned && o.State != OrderStateDraft {
		return nil, &StateError{Action: ActionReassign, Required: []OrderState{OrderStateDraft}, Current: o.State}
	}
	editable := o.State == OrderStateDraft || o.State == OrderStateConfirmed
	bookingEditable := []OrderState{OrderStateDraft, OrderStateConfirmed}

	if patch.CustomerID != nil {
		if *patch.CustomerID == 0 {
			return nil, NewValidationError("customer_id", "customer is required")
		}
		o.CustomerID = *patch.CustomerID
	}
	if patch.ProductID != nil && *patch.ProductID != o.ProductID {
		if *patch.ProductID == 0 {
			return nil, NewValidationError("product_id", "product is required")
		}
		o.ProductID = *patch.ProductID
		changes |= changeProduct
	}
	if product == nil || product.ID != o.ProductID {
		return nil, NewValidationError("product_id", "product does not match order")
	}

	datesChanged := (patch.StartDate != nil && !DateOf(*patch.StartDate).Equal(o.StartDate)) ||
		(patch.EndDate != nil && !DateOf(*patch.EndDate).Equal(o.EndDate))
	if datesChanged {
		if !editable {
			return nil, &StateError{Action: ActionReschedule, Required: bookingEditable, Current: o.State}
		}
		if patch.StartDate != nil {
			o.StartDate = DateOf(*patch.StartDate)
		}
		if patch.EndDate != nil {
			o.EndDate = DateOf(*patch.EndDate)
		}
		changes |= changeDates
	}

	if patch.DamageFee != nil && !patch.DamageFee.Equal(o.DamageFee) {
		if !editable {
			return nil, &StateError{Action: ActionChargeDamage, Required: bookingEditable, Current: o.State}
		}
		if patch.DamageFee.IsNegative() {
			return nil, NewValidationError("damage_fee", "damage fee cannot be negative")
		}
		o.DamageFee = *patch.DamageFee
	}

	if patch.Notes != nil {
		o.Notes = *patch.Notes
	}
	if patch.InternalNotes != nil {
		o.InternalNotes = *patch.InternalNotes
	}
	if patch.ReturnCondition != nil {
		o.ReturnCondition = *patch.ReturnCondition
	}

	if editable {
		snapshotRates(&o, product)
	}
	m.RecomputeDerived(&o)

	// paid amount is checked against the total after every other field of the patch
	if patch.PaidAmount != nil {
		paid, err := m.SetPaidAmount(&o, *patch.PaidAmount)
		if err != nil {
			return nil, err
		}
		o = *paid
	}

	if err := m.validate(&o, product, commitments, changes); err != nil {
		return nil, err
	}
	return &o, nil
}

var requiredStates = map[Action][]OrderState{
	ActionConfirm:      {OrderStateDraft},
	ActionStartRental:  {OrderStateConfirmed},
	ActionReturn:       {OrderStateOngoing},
	ActionDone:         {OrderStateReturned},
	ActionCancel:       {OrderStateDraft, OrderStateConfirmed, OrderStateOngoing, OrderStateReturned, OrderStateCancelled},
	ActionResetToDraft: {OrderStateCancelled},
}

func allowed(action Action, current OrderState) bool {
	for _, s := range requiredStates[action] {
		if s == current {
			return true
		}
	}
	return false
}

// Apply runs one lifecycle action. It returns the updated order and product; the inputs are never
// modified, so a failed action leaves both exactly as they were.
func (m *OrderMachine) Apply(order *RentalOrder, action Action, product *Product, commitments []RentalOrder, opts ApplyOptions) (*RentalOrder, *Product, error) {
	required, ok := requiredStates[action]
	if !ok {
		return nil, nil, NewValidationError("action", fmt.Sprintf("unknown action %q", action))
	}
	if !allowed(action, order.State) {
		return nil, nil, &StateError{Action: action, Required: required, Current: order.State}
	}
	if product == nil || product.ID != order.ProductID {
		return nil, nil, NewValidationError("product_id", "product does not match order")
	}

	o := *order
	p := *product
	previous := o.State
	var changes changeSet

	switch action {
	case ActionConfirm:
		switch p.Status {
		case ProductStatusAvailable, ProductStatusRented:
		default:
			return nil, nil, NewValidationError("product_id", fmt.Sprintf("product '%s' is %s", p.Name, p.Status))
		}
		if !p.CheckAvailability(commitments, o.StartDate, o.EndDate) {
			return nil, nil, newConflictError(&p, FindConflicts(commitments, p.ID, o.StartDate, o.EndDate, o.ID))
		}
		o.State = OrderStateConfirmed
		changes |= changeConfirm
	case ActionStartRental:
		o.State = OrderStateOngoing
	case ActionReturn:
		today := m.clock.Today()
		o.ActualReturnDate = &today
		if opts.ReturnCondition != "" {
			o.ReturnCondition = opts.ReturnCondition
		}
		if opts.DamageFee != nil {
			if opts.DamageFee.IsNegative() {
				return nil, nil, NewValidationError("damage_fee", "damage fee cannot be negative")
			}
			o.DamageFee = *opts.DamageFee
		}
		o.State = OrderStateReturned
	case ActionDone:
		o.State = OrderStateDone
	case ActionCancel:
		o.State = OrderStateCancelled
	case ActionResetToDraft:
		o.State = OrderStateDraft
	}

	p.applyOrderAction(action, previous)
	m.RecomputeDerived(&o)

	if err := m.validate(&o, &p, commitments, changes); err != nil {
		return nil, nil, err
	}
	return &o, &p, nil
}

// validate enforces the write rules that apply to the fields touched by this change
func (m *OrderMachine) validate(o *RentalOrder, p *Product, commitments []RentalOrder, changes changeSet) error {
	if !o.State.Valid() {
		return NewValidationError("state", fmt.Sprintf("unknown order state %q", o.State))
	}
	if changes.has(changeCreated|changeDates) && !o.EndDate.After(o.StartDate) {
		return NewValidationError("end_date", "end date must be after start date")
	}
	if o.State != OrderStateDraft && changes.has(changeDates|changeConfirm) &&
		o.StartDate.Before(m.clock.Today()) {
		return NewValidationError("start_date", "start date cannot be in the past")
	}
	if o.State != OrderStateDraft && o.State != OrderStateCancelled &&
		changes.has(changeDates|changeProduct|changeConfirm) {
		if conflicts := FindConflicts(commitments, o.ProductID, o.StartDate, o.EndDate, o.ID); len(conflicts) > 0 {
			return newConflictError(p, conflicts)
		}
	}
	return validatePaid(o)
}
