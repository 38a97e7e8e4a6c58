package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const secondsPerDay = 24 * 60 * 60

var (
	// DefaultTaxRate is applied to the rental subtotal.
	DefaultTaxRate = decimal.RequireFromString("0.10")
	// DefaultLateFeeMultiplier is the share of the daily price charged per late day.
	DefaultLateFeeMultiplier = decimal.RequireFromString("0.5")
)

// Policy holds the deployment-wide pricing constants
type Policy struct {
	TaxRate           decimal.Decimal
	LateFeeMultiplier decimal.Decimal
}

// DefaultPolicy returns the 10% tax / 50% late fee policy
func DefaultPolicy() Policy {
	return Policy{
		TaxRate:           DefaultTaxRate,
		LateFeeMultiplier: DefaultLateFeeMultiplier,
	}
}

// Validate rejects negative rates
func (p Policy) Validate() error {
	if p.TaxRate.IsNegative() {
		return fmt.Errorf("tax rate cannot be negative: %s", p.TaxRate)
	}
	if p.LateFeeMultiplier.IsNegative() {
		return fmt.Errorf("late fee multiplier cannot be negative: %s", p.LateFeeMultiplier)
	}
	return nil
}

// Input is everything the calculator reads from an order and its rate snapshot
type Input struct {
	StartDate           time.Time
	EndDate             time.Time
	ActualReturnDate    *time.Time
	PricePerDay         decimal.Decimal
	InsuranceRequired   bool
	InsuranceCostPerDay decimal.Decimal
	DamageFee           decimal.Decimal
	PaidAmount          decimal.Decimal
}

// Breakdown is the full set of derived pricing values for an order
type Breakdown struct {
	RentalDays      int
	LateDays        int
	Subtotal        decimal.Decimal
	TaxAmount       decimal.Decimal
	InsuranceFee    decimal.Decimal
	LateFee         decimal.Decimal
	DamageFee       decimal.Decimal
	TotalPrice      decimal.Decimal
	RemainingAmount decimal.Decimal
}

// DaysBetween returns the whole calendar days from start to end (negative if end is before start).
// Both ends are UTC midnights, so the Unix difference is an exact multiple of a day.
func DaysBetween(start, end time.Time) int {
	s := truncateDay(start)
	e := truncateDay(end)
	return int((e.Unix() - s.Unix()) / secondsPerDay)
}

// RentalDays counts both endpoints; a reversed range yields 0
func RentalDays(start, end time.Time) int {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	diff := DaysBetween(start, end)
	if diff < 0 {
		return 0
	}
	return diff + 1
}

// LateDays is the number of days the return happened after the scheduled end date
func LateDays(end time.Time, actualReturn *time.Time) int {
	if actualReturn == nil || end.IsZero() {
		return 0
	}
	diff := DaysBetween(end, *actualReturn)
	if diff <= 0 {
		return 0
	}
	return diff
}

// Subtotal is rental days times the daily price
func Subtotal(days int, pricePerDay decimal.Decimal) decimal.Decimal {
	return pricePerDay.Mul(decimal.NewFromInt(int64(days)))
}

// Tax applies the policy rate to the subtotal
func (p Policy) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(p.TaxRate)
}

// LateFee charges the multiplier share of the daily price for every late day
func (p Policy) LateFee(lateDays int, pricePerDay decimal.Decimal) decimal.Decimal {
	if lateDays <= 0 {
		return decimal.Zero
	}
	return pricePerDay.Mul(p.LateFeeMultiplier).Mul(decimal.NewFromInt(int64(lateDays)))
}

// InsuranceFee is charged per rental day only when the product requires insurance
func InsuranceFee(days int, required bool, costPerDay decimal.Decimal) decimal.Decimal {
	if !required {
		return decimal.Zero
	}
	return costPerDay.Mul(decimal.NewFromInt(int64(days)))
}

// Compute runs the derivation chain. Each step only reads inputs and earlier steps,
// so calling it twice on the same input yields identical results.
func Compute(in Input, policy Policy) Breakdown {
	days := RentalDays(in.StartDate, in.EndDate)
	lateDays := LateDays(in.EndDate, in.ActualReturnDate)

	subtotal := Subtotal(days, in.PricePerDay)
	tax := policy.Tax(subtotal)
	insurance := InsuranceFee(days, in.InsuranceRequired, in.InsuranceCostPerDay)
	lateFee := policy.LateFee(lateDays, in.PricePerDay)

	total := subtotal.Add(tax).Add(lateFee).Add(in.DamageFee).Add(insurance)

	return Breakdown{
		RentalDays:      days,
		LateDays:        lateDays,
		Subtotal:        subtotal,
		TaxAmount:       tax,
		InsuranceFee:    insurance,
		LateFee:         lateFee,
		DamageFee:       in.DamageFee,
		TotalPrice:      total,
		RemainingAmount: total.Sub(in.PaidAmount),
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
