package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRentalDays(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		end      string
		expected int
	}{
		{"Same day", "2024-01-01", "2024-01-01", 1},
		{"Five days apart", "2024-01-01", "2024-01-06", 6},
		{"Cross month", "2024-01-30", "2024-02-02", 4},
		{"Leap day", "2024-02-28", "2024-03-01", 3},
		{"Reversed", "2024-01-06", "2024-01-01", 0},
		{"Six centuries", "1700-01-01", "2300-01-01", 219146},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RentalDays(day(tt.start), day(tt.end)))
		})
	}

	t.Run("Zero dates", func(t *testing.T) {
		assert.Equal(t, 0, RentalDays(time.Time{}, day("2024-01-01")))
	})

	t.Run("Time of day ignored", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)
		end := time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC)
		assert.Equal(t, 2, RentalDays(start, end))
	})
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		end      string
		expected int
	}{
		{"Same day", "2024-01-01", "2024-01-01", 0},
		{"Backwards", "2024-01-06", "2024-01-01", -5},
		{"Leap year", "2024-01-01", "2025-01-01", 366},
		{"Six centuries", "1700-01-01", "2300-01-01", 219145},
		{"Beyond duration range backwards", "2300-01-01", "1700-01-01", -219145},
		{"Whole calendar", "0001-01-01", "9999-12-31", 3652058},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DaysBetween(day(tt.start), day(tt.end)))
		})
	}
}

func TestCompute_LongRange(t *testing.T) {
	b := Compute(Input{
		StartDate:   day("1700-01-01"),
		EndDate:     day("2300-01-01"),
		PricePerDay: dec("10"),
	}, DefaultPolicy())

	assert.Equal(t, 219146, b.RentalDays)
	assert.True(t, b.Subtotal.Equal(dec("2191460")), b.Subtotal.String())
	assert.True(t, b.TaxAmount.Equal(dec("219146")), b.TaxAmount.String())
}

func TestLateDays(t *testing.T) {
	end := day("2024-01-05")

	t.Run("Not returned", func(t *testing.T) {
		assert.Equal(t, 0, LateDays(end, nil))
	})

	t.Run("Returned on time", func(t *testing.T) {
		ret := day("2024-01-05")
		assert.Equal(t, 0, LateDays(end, &ret))
	})

	t.Run("Returned early", func(t *testing.T) {
		ret := day("2024-01-03")
		assert.Equal(t, 0, LateDays(end, &ret))
	})

	t.Run("Returned three days late", func(t *testing.T) {
		ret := day("2024-01-08")
		assert.Equal(t, 3, LateDays(end, &ret))
	})
}

func TestCompute(t *testing.T) {
	policy := DefaultPolicy()

	t.Run("Basic rental", func(t *testing.T) {
		b := Compute(Input{
			StartDate:   day("2024-01-01"),
			EndDate:     day("2024-01-05"),
			PricePerDay: dec("100"),
		}, policy)

		assert.Equal(t, 5, b.RentalDays)
		assert.True(t, b.Subtotal.Equal(dec("500")), b.Subtotal.String())
		assert.True(t, b.TaxAmount.Equal(dec("50")), b.TaxAmount.String())
		assert.True(t, b.InsuranceFee.IsZero())
		assert.True(t, b.LateFee.IsZero())
		assert.True(t, b.TotalPrice.Equal(dec("550")), b.TotalPrice.String())
		assert.True(t, b.RemainingAmount.Equal(dec("550")))
	})

	t.Run("All fees", func(t *testing.T) {
		ret := day("2024-01-08")
		b := Compute(Input{
			StartDate:           day("2024-01-01"),
			EndDate:             day("2024-01-05"),
			ActualReturnDate:    &ret,
			PricePerDay:         dec("40"),
			InsuranceRequired:   true,
			InsuranceCostPerDay: dec("2.5"),
			DamageFee:           dec("15"),
			PaidAmount:          dec("100"),
		}, policy)

		assert.Equal(t, 3, b.LateDays)
		assert.True(t, b.Subtotal.Equal(dec("200")))
		assert.True(t, b.TaxAmount.Equal(dec("20")))
		assert.True(t, b.InsuranceFee.Equal(dec("12.5")))
		// 3 late days x (40 x 0.5)
		assert.True(t, b.LateFee.Equal(dec("60")), b.LateFee.String())
		expected := b.Subtotal.Add(b.TaxAmount).Add(b.LateFee).Add(b.DamageFee).Add(b.InsuranceFee)
		assert.True(t, b.TotalPrice.Equal(expected))
		assert.True(t, b.TotalPrice.Equal(dec("307.5")), b.TotalPrice.String())
		assert.True(t, b.RemainingAmount.Equal(dec("207.5")))
	})

	t.Run("Insurance configured but not required", func(t *testing.T) {
		b := Compute(Input{
			StartDate:           day("2024-01-01"),
			EndDate:             day("2024-01-02"),
			PricePerDay:         dec("10"),
			InsuranceCostPerDay: dec("3"),
		}, policy)
		assert.True(t, b.InsuranceFee.IsZero())
	})

	t.Run("Deterministic", func(t *testing.T) {
		ret := day("2024-01-09")
		in := Input{
			StartDate:           day("2024-01-01"),
			EndDate:             day("2024-01-05"),
			ActualReturnDate:    &ret,
			PricePerDay:         dec("33.33"),
			InsuranceRequired:   true,
			InsuranceCostPerDay: dec("1.11"),
			DamageFee:           dec("7"),
			PaidAmount:          dec("12.34"),
		}
		assert.Equal(t, Compute(in, policy), Compute(in, policy))
	})

	t.Run("Custom policy", func(t *testing.T) {
		ret := day("2024-01-06")
		custom := Policy{TaxRate: dec("0.2"), LateFeeMultiplier: dec("1")}
		b := Compute(Input{
			StartDate:        day("2024-01-01"),
			EndDate:          day("2024-01-05"),
			ActualReturnDate: &ret,
			PricePerDay:      dec("10"),
		}, custom)
		assert.True(t, b.TaxAmount.Equal(dec("10")))
		assert.True(t, b.LateFee.Equal(dec("10")))
	})
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	err := Policy{TaxRate: dec("-0.1"), LateFeeMultiplier: dec("0.5")}.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "tax rate")

	err = Policy{TaxRate: dec("0.1"), LateFeeMultiplier: dec("-1")}.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "late fee multiplier")
}
