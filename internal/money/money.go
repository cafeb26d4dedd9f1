// Package money holds all monetary arithmetic. Amounts are stored as integer
// cents; intermediate tax and discount math runs on decimals and rounds to
// cents only at the end, per line, so summed lines never accumulate drift.
package money

import "github.com/shopspring/decimal"

// Cents converts a decimal currency amount to integer cents, rounding
// half-up at two places.
func Cents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// RateFromBps converts a basis-point rate (e.g. 1100 = 11%) to its decimal
// fraction.
func RateFromBps(bps int64) decimal.Decimal {
	return decimal.New(bps, -4)
}

// Line is the computed monetary breakdown of one sale or purchase line.
type Line struct {
	GrossCents    int64
	DiscountCents int64
	TaxCents      int64
	TotalCents    int64
}

// ComputeLine prices one line: gross = qty * unit price, tax applies to the
// discounted amount at the given basis-point rate, total = gross - discount
// + tax. The discount is clamped to the gross so a line never goes negative.
func ComputeLine(qty int64, unitPriceCents int64, discountCents int64, taxRateBps int64) Line {
	gross := FromCents(unitPriceCents).Mul(decimal.NewFromInt(qty))
	grossCents := Cents(gross)

	if discountCents < 0 {
		discountCents = 0
	}
	if discountCents > grossCents {
		discountCents = grossCents
	}

	taxable := gross.Sub(FromCents(discountCents))
	taxCents := Cents(taxable.Mul(RateFromBps(taxRateBps)))

	return Line{
		GrossCents:    grossCents,
		DiscountCents: discountCents,
		TaxCents:      taxCents,
		TotalCents:    grossCents - discountCents + taxCents,
	}
}

// Profit returns (unit price - unit cost) * qty in cents.
func Profit(qty int64, unitPriceCents int64, unitCostCents int64) int64 {
	margin := FromCents(unitPriceCents).Sub(FromCents(unitCostCents))
	return Cents(margin.Mul(decimal.NewFromInt(qty)))
}
