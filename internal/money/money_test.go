package money

import "testing"

func TestComputeLineBasic(t *testing.T) {
	// 3 x 25.00 with 5.00 discount and 10% tax: tax base 70.00, tax 7.00.
	line := ComputeLine(3, 2500, 500, 1000)
	if line.GrossCents != 7500 {
		t.Fatalf("gross: expected 7500, got %d", line.GrossCents)
	}
	if line.TaxCents != 700 {
		t.Fatalf("tax: expected 700, got %d", line.TaxCents)
	}
	if line.TotalCents != 7700 {
		t.Fatalf("total: expected 7700, got %d", line.TotalCents)
	}
}

func TestComputeLineRoundsHalfUp(t *testing.T) {
	// 1 x 0.05 at 11% tax = 0.0055 -> rounds to 0.01.
	line := ComputeLine(1, 5, 0, 1100)
	if line.TaxCents != 1 {
		t.Fatalf("expected 1 cent tax, got %d", line.TaxCents)
	}
}

func TestComputeLinePerLineNotOnSubtotal(t *testing.T) {
	// Two lines of 1 x 0.05 at 11% each round independently: 1 + 1 cents.
	// Computed once on the 0.10 subtotal the tax would be 0.011 -> 1 cent.
	a := ComputeLine(1, 5, 0, 1100)
	b := ComputeLine(1, 5, 0, 1100)
	if a.TaxCents+b.TaxCents != 2 {
		t.Fatalf("expected per-line tax sum 2, got %d", a.TaxCents+b.TaxCents)
	}
}

func TestComputeLineClampsDiscount(t *testing.T) {
	line := ComputeLine(1, 1000, 5000, 0)
	if line.DiscountCents != 1000 {
		t.Fatalf("expected discount clamped to 1000, got %d", line.DiscountCents)
	}
	if line.TotalCents != 0 {
		t.Fatalf("expected zero total, got %d", line.TotalCents)
	}
}

func TestProfitUsesSnapshotInputs(t *testing.T) {
	if got := Profit(4, 2500, 1800); got != 2800 {
		t.Fatalf("expected 2800, got %d", got)
	}
	if got := Profit(2, 1000, 1200); got != -400 {
		t.Fatalf("expected -400 for negative margin, got %d", got)
	}
}
