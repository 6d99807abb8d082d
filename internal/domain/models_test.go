package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewField_ConfidenceBounds(t *testing.T) {
	f := NewField("INV-2024-001", 0.95, nil, "INV-2024-001")
	if f.Value != "INV-2024-001" || f.Confidence != 0.95 {
		t.Errorf("unexpected field: %+v", f)
	}

	// Boundary values are legal.
	_ = NewField(0, 0.0, nil, "")
	_ = NewField(0, 1.0, nil, "")

	for _, bad := range []float64{-0.01, 1.01, 2} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic for confidence %v", bad)
				}
			}()
			_ = NewField(0, bad, nil, "")
		}()
	}
}

func TestField_RequiresReview(t *testing.T) {
	if NewField("x", 0.7, nil, "").RequiresReview() {
		t.Error("0.7 is at the threshold, should not require review")
	}
	if !NewField("x", 0.69, nil, "").RequiresReview() {
		t.Error("0.69 is below the threshold, should require review")
	}
}

func TestLineItem_Math(t *testing.T) {
	li := LineItem{
		Quantity:  NewField(decimal.NewFromInt(10), 0.9, nil, "10"),
		UnitPrice: NewField(decimal.RequireFromString("2.50"), 0.9, nil, "2.50"),
		Total:     NewField(decimal.RequireFromString("25.00"), 0.9, nil, "25.00"),
	}
	if !li.CalculatedTotal().Equal(decimal.RequireFromString("25.00")) {
		t.Errorf("expected 25.00, got %s", li.CalculatedTotal())
	}
	if li.HasMathError() {
		t.Error("10 * 2.50 == 25.00, no math error expected")
	}

	li.Total = NewField(decimal.RequireFromString("26.00"), 0.9, nil, "26.00")
	if !li.HasMathError() {
		t.Error("stated total drifts by 1.00, math error expected")
	}

	// Sub-cent drift is tolerated.
	li.Total = NewField(decimal.RequireFromString("25.005"), 0.9, nil, "25.005")
	if li.HasMathError() {
		t.Error("drift within a cent should not be a math error")
	}
}

func TestInvoice_Aggregates(t *testing.T) {
	inv := Invoice{
		LineItems: []LineItem{
			{
				Quantity: NewField(decimal.NewFromInt(100), 0.9, nil, "100"),
				Total:    NewField(decimal.RequireFromString("4000.00"), 0.9, nil, ""),
			},
			{
				Quantity: NewField(decimal.NewFromInt(100), 0.9, nil, "100"),
				Total:    NewField(decimal.RequireFromString("4000.00"), 0.9, nil, ""),
			},
		},
	}
	if !inv.TotalQuantity().Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected 200, got %s", inv.TotalQuantity())
	}
	if !inv.CalculatedTotal().Equal(decimal.RequireFromString("8000.00")) {
		t.Errorf("expected 8000.00, got %s", inv.CalculatedTotal())
	}
}
