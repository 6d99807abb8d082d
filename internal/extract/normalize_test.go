package extract

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNormalizeAmount(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "1234.56", "1234.56"},
		{"us grouping", "1,234.56", "1234.56"},
		{"eu grouping", "1.234,56", "1234.56"},
		{"decimal comma only", "1234,56", "1234.56"},
		{"thousands comma only", "1,234", "1234"},
		{"dollar sign", "$1,234.56", "1234.56"},
		{"singapore dollar", "S$1,234.56", "1234.56"},
		{"sgd code", "SGD 1,234.56", "1234.56"},
		{"euro", "€1.234,56", "1234.56"},
		{"ocr damaged", "$1,234.S6", "1234.56"},
		{"ocr damaged letters", "1O0.5O", "100.50"},
		{"whitespace", "  42.00  ", "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, softErrs := n.NormalizeAmount(tt.raw, 0.9, nil)
			if !field.Value.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("NormalizeAmount(%q) = %s, want %s", tt.raw, field.Value, tt.want)
			}
			if field.Confidence != 0.9 {
				t.Errorf("confidence should pass through, got %v", field.Confidence)
			}
			if field.RawText != tt.raw {
				t.Errorf("raw text must be preserved, got %q", field.RawText)
			}
			if len(softErrs) != 0 {
				t.Errorf("unexpected soft errors: %v", softErrs)
			}
		})
	}
}

func TestNormalizeAmount_Unparseable(t *testing.T) {
	n := NewNormalizer(nil)
	field, softErrs := n.NormalizeAmount("no amount here", 0.9, nil)
	if !field.Value.IsZero() {
		t.Errorf("expected zero value, got %s", field.Value)
	}
	if field.Confidence != 0 {
		t.Errorf("expected confidence 0, got %v", field.Confidence)
	}
	if field.RawText != "no amount here" {
		t.Errorf("raw text must be preserved, got %q", field.RawText)
	}
	if len(softErrs) == 0 {
		t.Error("expected a parse soft error")
	}
}

func TestNormalizeAmount_SoftErrors(t *testing.T) {
	n := NewNormalizer(nil)

	_, softErrs := n.NormalizeAmount("2000000000.00", 0.9, nil)
	if len(softErrs) != 1 {
		t.Errorf("implausibly large amount should be flagged: %v", softErrs)
	}
}

func TestNormalizeDate(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		name     string
		raw      string
		want     time.Time
		wantConf float64
	}{
		{"iso", "2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 0.9},
		{"european", "15/03/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 0.9},
		{"month name", "15 March 2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 0.9},
		{"month name us", "March 15, 2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 0.9},
		{"abbreviated", "15 Mar 2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 0.9},
		// 25 cannot be a month, so the loose fallback resolves this as
		// day-first at half confidence.
		{"loose day first", "25.03.2024", time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC), 0.45},
		{"loose two-digit year", "25.03.24", time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC), 0.45},
		{"ocr damaged", "2O24-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field := n.NormalizeDate(tt.raw, 0.9, nil)
			if !field.Value.Equal(tt.want) {
				t.Errorf("NormalizeDate(%q) = %s, want %s", tt.raw, field.Value, tt.want)
			}
			if abs(field.Confidence-tt.wantConf) > 1e-9 {
				t.Errorf("NormalizeDate(%q) confidence = %v, want %v", tt.raw, field.Confidence, tt.wantConf)
			}
		})
	}
}

func TestNormalizeDate_Sentinel(t *testing.T) {
	n := NewNormalizer(nil)
	field := n.NormalizeDate("not a date at all", 0.9, nil)

	// The sentinel is today's date with confidence exactly 0.
	if field.Confidence != 0 {
		t.Errorf("expected confidence exactly 0, got %v", field.Confidence)
	}
	today := time.Now().UTC()
	if field.Value.Year() != today.Year() || field.Value.YearDay() != today.YearDay() {
		t.Errorf("expected today as sentinel, got %s", field.Value)
	}
	if field.RawText != "not a date at all" {
		t.Errorf("raw text must be preserved, got %q", field.RawText)
	}
}

func TestNormalizeDate_ImpossibleLooseDate(t *testing.T) {
	n := NewNormalizer(nil)
	// 45 is neither a valid day-month nor month-day combination.
	field := n.NormalizeDate("45/45/2024", 0.9, nil)
	if field.Confidence != 0 {
		t.Errorf("impossible date should fall through to the sentinel, got confidence %v", field.Confidence)
	}
}

func TestNormalizeQuantity(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		raw  string
		want string
	}{
		{"100", "100"},
		{"100 units", "100"},
		{"1,500", "1500"},
		{"1O0", "100"},
		{"2.5", "2.5"},
	}
	for _, tt := range tests {
		field, softErrs := n.NormalizeQuantity(tt.raw, 0.9, nil)
		if !field.Value.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("NormalizeQuantity(%q) = %s, want %s", tt.raw, field.Value, tt.want)
		}
		if len(softErrs) != 0 {
			t.Errorf("NormalizeQuantity(%q): unexpected soft errors %v", tt.raw, softErrs)
		}
	}
}

func TestNormalizeQuantity_Clamps(t *testing.T) {
	n := NewNormalizer(nil)

	// Negative quantities become their absolute value.
	field, _ := n.NormalizeQuantity("-50", 0.9, nil)
	if !field.Value.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected 50, got %s", field.Value)
	}

	// A ridiculous quantity is flagged but kept.
	field, softErrs := n.NormalizeQuantity("2000000", 0.9, nil)
	if !field.Value.Equal(decimal.NewFromInt(2000000)) {
		t.Errorf("value should be kept, got %s", field.Value)
	}
	if len(softErrs) != 1 {
		t.Errorf("expected one soft error, got %v", softErrs)
	}
}

func TestNormalizeString(t *testing.T) {
	n := NewNormalizer(nil)
	field := n.NormalizeString("  Acme\tSupplies\x00  Pte   Ltd ", 0.85, nil)
	if field.Value != "Acme Supplies Pte Ltd" {
		t.Errorf("unexpected value: %q", field.Value)
	}
	if field.Confidence != 0.85 {
		t.Errorf("confidence should pass through, got %v", field.Confidence)
	}
}

func TestFixOCRErrors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1,234.S6", "1,234.56"},
		{"l5", "15"},
		{"2O24", "2024"},
		// No digits in the run, leave the word alone.
		{"October", "October"},
		{"Signed", "Signed"},
		// "I" sits in its own run with no digit, so it survives.
		{"Invoice INV-100", "Invoice INV-100"},
	}
	for _, tt := range tests {
		if got := fixOCRErrors(tt.in); got != tt.want {
			t.Errorf("fixOCRErrors(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
