package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eulaprotocol/triway/constants"
	"github.com/eulaprotocol/triway/internal/ocr"
)

// mathTolerance absorbs sub-cent rounding in financial arithmetic.
var mathTolerance = decimal.NewFromFloat(0.01)

// Field wraps a value extracted from a document with metadata about
// extraction quality. Downstream logic uses the confidence to route
// low-quality extractions to manual review instead of trusting them.
type Field[T any] struct {
	Value      T
	Confidence float64
	Box        *ocr.BoundingBox
	RawText    string // original text before normalization
}

// NewField builds a Field and enforces the confidence invariant.
// Confidence outside [0,1] is a programming error, not bad input,
// so it panics rather than returning an error.
func NewField[T any](value T, confidence float64, box *ocr.BoundingBox, raw string) Field[T] {
	if confidence < 0 || confidence > 1 {
		panic(fmt.Sprintf("field confidence must be 0-1, got %v", confidence))
	}
	return Field[T]{Value: value, Confidence: confidence, Box: box, RawText: raw}
}

// RequiresReview reports whether confidence fell below the acceptance
// threshold.
func (f Field[T]) RequiresReview() bool {
	return f.Confidence < constants.ReviewConfidenceThreshold
}

// LineItem is a single billable line from an invoice. Used for the
// line-item sum rule: sum(items.Total) == invoice.TotalAmount.
type LineItem struct {
	Description Field[string]
	Quantity    Field[decimal.Decimal]
	UnitPrice   Field[decimal.Decimal]
	Total       Field[decimal.Decimal]
}

// CalculatedTotal computes the expected total from quantity * unit price.
func (li LineItem) CalculatedTotal() decimal.Decimal {
	return li.Quantity.Value.Mul(li.UnitPrice.Value)
}

// HasMathError reports whether the stated total drifts from
// quantity * unit price by more than a cent.
func (li LineItem) HasMathError() bool {
	return li.CalculatedTotal().Sub(li.Total.Value).Abs().GreaterThan(mathTolerance)
}

// Invoice is the claim for payment. The face value determines the
// financing amount and the due date determines the term.
type Invoice struct {
	InvoiceNumber Field[string]
	TotalAmount   Field[decimal.Decimal]
	Currency      Field[string]
	InvoiceDate   Field[time.Time]
	DueDate       Field[time.Time]
	PayeeName     Field[string] // the SME receiving payment
	PayerName     Field[string] // the debtor owing payment
	LineItems     []LineItem
}

// TotalQuantity sums line-item quantities.
func (inv Invoice) TotalQuantity() decimal.Decimal {
	sum := decimal.Zero
	for _, li := range inv.LineItems {
		sum = sum.Add(li.Quantity.Value)
	}
	return sum
}

// CalculatedTotal sums line-item totals.
func (inv Invoice) CalculatedTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, li := range inv.LineItems {
		sum = sum.Add(li.Total.Value)
	}
	return sum
}

// PurchaseOrder is the authorization: it establishes the maximum
// approved amount and evidence of pre-approval by the payer.
type PurchaseOrder struct {
	PONumber         Field[string]
	AuthorizedAmount Field[decimal.Decimal]
	Currency         Field[string]
	PODate           Field[time.Time]
	BuyerName        Field[string] // the payer
	VendorName       Field[string] // the SME
	LineItems        []LineItem
}

// TotalQuantity sums line-item quantities.
func (po PurchaseOrder) TotalQuantity() decimal.Decimal {
	sum := decimal.Zero
	for _, li := range po.LineItems {
		sum = sum.Add(li.Quantity.Value)
	}
	return sum
}

// ProofOfDelivery is the performance evidence: goods or services were
// received, making the invoice a valid receivable.
type ProofOfDelivery struct {
	DeliveryReference  Field[string]
	QuantityDelivered  Field[decimal.Decimal]
	DeliveryDate       Field[time.Time]
	RecipientName      Field[string]
	RecipientSignature bool // whether a signature was detected
	POReference        *Field[string]
}

// DocumentBundle is the complete 3-way match set. All three documents
// must be present and consistent to pass the forensic audit.
type DocumentBundle struct {
	Invoice         Invoice
	PurchaseOrder   PurchaseOrder
	ProofOfDelivery ProofOfDelivery

	// Content hashes for deduplication and tamper detection.
	InvoiceHash string
	POHash      string
	PODHash     string
}

// ValidationCheck is the outcome of a single validation rule.
type ValidationCheck struct {
	RuleName string            `json:"rule_name"`
	Passed   bool              `json:"passed"`
	Message  string            `json:"message"`
	Details  map[string]string `json:"details,omitempty"`
}

// Anomaly flags something that warrants scrutiny without necessarily
// failing the bundle.
type Anomaly struct {
	Code          string                    `json:"code"`
	Message       string                    `json:"message"`
	Severity      constants.AnomalySeverity `json:"severity"`
	FieldPath     string                    `json:"field_path"`
	ExpectedValue string                    `json:"expected_value,omitempty"`
	ActualValue   string                    `json:"actual_value,omitempty"`
}

// VerificationResult aggregates checks, anomalies, and review flags into
// an overall verdict for a bundle.
type VerificationResult struct {
	Status      constants.VerificationStatus `json:"status"`
	Checks      []ValidationCheck            `json:"checks"`
	Anomalies   []Anomaly                    `json:"anomalies"`
	ReviewFlags []string                     `json:"review_flags"` // field paths with low confidence
}

// AllChecksPassed reports whether every validation rule passed.
func (r VerificationResult) AllChecksPassed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// HasBlockingAnomalies reports whether any anomaly is severity "error".
func (r VerificationResult) HasBlockingAnomalies() bool {
	for _, a := range r.Anomalies {
		if a.Severity == constants.SeverityError {
			return true
		}
	}
	return false
}
