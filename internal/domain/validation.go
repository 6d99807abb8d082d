package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eulaprotocol/triway/constants"
)

// Pure 3-way match rules. No side effects, no I/O: every rule always
// returns a ValidationCheck, even on degenerate input, so the engine
// never aborts a verification mid-flight.

// DecimalTolerance absorbs rounding differences in financial comparisons.
var DecimalTolerance = decimal.NewFromFloat(0.01)

// AnomalyMultiplier is the invoice-vs-historical-average ratio above
// which an amount spike anomaly is raised.
var AnomalyMultiplier = decimal.NewFromInt(5)

// AmountVarianceTolerance caps the relative variance between invoice and
// PO amounts. A large discrepancy, even when under-billing, suggests a
// wrong invoice/PO pairing or an extraction error.
var AmountVarianceTolerance = decimal.NewFromFloat(0.20)

// maxPaymentTermDays flags unusually long payment terms.
const maxPaymentTermDays = 180

// ValidateQuantityMatch checks delivered quantity against the sum of
// invoice line-item quantities. Skipped (auto-pass) when the invoice has
// no line items.
func ValidateQuantityMatch(pod ProofOfDelivery, invoice Invoice) ValidationCheck {
	if len(invoice.LineItems) == 0 {
		return ValidationCheck{
			RuleName: "quantity_match",
			Passed:   true,
			Message:  "Quantity match: OK",
			Details:  map[string]string{},
		}
	}

	podQty := pod.QuantityDelivered.Value
	invQty := invoice.TotalQuantity()
	diff := podQty.Sub(invQty).Abs()
	passed := diff.LessThanOrEqual(DecimalTolerance)

	msg := "Quantity matches"
	if !passed {
		msg = fmt.Sprintf("Quantity mismatch: delivered %s vs billed %s", podQty, invQty)
	}
	return ValidationCheck{
		RuleName: "quantity_match",
		Passed:   passed,
		Message:  msg,
		Details: map[string]string{
			"pod_quantity":     podQty.String(),
			"invoice_quantity": invQty.String(),
			"difference":       diff.String(),
		},
	}
}

// ValidateAmountAuthorization checks the invoice total against the
// authorized PO amount. Currency mismatch is a hard failure since the
// amounts are incomparable. Over-billing beyond tolerance fails, and so
// does a relative variance above 20% even when under-billing.
func ValidateAmountAuthorization(invoice Invoice, po PurchaseOrder) ValidationCheck {
	invoiceTotal := invoice.TotalAmount.Value
	authorized := po.AuthorizedAmount.Value

	if invoice.Currency.Value != po.Currency.Value {
		return ValidationCheck{
			RuleName: "amount_authorization",
			Passed:   false,
			Message:  fmt.Sprintf("Currency mismatch: Invoice %s vs PO %s", invoice.Currency.Value, po.Currency.Value),
			Details: map[string]string{
				"invoice_currency": invoice.Currency.Value,
				"po_currency":      po.Currency.Value,
			},
		}
	}

	exceedsPO := invoiceTotal.GreaterThan(authorized.Add(DecimalTolerance))

	variance := decimal.Zero
	if authorized.IsPositive() {
		variance = invoiceTotal.Sub(authorized).Abs().Div(authorized)
	}
	variancePct := variance.Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"

	if exceedsPO {
		return ValidationCheck{
			RuleName: "amount_authorization",
			Passed:   false,
			Message:  fmt.Sprintf("Invoice $%s exceeds authorized PO $%s", invoiceTotal, authorized),
			Details: map[string]string{
				"invoice_total":     invoiceTotal.String(),
				"authorized_amount": authorized.String(),
				"variance_pct":      variancePct,
			},
		}
	}

	if variance.GreaterThan(AmountVarianceTolerance) {
		return ValidationCheck{
			RuleName: "amount_authorization",
			Passed:   false,
			Message:  fmt.Sprintf("Amount mismatch: Invoice $%s vs PO $%s (%s variance)", invoiceTotal, authorized, variancePct),
			Details: map[string]string{
				"invoice_total":        invoiceTotal.String(),
				"authorized_amount":    authorized.String(),
				"variance_pct":         variancePct,
				"max_allowed_variance": AmountVarianceTolerance.Mul(decimal.NewFromInt(100)).StringFixed(0) + "%",
				"note":                 "Invoice and PO amounts should match within tolerance",
			},
		}
	}

	return ValidationCheck{
		RuleName: "amount_authorization",
		Passed:   true,
		Message:  fmt.Sprintf("Invoice $%s matches authorized PO $%s", invoiceTotal, authorized),
		Details: map[string]string{
			"invoice_total":     invoiceTotal.String(),
			"authorized_amount": authorized.String(),
			"variance_pct":      variancePct,
		},
	}
}

// ValidateDateSequence checks that documents follow the logical order
// PO date <= delivery date <= invoice date, catching backdated documents.
func ValidateDateSequence(po PurchaseOrder, pod ProofOfDelivery, invoice Invoice) ValidationCheck {
	poDate := po.PODate.Value
	podDate := pod.DeliveryDate.Value
	invDate := invoice.InvoiceDate.Value

	var errs []string
	if poDate.After(podDate) {
		errs = append(errs, fmt.Sprintf("PO date (%s) is after delivery date (%s)", fmtDate(poDate), fmtDate(podDate)))
	}
	if podDate.After(invDate) {
		errs = append(errs, fmt.Sprintf("Delivery date (%s) is after invoice date (%s)", fmtDate(podDate), fmtDate(invDate)))
	}

	passed := len(errs) == 0
	msg := "Date sequence valid"
	if !passed {
		msg = strings.Join(errs, "; ")
	}
	return ValidationCheck{
		RuleName: "date_sequence",
		Passed:   passed,
		Message:  msg,
		Details: map[string]string{
			"po_date":      fmtDate(poDate),
			"pod_date":     fmtDate(podDate),
			"invoice_date": fmtDate(invDate),
		},
	}
}

// ValidateLineItemSum checks that line-item totals sum to the stated
// invoice total. Skipped (auto-pass) when there are no line items.
func ValidateLineItemSum(invoice Invoice) ValidationCheck {
	if len(invoice.LineItems) == 0 {
		return ValidationCheck{
			RuleName: "line_item_sum",
			Passed:   true,
			Message:  "No line items to validate",
			Details:  map[string]string{"note": "Skipped - no line items present"},
		}
	}

	calculated := invoice.CalculatedTotal()
	stated := invoice.TotalAmount.Value
	diff := calculated.Sub(stated).Abs()
	passed := diff.LessThanOrEqual(DecimalTolerance)

	msg := fmt.Sprintf("Line items sum to %s, matches total %s", calculated, stated)
	if !passed {
		msg = fmt.Sprintf("Sum mismatch: line items = %s, stated total = %s", calculated, stated)
	}
	return ValidationCheck{
		RuleName: "line_item_sum",
		Passed:   passed,
		Message:  msg,
		Details: map[string]string{
			"calculated_sum":  calculated.String(),
			"stated_total":    stated.String(),
			"difference":      diff.String(),
			"line_item_count": strconv.Itoa(len(invoice.LineItems)),
		},
	}
}

// ValidatePartyNames fuzzily matches the invoice payee against the PO
// vendor and the invoice payer against the PO buyer. Intentionally
// lenient: names arrive through OCR and carry noise.
func ValidatePartyNames(bundle DocumentBundle) ValidationCheck {
	invoicePayee := bundle.Invoice.PayeeName.Value
	poVendor := bundle.PurchaseOrder.VendorName.Value
	invoicePayer := bundle.Invoice.PayerName.Value
	poBuyer := bundle.PurchaseOrder.BuyerName.Value

	var warnings []string
	if !fuzzyNameMatch(invoicePayee, poVendor) {
		warnings = append(warnings, fmt.Sprintf("Payee mismatch: Invoice '%s' vs PO vendor '%s'", invoicePayee, poVendor))
	}
	if !fuzzyNameMatch(invoicePayer, poBuyer) {
		warnings = append(warnings, fmt.Sprintf("Payer mismatch: Invoice '%s' vs PO buyer '%s'", invoicePayer, poBuyer))
	}

	passed := len(warnings) == 0
	msg := "Party names consistent"
	details := map[string]string{
		"invoice_payee": invoicePayee,
		"po_vendor":     poVendor,
		"invoice_payer": invoicePayer,
		"po_buyer":      poBuyer,
	}
	if !passed {
		msg = strings.Join(warnings, "; ")
		details["note"] = "Fuzzy matching enabled for OCR tolerance"
	}
	return ValidationCheck{
		RuleName: "party_names",
		Passed:   passed,
		Message:  msg,
		Details:  details,
	}
}

// normalizeName lowercases and strips legal-entity suffixes and common
// OCR artifacts before comparison.
func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, suffix := range []string{" pte ltd", " pte. ltd.", " pte", " ltd", " inc", " corp", " llc", "."} {
		name = strings.ReplaceAll(name, suffix, "")
	}
	for _, artifact := range []string{"p.o.", "po-", "stamp", "company"} {
		name = strings.ReplaceAll(name, artifact, "")
	}
	return strings.TrimSpace(name)
}

// fuzzyNameMatch accepts a normalized exact match, substring containment,
// or any shared significant word longer than 3 characters.
func fuzzyNameMatch(a, b string) bool {
	n1 := normalizeName(a)
	n2 := normalizeName(b)

	// Empty or unknown names - skip validation.
	if n1 == "" || n2 == "" || n1 == "unknown" || n2 == "unknown" {
		return true
	}
	if n1 == n2 {
		return true
	}
	if strings.Contains(n1, n2) || strings.Contains(n2, n1) {
		return true
	}

	words1 := strings.Fields(n1)
	words2 := map[string]bool{}
	for _, w := range strings.Fields(n2) {
		words2[w] = true
	}
	for _, w := range words1 {
		if len(w) > 3 && words2[w] {
			return true
		}
	}
	return false
}

// DetectAnomalies runs the non-blocking heuristics over an invoice.
// Anomalies are review signals, not automatic failures.
func DetectAnomalies(invoice Invoice, historicalAverage *decimal.Decimal) []Anomaly {
	var anomalies []Anomaly

	if historicalAverage != nil && historicalAverage.IsPositive() {
		ratio := invoice.TotalAmount.Value.Div(*historicalAverage)
		if ratio.GreaterThan(AnomalyMultiplier) {
			anomalies = append(anomalies, Anomaly{
				Code:          "AMOUNT_SPIKE",
				Message:       fmt.Sprintf("Invoice %s%% larger than historical average", ratio.Mul(decimal.NewFromInt(100)).StringFixed(0)),
				Severity:      constants.SeverityWarning,
				FieldPath:     "invoice.total_amount",
				ExpectedValue: historicalAverage.String(),
				ActualValue:   invoice.TotalAmount.Value.String(),
			})
		}
	}

	if invoice.DueDate.Value.After(invoice.InvoiceDate.Value) {
		daysUntilDue := int(invoice.DueDate.Value.Sub(invoice.InvoiceDate.Value).Hours() / 24)
		if daysUntilDue > maxPaymentTermDays {
			anomalies = append(anomalies, Anomaly{
				Code:          "LONG_TERM",
				Message:       fmt.Sprintf("Unusually long payment term: %d days", daysUntilDue),
				Severity:      constants.SeverityWarning,
				FieldPath:     "invoice.due_date",
				ExpectedValue: fmt.Sprintf("< %d days", maxPaymentTermDays),
				ActualValue:   fmt.Sprintf("%d days", daysUntilDue),
			})
		}
	}

	for i, item := range invoice.LineItems {
		if item.HasMathError() {
			anomalies = append(anomalies, Anomaly{
				Code:          "LINE_ITEM_MATH",
				Message:       fmt.Sprintf("Line item %d: qty * price != total", i+1),
				Severity:      constants.SeverityWarning,
				FieldPath:     fmt.Sprintf("invoice.line_items[%d]", i),
				ExpectedValue: item.CalculatedTotal().String(),
				ActualValue:   item.Total.Value.String(),
			})
		}
	}

	return anomalies
}

// CollectReviewFlags returns field paths whose confidence fell below the
// threshold. Only fields the 3-way match actually depends on are
// flagged; decorative fields do not force a review cycle.
func CollectReviewFlags(bundle DocumentBundle, confidenceThreshold float64) []string {
	var flags []string

	inv := bundle.Invoice
	if inv.TotalAmount.Confidence < confidenceThreshold {
		flags = append(flags, "invoice.total_amount")
	}
	if inv.InvoiceNumber.Confidence < confidenceThreshold {
		flags = append(flags, "invoice.invoice_number")
	}

	po := bundle.PurchaseOrder
	if po.AuthorizedAmount.Confidence < confidenceThreshold {
		flags = append(flags, "purchase_order.authorized_amount")
	}
	if po.PONumber.Confidence < confidenceThreshold {
		flags = append(flags, "purchase_order.po_number")
	}

	pod := bundle.ProofOfDelivery
	if pod.QuantityDelivered.Confidence < confidenceThreshold {
		flags = append(flags, "proof_of_delivery.quantity_delivered")
	}
	if pod.DeliveryDate.Confidence < confidenceThreshold {
		flags = append(flags, "proof_of_delivery.delivery_date")
	}

	return flags
}

// RunFullVerification executes every rule, the anomaly heuristics, and
// review-flag collection on a bundle, then resolves the overall status:
// FAILED beats REQUIRES_REVIEW beats PASSED.
func RunFullVerification(bundle DocumentBundle, historicalAverage *decimal.Decimal, confidenceThreshold float64) VerificationResult {
	checks := []ValidationCheck{
		ValidateQuantityMatch(bundle.ProofOfDelivery, bundle.Invoice),
		ValidateAmountAuthorization(bundle.Invoice, bundle.PurchaseOrder),
		ValidateDateSequence(bundle.PurchaseOrder, bundle.ProofOfDelivery, bundle.Invoice),
		ValidateLineItemSum(bundle.Invoice),
		ValidatePartyNames(bundle),
	}

	anomalies := DetectAnomalies(bundle.Invoice, historicalAverage)
	reviewFlags := CollectReviewFlags(bundle, confidenceThreshold)

	result := VerificationResult{
		Checks:      checks,
		Anomalies:   anomalies,
		ReviewFlags: reviewFlags,
	}

	switch {
	case !result.AllChecksPassed() || result.HasBlockingAnomalies():
		result.Status = constants.StatusFailed
	case len(reviewFlags) > 0:
		result.Status = constants.StatusRequiresReview
	default:
		result.Status = constants.StatusPassed
	}
	return result
}

func fmtDate(t time.Time) string {
	return t.Format("2006-01-02")
}
