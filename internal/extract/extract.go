package extract

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eulaprotocol/triway/internal/domain"
	"github.com/eulaprotocol/triway/internal/ocr"
)

// Hybrid regex + label-proximity extraction. Patterns find every
// candidate in the text; label proximity picks the winner when the
// document mentions the same kind of value more than once. Pattern and
// label slices are ordered on purpose: tie-breaks and most-specific-first
// behavior depend on enumeration order.

// Extraction confidences.
const (
	basePatternConfidence = 0.85
	labeledConfidence     = 0.95
	labelBoost            = 0.10
	boostCap              = 0.98
	fallbackConfidence    = 0.6

	labelProximityChars = 100 // identifier matches within this of a label get the boost
	amountWindowChars   = 200 // amount scan window starting at a label
	dateWindowChars     = 150 // a date must sit this close after its label
	quantityWindowChars = 100
	nameBlockWindow     = 5 // blocks scanned after a name label
)

// UnknownValue is the sentinel for identifier and name fields when no
// pattern matched anywhere.
const UnknownValue = "UNKNOWN"

var invoiceNumberPatterns = compileAll(
	`(?i)Invoice\s*No\s*[:\s]*(\d{5,})`,
	`(?i)Invoice\s*No\s*[:\s]*([A-Z0-9\-]+)`,
	`(?i)(INV[-\s]?\d{4}[-\s]?\d{3,})`,
	`(?i)Invoice\s*#?\s*([A-Z0-9\-]+)`,
	`(?i)Invoice\s+(?:No|Number)[:\s]*([A-Z0-9\-]+)`,
	`(?i)#\s*([A-Z]{2,4}\-?\d{4,})`,
)

var poNumberPatterns = compileAll(
	`(?i)P\.O\.\s*Number\s*[:\s]*([A-Z0-9\-]+)`,
	`(?i)(?:PO|Purchase\s*Order)[#:\-\s]*([A-Z0-9\-]+)`,
	`(?i)P\.?O\.?\s*(?:No|Number|#)?[:\s]*([A-Z0-9\-]+)`,
	`(?i)Order\s*(?:No|Number|#)?[:\s]*([A-Z0-9\-]+)`,
)

var deliveryRefPatterns = compileAll(
	`(?i)Delivery\s+Ref\s*[:\s]*([A-Z0-9\-]+)`,
	`(?i)(?:DEL|Delivery|DN)[#:\-\s]*([A-Z0-9\-]+)`,
	`(?i)Delivery\s+(?:Note|Ref|Reference)?[:\s]*([A-Z0-9\-]+)`,
	`(?i)(?:Receipt|Received)[#:\-\s]*([A-Z0-9\-]+)`,
)

var amountPatterns = compileAll(
	`(?i)S\$\s*([\d,]+\.?\d{0,2})`,
	`(?i)SGD\s*([\d,]+\.?\d{0,2})`,
	`(?i)SS([\d,]+\.?\d{0,2})`, // recognition misread of S$
	`(?i)[\$]\s*([\d,]+\.?\d{0,2})`,
	`(?i)([\d,]+\.?\d{0,2})\s*(?:USD|dollars?|SGD)`,
	`(?i)(?:Total|Amount|Due|Subtotal|Balance)[:\s]*[S\$]*\s*([\d,]+\.?\d{0,2})`,
	`(?i)([\d]{1,3}(?:,\d{3})*\.?\d{0,2})`,
)

// datePatterns pair a capture regex with the layout the captured text is
// expected to follow.
var datePatterns = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`(\d{4}[-/]\d{1,2}[-/]\d{1,2})`), "2006-01-02"},
	{regexp.MustCompile(`(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`), "01/02/2006"},
	{regexp.MustCompile(`(?i)((?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4})`), "January 2, 2006"},
	{regexp.MustCompile(`(?i)((?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4})`), "Jan 2, 2006"},
}

// fallbackDateLayouts are tried after a match's primary layout, against
// separator-normalized text.
var fallbackDateLayouts = []string{"January 2 2006", "Jan 2 2006", "01/02/2006", "2006/01/02"}

var quantityPatterns = compileAll(
	`(?i)(?:Qty|Quantity|Units?|Received)[:\s]*(\d+)`,
	`(?i)(\d+)\s*(?:units?|pcs?|items?)`,
	`(?i)Total\s+Quantity[:\s]*(\d+)`,
)

var plainNumberRe = regexp.MustCompile(`(\d+)`)

// Name extraction vocabulary.
var nameLabelPrefixes = []string{
	"(seller):", "(buyer):", "seller:", "buyer:",
	"from:", "to:", "vendor:", "customer:", "company:",
	"bill to:", "ship to:", "sold by:", "sold to:",
	"from (buyer):", "to (vendor):", "deliver to:",
	"from (shipper):", "shipper:", "recipient:",
}

var nameSkipWords = []string{
	"tax", "invoice", "purchase", "order", "delivery", "proof",
	"gst", "reg", "page", "date", "number", "no", "total",
	"p.o.", "po-", "del-", "inv-",
}

var nameStopWords = []string{"date:", "invoice no", "po:", "total:", "amount:", "qty:", "phone:", "fax:"}

var nameBareLabels = map[string]bool{
	"seller": true, "buyer": true, "from": true, "to": true,
	"vendor": true, "customer": true, "ship": true, "bill": true,
}

var referenceTokenRe = regexp.MustCompile(`(?i)^[A-Z]{2,4}[-\s]?[A-Z0-9]{2,4}[-\s]?\d{3,}`)

// Deliberately case-sensitive: the capitalization IS the signal.
var companyPatterns = compileAll(
	`([A-Z][A-Z\s]+(?:PTE\.?\s*LTD\.?|LTD\.?|INC\.?|CORP\.?|LLC))`,
	`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\s+(?:Ltd|Inc|Corp|LLC))`,
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// SmartExtractor finds semantic fields in recognition output. Given the
// same text and label list it always returns the same answer.
type SmartExtractor struct {
	logger *slog.Logger
}

// NewSmartExtractor returns an extractor logging through the given logger.
func NewSmartExtractor(logger *slog.Logger) *SmartExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SmartExtractor{logger: logger}
}

// ExtractInvoiceNumber extracts the invoice number.
func (e *SmartExtractor) ExtractInvoiceNumber(res *ocr.Result) domain.Field[string] {
	labels := []string{"invoice", "inv", "invoice no", "invoice #", "invoice number"}
	return e.extractWithPatterns(res, invoiceNumberPatterns, labels, "invoice_number")
}

// ExtractPONumber extracts the purchase order number.
func (e *SmartExtractor) ExtractPONumber(res *ocr.Result) domain.Field[string] {
	labels := []string{"po", "purchase order", "po #", "order"}
	return e.extractWithPatterns(res, poNumberPatterns, labels, "po_number")
}

// ExtractDeliveryReference extracts the delivery reference number.
func (e *SmartExtractor) ExtractDeliveryReference(res *ocr.Result) domain.Field[string] {
	labels := []string{"delivery", "del", "receipt", "reference"}
	return e.extractWithPatterns(res, deliveryRefPatterns, labels, "delivery_reference")
}

type amountCandidate struct {
	value      decimal.Decimal
	confidence float64
	raw        string
}

// ExtractAmount extracts a monetary amount. Amounts found inside a
// window starting at a label occurrence outrank document-wide matches.
// With preferLargest set, the largest labeled amount wins - totals are
// typically the biggest number near their label.
func (e *SmartExtractor) ExtractAmount(res *ocr.Result, labels []string, preferLargest bool) domain.Field[decimal.Decimal] {
	fullText := res.FullText()

	allAmounts := findAmounts(fullText, basePatternConfidence)
	if len(allAmounts) == 0 {
		e.logger.Debug("extract.amount.none")
		return domain.NewField(decimal.Zero, 0, nil, "")
	}

	var labeled []amountCandidate
	lowerText := strings.ToLower(fullText)
	for _, label := range labels {
		pos := strings.Index(lowerText, strings.ToLower(label))
		if pos == -1 {
			continue
		}
		end := pos + amountWindowChars
		if end > len(fullText) {
			end = len(fullText)
		}
		labeled = append(labeled, findAmounts(fullText[pos:end], labeledConfidence)...)
	}

	if len(labeled) > 0 {
		best := labeled[0]
		for _, c := range labeled[1:] {
			if preferLargest {
				if c.value.GreaterThan(best.value) {
					best = c
				}
			} else if c.confidence > best.confidence {
				best = c
			}
		}
		e.logger.Info("extract.amount.ok", "value", best.value, "confidence", best.confidence, "raw", best.raw)
		return domain.NewField(best.value, best.confidence, nil, best.raw)
	}

	// No labeled candidate: fall back to the single largest amount in
	// the document at reduced confidence.
	best := allAmounts[0]
	for _, c := range allAmounts[1:] {
		if c.value.GreaterThan(best.value) {
			best = c
		}
	}
	e.logger.Warn("extract.amount.fallback", "value", best.value)
	return domain.NewField(best.value, fallbackConfidence, nil, best.raw)
}

func findAmounts(text string, confidence float64) []amountCandidate {
	var out []amountCandidate
	for _, re := range amountPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			raw := m[1]
			cleaned := strings.TrimSpace(strings.NewReplacer(",", "", "$", "").Replace(raw))
			if cleaned == "" || cleaned == "." {
				continue
			}
			value, err := decimal.NewFromString(cleaned)
			if err != nil || !value.IsPositive() {
				continue
			}
			out = append(out, amountCandidate{value: value, confidence: confidence, raw: raw})
		}
	}
	return out
}

type dateCandidate struct {
	value time.Time
	raw   string
	pos   int
}

// ExtractDate extracts a date. Labels are tried most-specific-first
// (longest label first) so "date" cannot pre-empt "due date"; the date
// closest after the winning label, within the window, is selected.
func (e *SmartExtractor) ExtractDate(res *ocr.Result, labels []string) domain.Field[time.Time] {
	fullText := res.FullText()

	var all []dateCandidate
	for _, dp := range datePatterns {
		for _, loc := range dp.re.FindAllStringSubmatchIndex(fullText, -1) {
			raw := fullText[loc[2]:loc[3]]
			if t, ok := parseDateMatch(raw, dp.layout); ok {
				all = append(all, dateCandidate{value: t, raw: raw, pos: loc[2]})
			}
		}
	}

	if len(all) == 0 {
		e.logger.Debug("extract.date.none")
		return domain.NewField(dateOnly(time.Now().UTC()), 0, nil, "")
	}

	sorted := make([]string, len(labels))
	copy(sorted, labels)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	lowerText := strings.ToLower(fullText)
	for _, label := range sorted {
		labelPos := strings.Index(lowerText, strings.ToLower(label))
		if labelPos == -1 {
			continue
		}

		var after []dateCandidate
		for _, c := range all {
			if c.pos > labelPos && c.pos < labelPos+dateWindowChars {
				after = append(after, c)
			}
		}
		if len(after) == 0 {
			continue
		}

		closest := after[0]
		for _, c := range after[1:] {
			if c.pos-labelPos < closest.pos-labelPos {
				closest = c
			}
		}
		e.logger.Info("extract.date.ok", "label", label, "value", fmtDate(closest.value))
		return domain.NewField(closest.value, labeledConfidence, nil, closest.raw)
	}

	// No label matched: first date in the document at reduced confidence.
	e.logger.Warn("extract.date.fallback", "value", fmtDate(all[0].value))
	return domain.NewField(all[0].value, fallbackConfidence, nil, all[0].raw)
}

func parseDateMatch(raw, layout string) (time.Time, bool) {
	normalized := strings.NewReplacer("-", "/", ",", "", "\n", " ").Replace(raw)
	for _, l := range append([]string{layout}, fallbackDateLayouts...) {
		if t, err := time.Parse(l, normalized); err == nil {
			return dateOnly(t), true
		}
	}
	return time.Time{}, false
}

// ExtractQuantity extracts a quantity: quantity-shaped patterns inside a
// label window first, then any plain number close after a label.
func (e *SmartExtractor) ExtractQuantity(res *ocr.Result, labels []string) domain.Field[decimal.Decimal] {
	fullText := res.FullText()
	lowerText := strings.ToLower(fullText)

	for _, label := range labels {
		pos := strings.Index(lowerText, strings.ToLower(label))
		if pos == -1 {
			continue
		}
		end := pos + quantityWindowChars
		if end > len(fullText) {
			end = len(fullText)
		}
		window := fullText[pos:end]

		for _, re := range quantityPatterns {
			m := re.FindStringSubmatch(window)
			if m == nil {
				continue
			}
			if qty, err := decimal.NewFromString(m[1]); err == nil {
				e.logger.Info("extract.quantity.ok", "value", qty)
				return domain.NewField(qty, 0.9, nil, m[1])
			}
		}
	}

	for _, label := range labels {
		pos := strings.Index(lowerText, strings.ToLower(label))
		if pos == -1 {
			continue
		}
		end := pos + 50
		if end > len(fullText) {
			end = len(fullText)
		}
		if m := plainNumberRe.FindStringSubmatch(fullText[pos:end]); m != nil {
			if qty, err := decimal.NewFromString(m[1]); err == nil {
				return domain.NewField(qty, 0.7, nil, m[1])
			}
		}
	}

	return domain.NewField(decimal.Zero, 0, nil, "")
}

// ExtractName extracts a company or person name near a label, scanning
// the following blocks and skipping labels, header noise, and
// reference-shaped tokens. Falls back to a company-suffix scan over the
// whole document.
func (e *SmartExtractor) ExtractName(res *ocr.Result, labels []string) domain.Field[string] {
	blocks := res.AllBlocks()

	for i, block := range blocks {
		textLower := strings.ToLower(strings.TrimSpace(block.Text))
		for _, label := range labels {
			if !strings.Contains(textLower, strings.ToLower(label)) {
				continue
			}

			var parts []string
			totalConf := 0.0
			for j := i + 1; j < len(blocks) && j <= i+nameBlockWindow; j++ {
				next := strings.TrimSpace(blocks[j].Text)
				nextLower := strings.ToLower(next)

				if containsAny(nextLower, nameStopWords) {
					break
				}
				if len(next) <= 2 {
					continue
				}
				if nameBareLabels[strings.TrimRight(nextLower, ":")] {
					continue
				}
				if containsAny(nextLower, nameSkipWords) {
					continue
				}
				if referenceTokenRe.MatchString(next) {
					continue
				}

				cleaned := next
				for _, prefix := range nameLabelPrefixes {
					if strings.HasPrefix(strings.ToLower(cleaned), prefix) {
						cleaned = strings.TrimSpace(cleaned[len(prefix):])
					}
				}
				if len(cleaned) > 1 {
					parts = append(parts, cleaned)
					totalConf += blocks[j].Confidence
				}
			}

			if len(parts) > 0 {
				avgConf := totalConf / float64(len(parts))
				if len(parts) > 3 {
					parts = parts[:3]
				}
				name := strings.Join(parts, " ")
				e.logger.Info("extract.name.ok", "label", label, "value", name, "confidence", avgConf)
				return domain.NewField(name, avgConf, nil, name)
			}
		}
	}

	fullText := res.FullText()
	for _, re := range companyPatterns {
		if m := re.FindStringSubmatch(fullText); m != nil {
			name := strings.TrimSpace(m[1])
			e.logger.Info("extract.name.pattern", "value", name)
			return domain.NewField(name, 0.75, nil, name)
		}
	}

	return domain.NewField(UnknownValue, 0, nil, "")
}

type patternMatch struct {
	value      string
	start      int
	confidence float64
}

// extractWithPatterns is the generic identifier extraction: every
// pattern match starts at the base confidence, matches near a label get
// a capped boost, and the highest-confidence match wins with ties broken
// by pattern declaration order.
func (e *SmartExtractor) extractWithPatterns(res *ocr.Result, patterns []*regexp.Regexp, labels []string, fieldName string) domain.Field[string] {
	fullText := res.FullText()

	var matches []patternMatch
	for _, re := range patterns {
		for _, loc := range re.FindAllStringSubmatchIndex(fullText, -1) {
			if loc[2] < 0 {
				continue
			}
			value := fullText[loc[2]:loc[3]]
			if len(value) >= 2 {
				matches = append(matches, patternMatch{value: value, start: loc[0], confidence: basePatternConfidence})
			}
		}
	}

	if len(matches) == 0 {
		e.logger.Warn("extract.pattern.none", "field", fieldName)
		return domain.NewField(UnknownValue, 0, nil, "")
	}

	lowerText := strings.ToLower(fullText)
	for _, label := range labels {
		labelPos := strings.Index(lowerText, strings.ToLower(label))
		if labelPos == -1 {
			continue
		}
		for i := range matches {
			distance := matches[i].start - labelPos
			if distance < 0 {
				distance = -distance
			}
			if distance < labelProximityChars {
				matches[i].confidence = min(boostCap, matches[i].confidence+labelBoost)
			}
		}
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if m.confidence > best.confidence {
			best = m
		}
	}
	e.logger.Info("extract.pattern.ok", "field", fieldName, "value", best.value, "confidence", best.confidence)
	return domain.NewField(best.value, best.confidence, nil, best.value)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func fmtDate(t time.Time) string { return t.Format("2006-01-02") }
