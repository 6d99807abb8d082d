package extract

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eulaprotocol/triway/internal/domain"
	"github.com/eulaprotocol/triway/internal/ocr"
)

// ocrCharFixes maps frequently confused characters to the digits they
// usually are inside numeric text.
var ocrCharFixes = [][2]string{
	{"S", "5"},
	{"s", "5"},
	{"O", "0"},
	{"o", "0"},
	{"l", "1"},
	{"I", "1"},
	{"B", "8"},
	{"Z", "2"},
	{"g", "9"},
	{"G", "6"},
}

// currencySymbols are stripped before amount parsing, longest first so
// "S$" goes before "$".
var currencySymbols = []string{"S$", "SGD", "CHF", "USD", "EUR", "GBP", "$", "€", "£", "¥", "₹"}

// dateLayouts are tried in order of preference.
var dateLayouts = []string{
	"2006-01-02",      // ISO
	"02/01/2006",      // European
	"01/02/2006",      // US
	"02-01-2006",      // European with dashes
	"01-02-2006",      // US with dashes
	"2 Jan 2006",      // 15 Jan 2024
	"2 January 2006",  // 15 January 2024
	"Jan 2, 2006",     // Jan 15, 2024
	"January 2, 2006", // January 15, 2024
}

var (
	numericRunRe   = regexp.MustCompile(`[\dSsOolIBZgG,.\-]+`)
	nonAmountRe    = regexp.MustCompile(`[^\d.]`)
	looseDateRe    = regexp.MustCompile(`(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{2,4})`)
	leadingQtyRe   = regexp.MustCompile(`^[\d,]+\.?\d*`)
	controlCharsRe = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

var (
	maxPlausibleAmount   = decimal.RequireFromString("1000000000")
	maxPlausibleQuantity = decimal.RequireFromString("1000000")
)

// Normalizer converts raw recognition text into typed values, correcting
// common character confusions and multi-locale formats. Methods never
// return an error: parse failure yields a zero-value field with
// confidence 0 and the raw text preserved, so review logic can surface
// it instead of the pipeline crashing.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer returns a Normalizer logging through the given logger.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// NormalizeAmount parses a monetary amount. Returned soft errors flag
// suspicious values (negative, implausibly large) without rejecting
// them; the caller decides what a suspicious amount means.
func (n *Normalizer) NormalizeAmount(text string, confidence float64, box *ocr.BoundingBox) (domain.Field[decimal.Decimal], []string) {
	var softErrs []string

	cleaned := strings.TrimSpace(text)
	for _, sym := range currencySymbols {
		cleaned = strings.ReplaceAll(cleaned, sym, "")
	}
	cleaned = fixOCRErrors(strings.TrimSpace(cleaned))

	// Disambiguate European (1.234,56) vs US (1,234.56) grouping: the
	// later-occurring separator is the decimal point.
	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case hasComma:
		// Exactly two trailing digits means decimal comma, otherwise a
		// thousands separator.
		parts := strings.Split(cleaned, ",")
		if len(parts) == 2 && len(parts[1]) == 2 {
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	cleaned = nonAmountRe.ReplaceAllString(cleaned, "")

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		n.logger.Warn("normalize.amount.unparseable", "raw", text)
		return domain.NewField(decimal.Zero, 0, box, text), []string{"parse error: " + err.Error()}
	}

	if value.IsNegative() {
		softErrs = append(softErrs, "negative amount detected")
	}
	if value.GreaterThan(maxPlausibleAmount) {
		softErrs = append(softErrs, "unusually large amount")
	}

	return domain.NewField(value, confidence, box, text), softErrs
}

// NormalizeDate parses a date, trying the explicit layout ladder first
// and falling back to loose day/month/year extraction at half
// confidence. A completely unparseable date returns today with
// confidence exactly 0; the exact zero distinguishes the sentinel from a
// genuine low-confidence parse.
func (n *Normalizer) NormalizeDate(text string, confidence float64, box *ocr.BoundingBox) domain.Field[time.Time] {
	cleaned := fixOCRErrors(strings.TrimSpace(text))

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return domain.NewField(dateOnly(t), confidence, box, text)
		}
	}

	if m := looseDateRe.FindStringSubmatch(cleaned); m != nil {
		year := atoiSafe(m[3])
		if year < 100 {
			year += 2000
		}
		// Day-then-month first, month-then-day second.
		if t, ok := makeDate(year, atoiSafe(m[2]), atoiSafe(m[1])); ok {
			return domain.NewField(t, confidence*0.5, box, text)
		}
		if t, ok := makeDate(year, atoiSafe(m[1]), atoiSafe(m[2])); ok {
			return domain.NewField(t, confidence*0.5, box, text)
		}
	}

	n.logger.Warn("normalize.date.unparseable", "raw", text)
	return domain.NewField(dateOnly(time.Now().UTC()), 0, box, text)
}

// NormalizeQuantity parses a quantity, ignoring trailing unit words.
// Negative values are clamped to their absolute value; unusually large
// values are flagged, not rejected.
func (n *Normalizer) NormalizeQuantity(text string, confidence float64, box *ocr.BoundingBox) (domain.Field[decimal.Decimal], []string) {
	var softErrs []string

	cleaned := fixOCRErrors(strings.TrimSpace(text))
	if m := leadingQtyRe.FindString(cleaned); m != "" {
		cleaned = m
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		n.logger.Warn("normalize.quantity.unparseable", "raw", text)
		return domain.NewField(decimal.Zero, 0, box, text), []string{"parse error: " + err.Error()}
	}

	if value.IsNegative() {
		value = value.Abs()
	}
	if value.GreaterThan(maxPlausibleQuantity) {
		softErrs = append(softErrs, "unusually large quantity")
	}

	return domain.NewField(value, confidence, box, text), softErrs
}

// NormalizeString strips control characters and collapses whitespace.
func (n *Normalizer) NormalizeString(text string, confidence float64, box *ocr.BoundingBox) domain.Field[string] {
	cleaned := controlCharsRe.ReplaceAllString(text, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	return domain.NewField(cleaned, confidence, box, text)
}

// fixOCRErrors applies character substitutions only inside runs that
// already look numeric, so alphabetic text elsewhere is never corrupted.
// A run with no digit at all is left alone ("October" is not "0ct0ber").
func fixOCRErrors(text string) string {
	return numericRunRe.ReplaceAllStringFunc(text, func(run string) string {
		if !strings.ContainsAny(run, "0123456789") {
			return run
		}
		for _, fix := range ocrCharFixes {
			run = strings.ReplaceAll(run, fix[0], fix[1])
		}
		return run
	})
}

// makeDate builds a calendar-valid date or reports failure.
func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
