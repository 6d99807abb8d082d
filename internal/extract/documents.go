package extract

import (
	"log/slog"
	"strings"

	"github.com/eulaprotocol/triway/internal/domain"
	"github.com/eulaprotocol/triway/internal/ocr"
)

// DefaultCurrency is assumed when the document does not state one.
const DefaultCurrency = "USD"

// DocumentBuilder turns recognition output into typed document records:
// table detection for line items, smart extraction for the semantic
// fields, normalization for the raw cell text.
type DocumentBuilder struct {
	tables     *ocr.TableDetector
	extractor  *SmartExtractor
	normalizer *Normalizer
	logger     *slog.Logger
}

// NewDocumentBuilder wires a builder from its parts. Nil parts get
// defaults.
func NewDocumentBuilder(tables *ocr.TableDetector, extractor *SmartExtractor, normalizer *Normalizer, logger *slog.Logger) *DocumentBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	if tables == nil {
		tables = ocr.NewTableDetector()
	}
	if extractor == nil {
		extractor = NewSmartExtractor(logger)
	}
	if normalizer == nil {
		normalizer = NewNormalizer(logger)
	}
	return &DocumentBuilder{tables: tables, extractor: extractor, normalizer: normalizer, logger: logger}
}

// BuildInvoice assembles an Invoice record from recognition output.
func (b *DocumentBuilder) BuildInvoice(res *ocr.Result) domain.Invoice {
	b.logBlocks("invoice", res)

	tables := b.tables.DetectTables(res)
	b.logger.Info("build.invoice.tables", "count", len(tables))

	invoiceNumber := b.extractor.ExtractInvoiceNumber(res)
	totalAmount := b.extractor.ExtractAmount(res,
		[]string{"total", "amount due", "balance due", "grand total", "total due"}, true)
	invoiceDate := b.extractor.ExtractDate(res, []string{"invoice date", "date", "issued"})
	dueDate := b.extractor.ExtractDate(res, []string{"due date", "payment due", "pay by", "due"})
	payeeName := b.extractor.ExtractName(res, []string{"from", "seller", "vendor", "company", "sold by"})
	payerName := b.extractor.ExtractName(res, []string{"to", "bill to", "buyer", "customer", "sold to"})

	var lineItems []domain.LineItem
	if table := lineItemTable(tables); table != nil {
		lineItems = b.ExtractLineItems(table)
		b.logger.Info("build.invoice.line_items", "count", len(lineItems))
	} else {
		b.logger.Warn("build.invoice.no_tables")
	}

	return domain.Invoice{
		InvoiceNumber: invoiceNumber,
		TotalAmount:   totalAmount,
		Currency:      b.normalizer.NormalizeString(DefaultCurrency, 1.0, nil),
		InvoiceDate:   invoiceDate,
		DueDate:       dueDate,
		PayeeName:     payeeName,
		PayerName:     payerName,
		LineItems:     lineItems,
	}
}

// BuildPurchaseOrder assembles a PurchaseOrder record.
func (b *DocumentBuilder) BuildPurchaseOrder(res *ocr.Result) domain.PurchaseOrder {
	b.logBlocks("purchase_order", res)

	poNumber := b.extractor.ExtractPONumber(res)
	authorizedAmount := b.extractor.ExtractAmount(res,
		[]string{"total", "amount", "order total", "authorized", "authorized amount"}, true)
	poDate := b.extractor.ExtractDate(res, []string{"date", "order date", "po date"})
	// "(vendor)" included because recognition may split "To (Vendor):"
	// into separate blocks.
	vendorName := b.extractor.ExtractName(res,
		[]string{"(vendor)", "to (vendor)", "vendor", "supplier", "ship to", "deliver to"})
	buyerName := b.extractor.ExtractName(res,
		[]string{"(buyer)", "from (buyer)", "buyer", "from", "ordered by", "purchaser"})

	return domain.PurchaseOrder{
		PONumber:         poNumber,
		AuthorizedAmount: authorizedAmount,
		Currency:         b.normalizer.NormalizeString(DefaultCurrency, 1.0, nil),
		PODate:           poDate,
		BuyerName:        buyerName,
		VendorName:       vendorName,
	}
}

// BuildProofOfDelivery assembles a ProofOfDelivery record, including the
// signature keyword scan.
func (b *DocumentBuilder) BuildProofOfDelivery(res *ocr.Result) domain.ProofOfDelivery {
	b.logBlocks("proof_of_delivery", res)

	deliveryRef := b.extractor.ExtractDeliveryReference(res)
	quantity := b.extractor.ExtractQuantity(res,
		[]string{"quantity", "qty", "units", "received", "total quantity", "items"})
	deliveryDate := b.extractor.ExtractDate(res, []string{"delivery date", "received date", "date"})
	recipient := b.extractor.ExtractName(res, []string{"received by", "recipient", "signed by", "signature"})

	fullText := strings.ToLower(res.FullText())
	hasSignature := strings.Contains(fullText, "signature") ||
		strings.Contains(fullText, "signed")

	return domain.ProofOfDelivery{
		DeliveryReference:  deliveryRef,
		QuantityDelivered:  quantity,
		DeliveryDate:       deliveryDate,
		RecipientName:      recipient,
		RecipientSignature: hasSignature,
	}
}

// ExtractLineItems pulls line items out of a detected table. Rows
// missing a quantity or amount cell are skipped; partial rows produce
// zero-confidence placeholder fields rather than aborting.
func (b *DocumentBuilder) ExtractLineItems(table *ocr.DetectedTable) []domain.LineItem {
	qtyCol := table.ColumnByName("quantity")
	descCol := table.ColumnByName("description")
	priceCol := table.ColumnByName("unit_price")
	amountCol := table.ColumnByName("amount")

	var items []domain.LineItem
	for _, row := range table.DataRows() {
		qtyCell, qtyOK := cellAt(row, qtyCol)
		amountCell, amountOK := cellAt(row, amountCol)
		if !qtyOK || !amountOK {
			continue
		}

		descText, descConf := "", 0.0
		if descCell, ok := cellAt(row, descCol); ok {
			descText, descConf = descCell.Text, descCell.Confidence
		}
		priceText, priceConf := "0", 0.0
		if priceCell, ok := cellAt(row, priceCol); ok {
			priceText, priceConf = priceCell.Text, priceCell.Confidence
		}

		quantity, _ := b.normalizer.NormalizeQuantity(qtyCell.Text, qtyCell.Confidence, nil)
		unitPrice, _ := b.normalizer.NormalizeAmount(priceText, priceConf, nil)
		total, _ := b.normalizer.NormalizeAmount(amountCell.Text, amountCell.Confidence, nil)

		items = append(items, domain.LineItem{
			Description: b.normalizer.NormalizeString(descText, descConf, nil),
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			Total:       total,
		})
	}
	return items
}

// lineItemTable picks the first detected table whose header resolved
// both a quantity and an amount column. Preamble text above the items
// clusters into an unnamed pseudo-table on the same page, so the first
// table is not necessarily the right one.
func lineItemTable(tables []ocr.DetectedTable) *ocr.DetectedTable {
	for i := range tables {
		t := &tables[i]
		if t.ColumnByName("quantity") >= 0 && t.ColumnByName("amount") >= 0 {
			return t
		}
	}
	return nil
}

func cellAt(row ocr.TableRow, col int) (ocr.TableCell, bool) {
	if col < 0 {
		return ocr.TableCell{}, false
	}
	return row.Cell(col)
}

func (b *DocumentBuilder) logBlocks(doc string, res *ocr.Result) {
	b.logger.Info("build.ocr.summary",
		"document", doc,
		"blocks", res.TotalBlocks(),
		"avg_confidence", res.AvgConfidence(),
	)
	if low := res.LowConfidenceBlocks(); len(low) > 0 {
		b.logger.Warn("build.ocr.low_confidence", "document", doc, "count", len(low))
	}
}
