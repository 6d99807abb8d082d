package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/eulaprotocol/triway/constants"
	"github.com/eulaprotocol/triway/internal/common"
	"github.com/eulaprotocol/triway/internal/extract"
	"github.com/eulaprotocol/triway/internal/forensic"
	"github.com/eulaprotocol/triway/internal/ledger"
	"github.com/eulaprotocol/triway/internal/ocr"
)

var (
	invoicePath string
	poPath      string
	podPath     string
	outJSON     string
	threshold   float64
	history     string
	indexPath   string
	timeout     time.Duration
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run a 3-way match audit on recognition dumps",
	Long: `Verify runs the full audit pipeline offline on three recognition
dumps (the positioned-text JSON an OCR service produces):
- hash each document and check the duplicate index (if configured)
- extract and normalize fields from the positioned text
- cross-validate quantities, amounts, dates, line items, and parties
- report anomalies and low-confidence fields needing review

Example:
  triway verify --invoice inv.json --po po.json --pod pod.json
  triway verify --invoice inv.json --po po.json --pod pod.json --json report.json
  triway verify --invoice inv.json --po po.json --pod pod.json --history 4200.50`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&invoicePath, "invoice", "", "invoice recognition dump (JSON)")
	verifyCmd.Flags().StringVar(&poPath, "po", "", "purchase order recognition dump (JSON)")
	verifyCmd.Flags().StringVar(&podPath, "pod", "", "proof of delivery recognition dump (JSON)")
	verifyCmd.Flags().StringVar(&outJSON, "json", "", "write the full report to this path (default: stdout)")
	verifyCmd.Flags().Float64Var(&threshold, "threshold", 0.7, "confidence below which critical fields need review")
	verifyCmd.Flags().StringVar(&history, "history", "", "historical invoice average for spike detection (decimal)")
	verifyCmd.Flags().StringVar(&indexPath, "hash-index", "", "path to the duplicate-hash index (omit to skip)")
	verifyCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall audit timeout")

	_ = verifyCmd.MarkFlagRequired("invoice")
	_ = verifyCmd.MarkFlagRequired("po")
	_ = verifyCmd.MarkFlagRequired("pod")
}

func runVerify(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var historicalAvg *decimal.Decimal
	if history != "" {
		avg, err := decimal.NewFromString(history)
		if err != nil {
			return fmt.Errorf("invalid --history value %q: %w", history, err)
		}
		historicalAvg = &avg
	}

	var duplicates ledger.DuplicateChecker = ledger.NoopChecker{}
	if indexPath != "" {
		index, err := ledger.OpenHashIndex(indexPath, logger)
		if err != nil {
			return err
		}
		defer index.Close()
		duplicates = index
	}

	builder := extract.NewDocumentBuilder(
		ocr.NewTableDetector(),
		extract.NewSmartExtractor(logger),
		extract.NewNormalizer(logger),
		logger,
	)
	svc := forensic.NewService(ocr.PayloadEngine{}, builder, duplicates, nil,
		common.AuditConfig{ReviewThreshold: threshold}, logger)

	req := forensic.AuditRequest{HistoricalAverage: historicalAvg}
	for _, doc := range []struct {
		path string
		typ  constants.DocumentType
		dst  *forensic.DocumentInput
	}{
		{invoicePath, constants.DocInvoice, &req.Invoice},
		{poPath, constants.DocPurchaseOrder, &req.PurchaseOrder},
		{podPath, constants.DocProofOfDelivery, &req.ProofOfDelivery},
	} {
		content, err := os.ReadFile(doc.path)
		if err != nil {
			return fmt.Errorf("read %s: %w", doc.typ, err)
		}
		*doc.dst = forensic.DocumentInput{
			Content:      content,
			Filename:     doc.path,
			DocumentType: doc.typ,
		}
	}

	result, err := svc.RunAudit(ctx, req)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if outJSON != "" {
		if err := os.WriteFile(outJSON, out, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", outJSON)
	} else {
		fmt.Println(string(out))
	}

	fmt.Fprintf(os.Stderr, "Status: %s (%d checks, %d anomalies, %d review flags)\n",
		result.Status,
		len(result.Verification.Checks),
		len(result.Verification.Anomalies),
		len(result.Verification.ReviewFlags))
	if result.Status == constants.StatusFailed {
		os.Exit(1)
	}
	return nil
}
