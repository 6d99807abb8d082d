package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eulaprotocol/triway/constants"
	"github.com/eulaprotocol/triway/internal/common"
	"github.com/eulaprotocol/triway/internal/extract"
	"github.com/eulaprotocol/triway/internal/forensic"
	"github.com/eulaprotocol/triway/internal/ingest"
	"github.com/eulaprotocol/triway/internal/ledger"
	"github.com/eulaprotocol/triway/internal/ocr"
)

var (
	watchDir       string
	watchScan      bool
	watchDebounce  time.Duration
	watchThreshold float64
	watchIndexPath string
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Audit recognition dumps as they land in a drop directory",
	Long: `Watch monitors a drop directory for recognition dumps named
<prefix>.invoice.json, <prefix>.po.json, and <prefix>.pod.json. Once all
three documents of a prefix are present, the full audit runs and the
verdict is written next to them as <prefix>.result.json.

Example:
  triway watch --dir ./drop
  triway watch --dir ./drop --scan --hash-index ./data/hashes.db`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchDir, "dir", "", "drop directory to watch")
	watchCmd.Flags().BoolVar(&watchScan, "scan", false, "audit dumps already present at startup")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "settle time before a dump is picked up")
	watchCmd.Flags().Float64Var(&watchThreshold, "threshold", 0.7, "confidence below which critical fields need review")
	watchCmd.Flags().StringVar(&watchIndexPath, "hash-index", "", "path to the duplicate-hash index (omit to skip)")

	_ = watchCmd.MarkFlagRequired("dir")
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var duplicates ledger.DuplicateChecker = ledger.NoopChecker{}
	if watchIndexPath != "" {
		index, err := ledger.OpenHashIndex(watchIndexPath, logger)
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
		common.AuditConfig{ReviewThreshold: watchThreshold}, logger)

	events, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Root:        watchDir,
		InitialScan: watchScan,
		Debounce:    watchDebounce,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Watching %s (ctrl-c to stop)\n", watchDir)

	collector := ingest.NewCollector()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watchErrs:
			if ok {
				logger.Error("cli.watch.error", "error", err)
			}
		case path, ok := <-events:
			if !ok {
				return nil
			}
			bundle, done := collector.Add(path)
			if !done {
				continue
			}
			if err := auditBundle(ctx, svc, bundle); err != nil {
				logger.Error("cli.watch.audit_failed", "prefix", bundle.Prefix, "error", err)
			}
		}
	}
}

func auditBundle(ctx context.Context, svc *forensic.Service, bundle ingest.Bundle) error {
	req := forensic.AuditRequest{}
	for _, doc := range []struct {
		path string
		typ  constants.DocumentType
		dst  *forensic.DocumentInput
	}{
		{bundle.InvoicePath, constants.DocInvoice, &req.Invoice},
		{bundle.POPath, constants.DocPurchaseOrder, &req.PurchaseOrder},
		{bundle.PODPath, constants.DocProofOfDelivery, &req.ProofOfDelivery},
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
	reportPath := bundle.Prefix + ".result.json"
	if err := os.WriteFile(reportPath, out, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(os.Stderr, "%s: %s (report: %s)\n", bundle.Prefix, result.Status, reportPath)
	return nil
}
