package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/eulaprotocol/triway/internal/domain"
	"github.com/eulaprotocol/triway/internal/repository"
)

// Service is a tiny façade over the verification repository that
// produces XLSX audit reports for exports.
type Service struct {
	verifications repository.VerificationRepository
	exportDir     string
	logger        *slog.Logger
}

// NewService builds the exporter. When exportDir is non-empty, every
// generated workbook is also archived there.
func NewService(verifications repository.VerificationRepository, exportDir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{verifications: verifications, exportDir: exportDir, logger: logger}
}

// ExportAuditXLSX returns an XLSX workbook (as bytes) for one
// verification: a summary sheet plus one sheet each for checks,
// anomalies, and review flags.
func (s *Service) ExportAuditXLSX(ctx context.Context, id uuid.UUID) ([]byte, error) {
	start := time.Now()

	rec, err := s.verifications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var verification domain.VerificationResult
	if len(rec.Verification) > 0 {
		if err := json.Unmarshal(rec.Verification, &verification); err != nil {
			return nil, fmt.Errorf("decode verification payload: %w", err)
		}
	}

	f := excelize.NewFile()
	const summarySheet = "Summary"
	// excelize starts with "Sheet1"; rename it rather than leaving it dangling.
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}

	writeCell := func(sheet string, col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	summary := [][2]any{
		{"Verification ID", rec.ID.String()},
		{"Status", string(rec.Status)},
		{"Wallet", rec.WalletAddress},
		{"Invoice Hash", rec.InvoiceHash},
		{"PO Hash", rec.POHash},
		{"POD Hash", rec.PODHash},
		{"Bundle Hash", rec.BundleHash},
		{"Created", rec.CreatedAt.Format(time.RFC3339)},
	}
	for i, kv := range summary {
		writeCell(summarySheet, 1, i+1, kv[0])
		writeCell(summarySheet, 2, i+1, kv[1])
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 18)
	_ = f.SetColWidth(summarySheet, "B", "B", 76)

	// Checks
	const checksSheet = "Checks"
	if _, err := f.NewSheet(checksSheet); err != nil {
		return nil, err
	}
	for i, h := range []string{"Rule", "Passed", "Message"} {
		writeCell(checksSheet, i+1, 1, h)
	}
	for i, c := range verification.Checks {
		writeCell(checksSheet, 1, i+2, c.RuleName)
		writeCell(checksSheet, 2, i+2, c.Passed)
		writeCell(checksSheet, 3, i+2, c.Message)
	}
	_ = f.SetColWidth(checksSheet, "A", "A", 26)
	_ = f.SetColWidth(checksSheet, "C", "C", 80)

	// Anomalies
	const anomaliesSheet = "Anomalies"
	if _, err := f.NewSheet(anomaliesSheet); err != nil {
		return nil, err
	}
	for i, h := range []string{"Code", "Severity", "Field", "Expected", "Actual", "Message"} {
		writeCell(anomaliesSheet, i+1, 1, h)
	}
	for i, a := range verification.Anomalies {
		writeCell(anomaliesSheet, 1, i+2, a.Code)
		writeCell(anomaliesSheet, 2, i+2, string(a.Severity))
		writeCell(anomaliesSheet, 3, i+2, a.FieldPath)
		writeCell(anomaliesSheet, 4, i+2, a.ExpectedValue)
		writeCell(anomaliesSheet, 5, i+2, a.ActualValue)
		writeCell(anomaliesSheet, 6, i+2, a.Message)
	}
	_ = f.SetColWidth(anomaliesSheet, "A", "A", 22)
	_ = f.SetColWidth(anomaliesSheet, "F", "F", 80)

	// Review flags
	const flagsSheet = "Review Flags"
	if _, err := f.NewSheet(flagsSheet); err != nil {
		return nil, err
	}
	writeCell(flagsSheet, 1, 1, "Field Path")
	for i, flag := range verification.ReviewFlags {
		writeCell(flagsSheet, 1, i+2, flag)
	}
	_ = f.SetColWidth(flagsSheet, "A", "A", 48)

	if idx, _ := f.GetSheetIndex(summarySheet); idx != -1 {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	// Archive copy is best-effort: a full export dir must not fail the
	// download.
	if s.exportDir != "" {
		path := filepath.Join(s.exportDir, fmt.Sprintf("verification-%s.xlsx", id))
		if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
			s.logger.Warn("export.xlsx.archive_failed", "path", path, "error", err)
		} else if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			s.logger.Warn("export.xlsx.archive_failed", "path", path, "error", err)
		}
	}

	s.logger.Info("export.xlsx.ok",
		"verification_id", id.String(),
		"checks", len(verification.Checks),
		"anomalies", len(verification.Anomalies),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
