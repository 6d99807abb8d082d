package forensic

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/eulaprotocol/triway/constants"
	"github.com/eulaprotocol/triway/internal/common"
	"github.com/eulaprotocol/triway/internal/domain"
	"github.com/eulaprotocol/triway/internal/extract"
	"github.com/eulaprotocol/triway/internal/identity"
	"github.com/eulaprotocol/triway/internal/ledger"
	"github.com/eulaprotocol/triway/internal/ocr"
)

// DocumentInput is one uploaded document, as received from the API or CLI.
type DocumentInput struct {
	Content      []byte
	Filename     string
	DocumentType constants.DocumentType
}

// AuditRequest carries the three documents of a factoring submission.
type AuditRequest struct {
	Invoice         DocumentInput
	PurchaseOrder   DocumentInput
	ProofOfDelivery DocumentInput

	// WalletAddress of the submitter; empty when identity checks are off.
	WalletAddress string

	// HistoricalAverage is the payee's trailing invoice average, when known.
	// Nil disables amount-spike detection.
	HistoricalAverage *decimal.Decimal
}

// AuditResult is the full outcome of one forensic audit.
type AuditResult struct {
	ID           uuid.UUID                    `json:"id"`
	Status       constants.VerificationStatus `json:"status"`
	Bundle       *domain.DocumentBundle       `json:"bundle,omitempty"`
	Verification domain.VerificationResult    `json:"verification"`
	Identity     identity.Result              `json:"identity"`
	BundleHash   string                       `json:"bundle_hash,omitempty"`
	CreatedAt    time.Time                    `json:"created_at"`
}

// Passed reports whether every check passed with nothing to review.
func (r AuditResult) Passed() bool {
	return r.Status == constants.StatusPassed
}

// CanMint reports whether the bundle is eligible for on-chain minting.
// REQUIRES_REVIEW bundles mint after a human signs off, so they qualify.
func (r AuditResult) CanMint() bool {
	return r.Status == constants.StatusPassed || r.Status == constants.StatusRequiresReview
}

// Service runs the audit pipeline: hash, duplicate check, identity
// check, OCR, field extraction, and cross-document validation.
type Service struct {
	engine     ocr.Engine
	builder    *extract.DocumentBuilder
	duplicates ledger.DuplicateChecker
	verifier   identity.Verifier
	cfg        common.AuditConfig
	logger     *slog.Logger
}

func NewService(engine ocr.Engine, builder *extract.DocumentBuilder, duplicates ledger.DuplicateChecker, verifier identity.Verifier, cfg common.AuditConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if duplicates == nil {
		duplicates = ledger.NoopChecker{}
	}
	return &Service{
		engine:     engine,
		builder:    builder,
		duplicates: duplicates,
		verifier:   verifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// RunAudit executes the full pipeline for one submission. Pipeline
// failures (duplicates, revoked identity, unreadable documents) come
// back as a FAILED result, not an error; the error return is reserved
// for infrastructure faults.
func (s *Service) RunAudit(ctx context.Context, req AuditRequest) (AuditResult, error) {
	result := AuditResult{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
	}
	s.logger.Info("forensic.audit.start", "audit_id", result.ID, "wallet", req.WalletAddress)

	// Hash before anything else so duplicates never reach OCR.
	invoiceHash, err := domain.ComputeDocumentHash(req.Invoice.Content)
	if err != nil {
		return s.fail(result, "EMPTY_DOCUMENT", fmt.Sprintf("invoice: %v", err)), nil
	}
	poHash, err := domain.ComputeDocumentHash(req.PurchaseOrder.Content)
	if err != nil {
		return s.fail(result, "EMPTY_DOCUMENT", fmt.Sprintf("purchase order: %v", err)), nil
	}
	podHash, err := domain.ComputeDocumentHash(req.ProofOfDelivery.Content)
	if err != nil {
		return s.fail(result, "EMPTY_DOCUMENT", fmt.Sprintf("proof of delivery: %v", err)), nil
	}

	for _, pair := range []struct {
		doc  constants.DocumentType
		hash string
	}{
		{constants.DocInvoice, invoiceHash},
		{constants.DocPurchaseOrder, poHash},
		{constants.DocProofOfDelivery, podHash},
	} {
		dup, err := s.duplicates.CheckDuplicate(ctx, pair.hash)
		if err != nil {
			return AuditResult{}, common.WrapError(err, "duplicate check")
		}
		if dup.IsDuplicate {
			s.logger.Warn("forensic.audit.duplicate", "audit_id", result.ID, "document", pair.doc, "hash", pair.hash)
			return s.fail(result, "DUPLICATE_DOCUMENT",
				fmt.Sprintf("%s already submitted: %s", pair.doc, dup.Message)), nil
		}
	}

	result.Identity = s.checkIdentity(ctx, req.WalletAddress)
	if negative(result.Identity.Status) {
		return s.fail(result, "IDENTITY_REJECTED",
			fmt.Sprintf("wallet %s identity status is %s", req.WalletAddress, result.Identity.Status)), nil
	}

	docs, err := s.processDocuments(ctx, req)
	if err != nil {
		s.logger.Error("forensic.audit.ocr_failed", "audit_id", result.ID, "error", err)
		return s.fail(result, "PROCESSING_ERROR", err.Error()), nil
	}

	bundle := domain.DocumentBundle{
		Invoice:         s.builder.BuildInvoice(docs[0]),
		PurchaseOrder:   s.builder.BuildPurchaseOrder(docs[1]),
		ProofOfDelivery: s.builder.BuildProofOfDelivery(docs[2]),
		InvoiceHash:     invoiceHash,
		POHash:          poHash,
		PODHash:         podHash,
	}

	bundleHash, err := domain.ComputeBundleHash(invoiceHash, poHash, podHash)
	if err != nil {
		return AuditResult{}, common.WrapError(err, "bundle hash")
	}

	result.Bundle = &bundle
	result.BundleHash = bundleHash
	result.Verification = domain.RunFullVerification(bundle, req.HistoricalAverage, s.cfg.ReviewThreshold)
	result.Status = result.Verification.Status

	if result.CanMint() {
		for _, h := range []string{invoiceHash, poHash, podHash} {
			if err := s.duplicates.RecordHash(ctx, h); err != nil {
				return AuditResult{}, common.WrapError(err, "record hash")
			}
		}
	}

	s.logger.Info("forensic.audit.done",
		"audit_id", result.ID,
		"status", result.Status,
		"checks", len(result.Verification.Checks),
		"anomalies", len(result.Verification.Anomalies),
		"review_flags", len(result.Verification.ReviewFlags))
	return result, nil
}

// processDocuments OCRs the three documents concurrently. Order of the
// returned slice is invoice, purchase order, proof of delivery.
func (s *Service) processDocuments(ctx context.Context, req AuditRequest) ([3]*ocr.Result, error) {
	if s.cfg.OCRTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.OCRTimeout)
		defer cancel()
	}

	var results [3]*ocr.Result
	g, gctx := errgroup.WithContext(ctx)
	for i, input := range []DocumentInput{req.Invoice, req.PurchaseOrder, req.ProofOfDelivery} {
		i, input := i, input
		g.Go(func() error {
			ext := constants.NormalizeExt(filepath.Ext(input.Filename))
			res, err := s.engine.ProcessDocument(gctx, input.Content, ext)
			if err != nil {
				return fmt.Errorf("%s: %w", input.DocumentType, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (s *Service) checkIdentity(ctx context.Context, walletAddress string) identity.Result {
	if s.verifier == nil || walletAddress == "" {
		return identity.SkippedResult(walletAddress)
	}
	res, err := s.verifier.VerifyWallet(ctx, walletAddress)
	if err != nil {
		// A registry outage must not hard-fail a submission.
		s.logger.Warn("forensic.identity.unavailable", "wallet", walletAddress, "error", err)
		return identity.SkippedResult(walletAddress)
	}
	return res
}

// negative reports identity statuses that block the audit. A wallet
// simply absent from the registry is not a rejection.
func negative(st identity.Status) bool {
	switch st {
	case identity.StatusExpired, identity.StatusRevoked, identity.StatusInvalid:
		return true
	default:
		return false
	}
}

func (s *Service) fail(result AuditResult, code, message string) AuditResult {
	result.Status = constants.StatusFailed
	result.Verification = domain.VerificationResult{
		Status: constants.StatusFailed,
		Anomalies: []domain.Anomaly{{
			Code:     code,
			Message:  message,
			Severity: constants.SeverityError,
		}},
	}
	return result
}
