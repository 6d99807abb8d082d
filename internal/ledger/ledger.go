package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DuplicateCheckResult reports whether a document hash has been seen
// before. Double financing the same invoice is the primary fraud this
// system exists to block.
type DuplicateCheckResult struct {
	Hash        string
	IsDuplicate bool
	FirstSeenAt *time.Time
	Message     string
}

// DuplicateChecker is the deduplication collaborator. The production
// implementation is an off-chain index over hashes minted to the
// ledger; see HashIndex.
type DuplicateChecker interface {
	CheckDuplicate(ctx context.Context, hash string) (DuplicateCheckResult, error)
	RecordHash(ctx context.Context, hash string) error
}

// NoopChecker reports every hash as unseen. Used where no index is
// configured (local runs, tests).
type NoopChecker struct{}

func (NoopChecker) CheckDuplicate(_ context.Context, hash string) (DuplicateCheckResult, error) {
	return DuplicateCheckResult{Hash: hash, Message: "duplicate index not configured"}, nil
}

func (NoopChecker) RecordHash(context.Context, string) error { return nil }

// NFTMetadata is the document stored in the NFT URI when a verified
// bundle is minted. The hashes make the token tamper-evident while the
// documents themselves stay off-chain.
type NFTMetadata struct {
	InvoiceNumber string
	FaceValue     decimal.Decimal
	Currency      string
	DueDate       time.Time
	IssuerDID     string
	InvoiceHash   string
	POHash        string
	PODHash       string
}

// ToJSON serializes metadata for the NFT URI.
func (m NFTMetadata) ToJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"schema":      "EULA_v1",
		"name":        "Verified Invoice: #" + m.InvoiceNumber,
		"description": "3-Way Matched Supply Chain Asset",
		"properties": map[string]any{
			"issuer_did":   m.IssuerDID,
			"face_value":   m.FaceValue.String(),
			"currency":     m.Currency,
			"due_date":     m.DueDate.Format("2006-01-02"),
			"audit_status": "PASSED_AI_VERIFICATION",
			"document_hashes": map[string]string{
				"invoice_hash": m.InvoiceHash,
				"po_hash":      m.POHash,
				"pod_hash":     m.PODHash,
			},
		},
	})
}

// MintResult reports the outcome of an NFT mint.
type MintResult struct {
	TokenID string
	TxHash  string
}

// Minter is the ledger collaborator that tokenizes a verified bundle.
// Kept at the boundary: the core never signs transactions.
type Minter interface {
	MintToken(ctx context.Context, meta NFTMetadata) (MintResult, error)
}
