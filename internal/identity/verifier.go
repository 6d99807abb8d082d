package identity

import (
	"context"
	"time"
)

// Status of a decentralized-identity check for a wallet.
type Status string

const (
	StatusVerified Status = "verified"
	StatusNotFound Status = "not_found"
	StatusExpired  Status = "expired"
	StatusRevoked  Status = "revoked"
	StatusInvalid  Status = "invalid"
	StatusPending  Status = "pending"
	StatusSkipped  Status = "skipped"
)

// Document is a parsed DID document from the ledger.
type Document struct {
	DID                string
	Controller         string
	Created            time.Time
	Updated            *time.Time
	BusinessName       string
	RegistrationNumber string
	Country            string
}

// IsBusiness reports whether the DID carries the business claims
// required for factoring.
func (d Document) IsBusiness() bool { return d.BusinessName != "" }

// Result is the outcome of verifying one wallet.
type Result struct {
	WalletAddress string
	Status        Status
	Document      *Document
	Message       string
}

// IsVerified reports whether the DID is valid for invoice factoring.
func (r Result) IsVerified() bool { return r.Status == StatusVerified }

// Verifier resolves and validates the DID attached to a wallet address.
// Implementations talk to the ledger; the pipeline only sees this
// contract.
type Verifier interface {
	VerifyWallet(ctx context.Context, walletAddress string) (Result, error)
}

// SkippedResult marks a wallet whose identity check was skipped by
// request.
func SkippedResult(walletAddress string) Result {
	return Result{
		WalletAddress: walletAddress,
		Status:        StatusSkipped,
		Message:       "identity verification skipped by request",
	}
}
