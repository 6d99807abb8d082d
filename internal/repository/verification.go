package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eulaprotocol/triway/constants"
	"github.com/eulaprotocol/triway/internal/common"
	"github.com/eulaprotocol/triway/internal/forensic"
)

// VerificationRecord is the persisted outcome of one audit run.
type VerificationRecord struct {
	ID            uuid.UUID                    `gorm:"type:uuid;primaryKey" json:"id"`
	WalletAddress string                       `gorm:"index" json:"wallet_address,omitempty"`
	Status        constants.VerificationStatus `gorm:"index;size:32" json:"status"`

	InvoiceHash string `gorm:"size:72" json:"invoice_hash"`
	POHash      string `gorm:"size:72" json:"po_hash"`
	PODHash     string `gorm:"size:72" json:"pod_hash"`
	BundleHash  string `gorm:"uniqueIndex;size:72" json:"bundle_hash"`

	// Full verification payload, stored as-is for audit trail and export.
	Verification json.RawMessage `gorm:"type:jsonb" json:"verification"`
	Identity     json.RawMessage `gorm:"type:jsonb" json:"identity"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (VerificationRecord) TableName() string { return "verifications" }

// NewRecord converts an audit result into its storable form.
func NewRecord(result forensic.AuditResult, walletAddress string) (*VerificationRecord, error) {
	verification, err := json.Marshal(result.Verification)
	if err != nil {
		return nil, common.WrapError(err, "marshal verification")
	}
	idv, err := json.Marshal(result.Identity)
	if err != nil {
		return nil, common.WrapError(err, "marshal identity")
	}

	rec := &VerificationRecord{
		ID:            result.ID,
		WalletAddress: walletAddress,
		Status:        result.Status,
		BundleHash:    result.BundleHash,
		Verification:  verification,
		Identity:      idv,
		CreatedAt:     result.CreatedAt,
	}
	if result.Bundle != nil {
		rec.InvoiceHash = result.Bundle.InvoiceHash
		rec.POHash = result.Bundle.POHash
		rec.PODHash = result.Bundle.PODHash
	}
	return rec, nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Status constants.VerificationStatus
	Wallet string
	Limit  int
}

type VerificationRepository interface {
	Create(ctx context.Context, rec *VerificationRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*VerificationRecord, error)
	List(ctx context.Context, filter ListFilter) ([]*VerificationRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.VerificationStatus) error
}

type verificationRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewVerificationRepository(db *gorm.DB, logger *slog.Logger) VerificationRepository {
	return &verificationRepository{
		db:     db,
		logger: logger,
	}
}

func (r *verificationRepository) Create(ctx context.Context, rec *VerificationRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		r.logger.Error("failed to create verification", "id", rec.ID, "error", err)
		return common.NewAppError("DB_ERROR", "create verification", common.ErrDatabase)
	}
	return nil
}

func (r *verificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*VerificationRecord, error) {
	var rec VerificationRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to get verification", "id", id, "error", err)
		return nil, common.NewAppError("DB_ERROR", "get verification", common.ErrDatabase)
	}
	return &rec, nil
}

func (r *verificationRepository) List(ctx context.Context, filter ListFilter) ([]*VerificationRecord, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Wallet != "" {
		q = q.Where("wallet_address = ?", filter.Wallet)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var recs []*VerificationRecord
	if err := q.Limit(limit).Find(&recs).Error; err != nil {
		r.logger.Error("failed to list verifications", "error", err)
		return nil, common.NewAppError("DB_ERROR", "list verifications", common.ErrDatabase)
	}
	return recs, nil
}

func (r *verificationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.VerificationStatus) error {
	res := r.db.WithContext(ctx).
		Model(&VerificationRecord{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		r.logger.Error("failed to update verification status", "id", id, "error", res.Error)
		return common.NewAppError("DB_ERROR", "update verification status", common.ErrDatabase)
	}
	if res.RowsAffected == 0 {
		return common.ErrNotFound
	}
	return nil
}
