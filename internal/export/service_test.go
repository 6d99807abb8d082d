package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/eulaprotocol/triway/constants"
	"github.com/eulaprotocol/triway/internal/common"
	"github.com/eulaprotocol/triway/internal/domain"
	"github.com/eulaprotocol/triway/internal/repository"
)

// singleRecordRepository serves exactly one record, standing in for
// Postgres.
type singleRecordRepository struct {
	rec *repository.VerificationRecord
}

func (r *singleRecordRepository) Create(context.Context, *repository.VerificationRecord) error {
	return nil
}

func (r *singleRecordRepository) GetByID(_ context.Context, id uuid.UUID) (*repository.VerificationRecord, error) {
	if r.rec == nil || r.rec.ID != id {
		return nil, common.NewAppError("NOT_FOUND", "verification not found", common.ErrNotFound)
	}
	return r.rec, nil
}

func (r *singleRecordRepository) List(context.Context, repository.ListFilter) ([]*repository.VerificationRecord, error) {
	return nil, nil
}

func (r *singleRecordRepository) UpdateStatus(context.Context, uuid.UUID, constants.VerificationStatus) error {
	return nil
}

func testRecord(t *testing.T) *repository.VerificationRecord {
	t.Helper()
	verification, err := json.Marshal(domain.VerificationResult{
		Status: constants.StatusPassed,
		Checks: []domain.ValidationCheck{
			{RuleName: "quantity_match", Passed: true, Message: "quantities agree"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return &repository.VerificationRecord{
		ID:            uuid.New(),
		Status:        constants.StatusPassed,
		WalletAddress: "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh",
		BundleHash:    "sha256:abcd",
		Verification:  verification,
		CreatedAt:     time.Now(),
	}
}

func TestExportAuditXLSX(t *testing.T) {
	rec := testRecord(t)
	svc := NewService(&singleRecordRepository{rec: rec}, "", nil)

	xlsx, err := svc.ExportAuditXLSX(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(xlsx) == 0 {
		t.Error("empty workbook")
	}
}

func TestExportAuditXLSX_ArchiveCopy(t *testing.T) {
	rec := testRecord(t)
	dir := filepath.Join(t.TempDir(), "exports")
	svc := NewService(&singleRecordRepository{rec: rec}, dir, nil)

	xlsx, err := svc.ExportAuditXLSX(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	path := filepath.Join(dir, "verification-"+rec.ID.String()+".xlsx")
	archived, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("archive copy not written: %v", err)
	}
	if len(archived) != len(xlsx) {
		t.Errorf("archive copy differs: %d bytes vs %d returned", len(archived), len(xlsx))
	}
}

func TestExportAuditXLSX_NotFound(t *testing.T) {
	svc := NewService(&singleRecordRepository{}, "", nil)
	if _, err := svc.ExportAuditXLSX(context.Background(), uuid.New()); err == nil {
		t.Fatal("missing record must surface an error")
	}
}
