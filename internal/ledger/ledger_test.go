package ledger

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNFTMetadataToJSON(t *testing.T) {
	meta := NFTMetadata{
		InvoiceNumber: "INV-2024-001",
		FaceValue:     decimal.NewFromInt(8000),
		Currency:      "SGD",
		DueDate:       time.Date(2024, 4, 14, 0, 0, 0, 0, time.UTC),
		IssuerDID:     "did:example:acme",
		InvoiceHash:   "sha256:aaaa",
		POHash:        "sha256:bbbb",
		PODHash:       "sha256:cccc",
	}

	raw, err := meta.ToJSON()
	if err != nil {
		t.Fatalf("serialize metadata: %v", err)
	}

	var doc struct {
		Schema      string `json:"schema"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Properties  struct {
			IssuerDID   string            `json:"issuer_did"`
			FaceValue   string            `json:"face_value"`
			Currency    string            `json:"currency"`
			DueDate     string            `json:"due_date"`
			AuditStatus string            `json:"audit_status"`
			Hashes      map[string]string `json:"document_hashes"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("metadata is not valid JSON: %v", err)
	}

	if doc.Schema != "EULA_v1" {
		t.Errorf("schema = %q, want EULA_v1", doc.Schema)
	}
	if doc.Name != "Verified Invoice: #INV-2024-001" {
		t.Errorf("name = %q", doc.Name)
	}
	if doc.Properties.FaceValue != "8000" {
		t.Errorf("face_value = %q, want 8000", doc.Properties.FaceValue)
	}
	if doc.Properties.DueDate != "2024-04-14" {
		t.Errorf("due_date = %q", doc.Properties.DueDate)
	}
	if doc.Properties.AuditStatus != "PASSED_AI_VERIFICATION" {
		t.Errorf("audit_status = %q", doc.Properties.AuditStatus)
	}
	want := map[string]string{
		"invoice_hash": "sha256:aaaa",
		"po_hash":      "sha256:bbbb",
		"pod_hash":     "sha256:cccc",
	}
	for k, v := range want {
		if doc.Properties.Hashes[k] != v {
			t.Errorf("document_hashes[%s] = %q, want %q", k, doc.Properties.Hashes[k], v)
		}
	}
}
