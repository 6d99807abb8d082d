package constants

import (
	"path/filepath"
	"strings"
)

// DocumentType identifies a document's role in the 3-way match.
type DocumentType string

const (
	DocInvoice         DocumentType = "invoice"
	DocPurchaseOrder   DocumentType = "purchase_order"
	DocProofOfDelivery DocumentType = "proof_of_delivery"
)

// FileTypes holds the allowed file types for uploaded documents.
var FileTypes = []string{"PDF", "IMAGE", "JSON"}

const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
	JSON  = "JSON"
)

// AllowedExtensions holds the file extensions accepted for verification uploads.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tiff": {},
	// positioned-text dumps from an external recognition run
	"json": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExtension reports whether a filename carries an accepted extension.
func IsAllowedExtension(filename string) bool {
	_, ok := AllowedExtensions[NormalizeExt(filepath.Ext(filename))]
	return ok
}

// MapExtToFormat maps a normalized extension to its file type, or "" if unsupported.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png", "tiff":
		return IMAGE
	case "json":
		return JSON
	default:
		return ""
	}
}

// ReviewConfidenceThreshold is the confidence below which an extracted
// field is flagged for manual review.
const ReviewConfidenceThreshold = 0.7
