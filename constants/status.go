package constants

// VerificationStatus is the canonical status for a verification run.
type VerificationStatus string

// Stable values (store these exact strings in DB).
const (
	StatusPending        VerificationStatus = "PENDING"         // created, not yet started
	StatusProcessing     VerificationStatus = "PROCESSING"      // pipeline in progress
	StatusPassed         VerificationStatus = "PASSED"          // all checks clean
	StatusFailed         VerificationStatus = "FAILED"          // a check or stage failed
	StatusRequiresReview VerificationStatus = "REQUIRES_REVIEW" // low-confidence fields need a human
)

// AnomalySeverity classifies detected anomalies.
type AnomalySeverity string

const (
	SeverityWarning AnomalySeverity = "warning" // flagged for scrutiny, non-blocking
	SeverityError   AnomalySeverity = "error"   // blocks the bundle outright
)
