// Package verification implements the batch verification decision engine.
//
// Each call walks a fixed chain: catalogue lookup, expiry check, known-fake
// check, scan-count increment, anomaly scoring, final classification. Every
// call appends exactly one entry to the verification log; log and counter
// failures never fail the response.
package verification

import (
	"time"
)

// Status is the wire label of a verification outcome.
type Status string

const (
	StatusValid     Status = "valid"
	StatusExpired   Status = "expired"
	StatusFake      Status = "fake"
	StatusSuspected Status = "suspected"
)

// Display returns the human-facing form of a status.
func (s Status) Display() string {
	switch s {
	case StatusValid:
		return "Valid"
	case StatusExpired:
		return "Expired"
	case StatusFake:
		return "Fake"
	case StatusSuspected:
		return "Suspected Counterfeit"
	default:
		return string(s)
	}
}

// Fixed confidence values for rule-based branches.
const (
	confidenceNotFound  = 0.95
	confidenceExpired   = 0.99
	confidenceKnownFake = 0.98
	confidenceValid     = 0.95
)

// suspicionThreshold is the scorer confidence above which an anomalous
// batch is classified as suspected counterfeit.
const suspicionThreshold = 0.7

// invalidExpirySentinel stands in for "expired long ago" when the stored
// expiry is absent or unparseable; invalid dates never abort verification.
const invalidExpirySentinel = -999

// Placeholder feature values. Batch age and verification ratio are not yet
// derived from real scan history; these stand-ins match the distributions
// the model was trained on. TODO: derive verification_ratio from the log
// store once per-batch outcome history is queryable.
const (
	defaultBatchAgeDays      = 180
	defaultVerificationRatio = 0.8
)

// Request is one verification attempt.
type Request struct {
	Code     string
	Lat      *float64
	Lng      *float64
	ClientIP string
}

// BatchInfo is the public subset of catalogue data echoed on hits.
type BatchInfo struct {
	Name         string    `json:"name"`
	Manufacturer string    `json:"manufacturer"`
	ExpiryDate   time.Time `json:"expiry_date"`
	ScanCount    int       `json:"scan_count,omitempty"`
}

// Outcome is the terminal classification of one verification call.
type Outcome struct {
	Status     Status
	Reason     string
	Confidence float64
	BatchInfo  *BatchInfo // nil for unknown codes and known fakes

	// ScorerNeutral reports that the anomaly scorer fell back to its
	// neutral default (no model loaded or internal failure).
	ScorerNeutral bool
}

// EventEmitter receives each completed verification for live streaming.
// Implementations must not block.
type EventEmitter interface {
	EmitVerification(event map[string]interface{})
}
