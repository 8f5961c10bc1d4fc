// Package verifylog keeps the append-only record of verification attempts.
//
// Entries are written once by the decision engine and never mutated; the
// admin dashboard reads them newest-first and aggregates them for stats.
package verifylog

import (
	"context"
	"time"
)

// GeoPoint is an approximate scan location submitted by the client.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Entry is one verification attempt.
type Entry struct {
	ID         string    `json:"id"`
	BatchCode  string    `json:"batch_code"`
	Status     string    `json:"status"` // valid, expired, fake, suspected
	Reason     string    `json:"reason"`
	Confidence float64   `json:"confidence"`
	Location   *GeoPoint `json:"location,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	ClientIP   string    `json:"ip_address,omitempty"`
}

// DailyCount is the number of verifications on one calendar day (UTC).
type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// Store persists verification log entries.
type Store interface {
	// Append records one entry. The engine swallows failures; they must not
	// abort the verification response.
	Append(ctx context.Context, e *Entry) error
	// List returns up to limit entries, newest first.
	List(ctx context.Context, limit int) ([]*Entry, error)
	// CountByStatus returns total entries grouped by outcome status.
	CountByStatus(ctx context.Context) (map[string]int, error)
	// DailyCounts returns per-day counts since the given time, ascending by date.
	DailyCounts(ctx context.Context, since time.Time) ([]DailyCount, error)
}
