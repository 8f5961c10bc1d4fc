// Package catalog holds the official medicine batch catalogue.
//
// Records are created by the seeding/ingestion process and mutated only by
// the verification flow (scan count increments). The batch code uniquely
// identifies at most one record.
package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("batch not found")
	ErrExists   = errors.New("batch already exists")
)

// Batch statuses as stored in the catalogue.
const (
	StatusValid   = "valid"
	StatusExpired = "expired"
	StatusFake    = "fake"
)

// Batch is one medicine batch in the official catalogue.
type Batch struct {
	ID                  string    `json:"id"`
	BatchCode           string    `json:"batchCode"` // unique, stored uppercase
	Name                string    `json:"name"`
	Manufacturer        string    `json:"manufacturer"`
	ManufacturerScore   float64   `json:"manufacturerScore"` // 0-10 reputation
	ManufacturerCountry string    `json:"manufacturerCountry,omitempty"`
	ExpiryDate          time.Time `json:"expiryDate"`
	ManufacturingDate   time.Time `json:"manufacturingDate"`
	Status              string    `json:"status"` // valid, expired, fake
	ScanCount           int       `json:"scanCount"`
	DistinctLocations   int       `json:"distinctLocations"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Store persists the batch catalogue.
type Store interface {
	// FindByCode returns the batch with the given normalized code,
	// or ErrNotFound.
	FindByCode(ctx context.Context, code string) (*Batch, error)
	// IncrementScanCount bumps scan_count by one and refreshes updated_at.
	// Best-effort from the verification engine's perspective; a lost update
	// under concurrent scans of the same code is acceptable.
	IncrementScanCount(ctx context.Context, code string) error
	// Create inserts a new batch (seeder). ErrExists on duplicate code.
	Create(ctx context.Context, b *Batch) error
	// Count returns the total catalogue size.
	Count(ctx context.Context) (int, error)
}
