package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/pharmatrace/medverify/internal/idgen"
)

// PostgresStore persists the batch catalogue in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed catalogue store.
// Schema is managed by the goose migrations in migrations/.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*Batch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, batch_code, name, manufacturer, manufacturer_score,
		       COALESCE(manufacturer_country, ''), expiry_date, manufacturing_date,
		       status, scan_count, distinct_locations, created_at, updated_at
		FROM batches
		WHERE batch_code = $1
	`, strings.ToUpper(code))

	var b Batch
	err := row.Scan(
		&b.ID, &b.BatchCode, &b.Name, &b.Manufacturer, &b.ManufacturerScore,
		&b.ManufacturerCountry, &b.ExpiryDate, &b.ManufacturingDate,
		&b.Status, &b.ScanCount, &b.DistinctLocations, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find batch: %w", err)
	}
	return &b, nil
}

func (s *PostgresStore) IncrementScanCount(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE batches
		SET scan_count = scan_count + 1, updated_at = NOW()
		WHERE batch_code = $1
	`, strings.ToUpper(code))
	if err != nil {
		return fmt.Errorf("failed to increment scan count: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, b *Batch) error {
	if b.ID == "" {
		b.ID = idgen.WithPrefix("bat_")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO batches (
			id, batch_code, name, manufacturer, manufacturer_score,
			manufacturer_country, expiry_date, manufacturing_date,
			status, scan_count, distinct_locations, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`,
		b.ID, strings.ToUpper(b.BatchCode), b.Name, b.Manufacturer,
		b.ManufacturerScore, nullIfEmpty(b.ManufacturerCountry),
		b.ExpiryDate, b.ManufacturingDate, b.Status, b.ScanCount,
		b.DistinctLocations,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrExists
		}
		return fmt.Errorf("failed to create batch: %w", err)
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM batches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count batches: %w", err)
	}
	return n, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
