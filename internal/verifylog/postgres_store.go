package verifylog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore persists verification logs in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed log store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, e *Entry) error {
	var lat, lng any
	if e.Location != nil {
		lat, lng = e.Location.Lat, e.Location.Lng
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verification_logs (
			id, batch_code, status, reason, confidence, lat, lng, client_ip, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		e.ID, e.BatchCode, e.Status, e.Reason, e.Confidence,
		lat, lng, nullIfEmpty(e.ClientIP), e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append verification log: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, batch_code, status, reason, confidence, lat, lng,
		       COALESCE(client_ip, ''), created_at
		FROM verification_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list verification logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Entry
	for rows.Next() {
		var e Entry
		var lat, lng sql.NullFloat64
		if err := rows.Scan(&e.ID, &e.BatchCode, &e.Status, &e.Reason,
			&e.Confidence, &lat, &lng, &e.ClientIP, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan verification log: %w", err)
		}
		if lat.Valid && lng.Valid {
			e.Location = &GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
		}
		result = append(result, &e)
	}
	return result, rows.Err()
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM verification_logs
		GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count verification logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) DailyCounts(ctx context.Context, since time.Time) ([]DailyCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT TO_CHAR(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM verification_logs
		WHERE created_at >= $1
		GROUP BY day
		ORDER BY day ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []DailyCount
	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		result = append(result, dc)
	}
	return result, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
