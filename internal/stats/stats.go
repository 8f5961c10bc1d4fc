// Package stats aggregates verification activity for the dashboard.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/pharmatrace/medverify/internal/catalog"
	"github.com/pharmatrace/medverify/internal/verifylog"
)

const (
	// DefaultLogLimit is how many log entries /api/logs returns when the
	// caller does not ask for a specific amount.
	DefaultLogLimit = 100

	// MaxLogLimit caps a single /api/logs page.
	MaxLogLimit = 1000

	// trendDays is the window for the daily verification trend.
	trendDays = 7
)

// Summary is the dashboard overview payload.
type Summary struct {
	StatusDistribution map[string]int         `json:"status_distribution"`
	DailyVerifications []verifylog.DailyCount `json:"daily_verifications"`
	TotalBatches       int                    `json:"total_batches"`
	TotalVerifications int                    `json:"total_verifications"`
}

// Service answers log and summary queries from the underlying stores.
type Service struct {
	logs      verifylog.Store
	catalogue catalog.Store
	now       func() time.Time
}

// NewService creates a stats service.
func NewService(logs verifylog.Store, catalogue catalog.Store) *Service {
	return &Service{logs: logs, catalogue: catalogue, now: time.Now}
}

// RecentLogs returns up to limit entries, newest first. A non-positive limit
// falls back to DefaultLogLimit; anything above MaxLogLimit is clamped.
func (s *Service) RecentLogs(ctx context.Context, limit int) ([]*verifylog.Entry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	if limit > MaxLogLimit {
		limit = MaxLogLimit
	}
	entries, err := s.logs.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	return entries, nil
}

// Summarize builds the dashboard summary: counts per status, a trailing
// seven-day trend in ascending date order, and catalogue totals.
func (s *Service) Summarize(ctx context.Context) (*Summary, error) {
	byStatus, err := s.logs.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}

	since := s.now().UTC().AddDate(0, 0, -(trendDays - 1)).Truncate(24 * time.Hour)
	daily, err := s.logs.DailyCounts(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("daily counts: %w", err)
	}
	if daily == nil {
		daily = []verifylog.DailyCount{}
	}

	batches, err := s.catalogue.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count batches: %w", err)
	}

	total := 0
	distribution := make(map[string]int, len(byStatus))
	for status, n := range byStatus {
		distribution[status] = n
		total += n
	}

	return &Summary{
		StatusDistribution: distribution,
		DailyVerifications: daily,
		TotalBatches:       batches,
		TotalVerifications: total,
	}, nil
}
