package verifylog

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry // append order == chronological order
}

// NewMemoryStore creates an in-memory log store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	if cp.Location != nil {
		loc := *cp.Location
		cp.Location = &loc
	}
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}

	// Newest first
	result := make([]*Entry, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(result) < limit; i-- {
		cp := *s.entries[i]
		if cp.Location != nil {
			loc := *cp.Location
			cp.Location = &loc
		}
		result = append(result, &cp)
	}
	return result, nil
}

func (s *MemoryStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, e := range s.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func (s *MemoryStore) DailyCounts(ctx context.Context, since time.Time) ([]DailyCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDay := make(map[string]int)
	for _, e := range s.entries {
		if e.Timestamp.Before(since) {
			continue
		}
		byDay[e.Timestamp.UTC().Format("2006-01-02")]++
	}

	// YYYY-MM-DD sorts chronologically as text
	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)

	result := make([]DailyCount, 0, len(days))
	for _, d := range days {
		result = append(result, DailyCount{Date: d, Count: byDay[d]})
	}
	return result, nil
}
