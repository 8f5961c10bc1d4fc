package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pharmatrace/medverify/internal/idgen"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu      sync.RWMutex
	batches map[string]*Batch // keyed by uppercase batch code
}

// NewMemoryStore creates an in-memory catalogue store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{batches: make(map[string]*Batch)}
}

func (s *MemoryStore) FindByCode(ctx context.Context, code string) (*Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[strings.ToUpper(code)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) IncrementScanCount(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[strings.ToUpper(code)]
	if !ok {
		return ErrNotFound
	}
	b.ScanCount++
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) Create(ctx context.Context, b *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToUpper(b.BatchCode)
	if _, ok := s.batches[key]; ok {
		return ErrExists
	}

	cp := *b
	cp.BatchCode = key
	if cp.ID == "" {
		cp.ID = idgen.WithPrefix("bat_")
	}
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = now
	}
	s.batches[key] = &cp
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.batches), nil
}
