// Package memory provides an in-process vector store for tests and
// ephemeral runs. Nothing is persisted.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sl2676/TexQuery/internal/adapters/driven/vectorstore/scoring"
	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

type index struct {
	spec    domain.IndexSpec
	ids     []string
	records map[string]domain.IndexRecord
}

// Store is an in-memory implementation of driven.VectorStore.
// Indexes enumerate in creation order; records rank stably by insertion order.
type Store struct {
	mu      sync.RWMutex
	order   []string
	indexes map[string]*index
	closed  bool
}

// NewStore creates an empty in-memory vector store.
func NewStore() *Store {
	return &Store{indexes: make(map[string]*index)}
}

// CreateIndexIfAbsent creates the index unless one with the same name exists.
func (s *Store) CreateIndexIfAbsent(_ context.Context, spec domain.IndexSpec) (bool, error) {
	if spec.Dimension <= 0 {
		return false, fmt.Errorf("create index %q: dimension must be positive", spec.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, domain.ErrClosed
	}
	if _, ok := s.indexes[spec.Name]; ok {
		return false, nil
	}
	s.indexes[spec.Name] = &index{spec: spec, records: make(map[string]domain.IndexRecord)}
	s.order = append(s.order, spec.Name)
	return true, nil
}

// Upsert writes the batch atomically. Every record is validated before
// any is stored; vectors are copied.
func (s *Store) Upsert(_ context.Context, name string, records []domain.IndexRecord) error {
	if len(records) > driven.MaxUpsertBatch {
		return fmt.Errorf("upsert %d records: %w", len(records), domain.ErrBatchTooLarge)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrClosed
	}
	idx, ok := s.indexes[name]
	if !ok {
		return fmt.Errorf("upsert into %q: %w", name, domain.ErrIndexNotFound)
	}
	for _, r := range records {
		if len(r.Vector) != idx.spec.Dimension {
			return fmt.Errorf("record %q has %d dimensions, index %q wants %d: %w",
				r.ID, len(r.Vector), name, idx.spec.Dimension, domain.ErrDimensionMismatch)
		}
	}
	for _, r := range records {
		r.Vector = append([]float32(nil), r.Vector...)
		if _, exists := idx.records[r.ID]; !exists {
			idx.ids = append(idx.ids, r.ID)
		}
		idx.records[r.ID] = r
	}
	return nil
}

// Query returns up to topK records nearest to vector.
func (s *Store) Query(_ context.Context, name string, vector []float32, topK int, includeMetadata bool) ([]domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrClosed
	}
	idx, ok := s.indexes[name]
	if !ok {
		return nil, fmt.Errorf("query %q: %w", name, domain.ErrIndexNotFound)
	}
	if len(vector) != idx.spec.Dimension {
		return nil, fmt.Errorf("query %q with %d dimensions: %w", name, len(vector), domain.ErrDimensionMismatch)
	}

	scored := make([]scoring.Scored, len(idx.ids))
	for i, id := range idx.ids {
		scored[i] = scoring.Scored{Pos: i, Score: scoring.Score(idx.spec.Metric, vector, idx.records[id].Vector)}
	}
	scored = scoring.Rank(idx.spec.Metric, scored, topK)

	matches := make([]domain.Match, len(scored))
	for i, sc := range scored {
		r := idx.records[idx.ids[sc.Pos]]
		matches[i] = domain.Match{ID: r.ID, Index: name, Score: sc.Score}
		if includeMetadata {
			matches[i].Metadata = r.Metadata
		}
	}
	return matches, nil
}

// ListIndexNames returns index names in creation order.
func (s *Store) ListIndexNames(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrClosed
	}
	return append([]string{}, s.order...), nil
}

// DeleteIndex removes the index and its records.
func (s *Store) DeleteIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrClosed
	}
	if _, ok := s.indexes[name]; !ok {
		return fmt.Errorf("delete %q: %w", name, domain.ErrIndexNotFound)
	}
	delete(s.indexes, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of records in the index, or -1 if it does not exist.
func (s *Store) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[name]
	if !ok {
		return -1
	}
	return len(idx.ids)
}

// Close marks the store closed. Later calls return domain.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
