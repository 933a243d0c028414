// Package memory provides an in-memory TransactionStore used by the memory
// backend and by tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"txboard/internal/core"
	"txboard/internal/query"
)

type Store struct {
	mu    sync.RWMutex
	items []core.Transaction
}

func New() *Store {
	return &Store{}
}

// ReplaceAll swaps the whole collection under the lock, so readers see
// either the old or the new dataset, never a mix.
func (s *Store) ReplaceAll(_ context.Context, records []core.Transaction) error {
	next := make([]core.Transaction, len(records))
	copy(next, records)

	s.mu.Lock()
	s.items = next
	s.mu.Unlock()
	return nil
}

func (s *Store) Count(_ context.Context, f query.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, t := range s.items {
		if f.Matches(t) {
			n++
		}
	}
	return n, nil
}

// Find preserves insertion order; an out-of-range offset yields an empty page.
func (s *Store) Find(_ context.Context, f query.Filter, offset, limit int) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Transaction, 0, limit)
	skipped := 0
	for _, t := range s.items {
		if !f.Matches(t) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) SumPrice(_ context.Context, f query.Filter) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum float64
	for _, t := range s.items {
		if f.Matches(t) {
			sum += t.Price
		}
	}
	return sum, nil
}

func (s *Store) CategoryCounts(_ context.Context, f query.Filter) ([]core.CategoryCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, t := range s.items {
		if f.Matches(t) {
			counts[t.Category]++
		}
	}

	out := make([]core.CategoryCount, 0, len(counts))
	for cat, n := range counts {
		out = append(out, core.CategoryCount{Category: cat, Count: n})
	}
	// Stable output order for callers and tests.
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}
