// Package memory is opx's in-process store adapter: a map+mutex
// implementation of internal/store's interfaces, used as the default for
// local/dev wiring and throughout the unit test suite.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/opx/controlplane/pkg/domain"
)

// IndexFilter is the minimum shape a List filter type must carry: the
// limit/cursor/order fields every secondary index shares.
type IndexFilter interface {
	Base() domain.ListFilters
}

// Store is the append-only adapter shared by every entity kind that has no
// mutation path beyond Put (signal, evidence, promotion, outcome, summary,
// calibration, snapshot, idempotency).
type Store[T any, F IndexFilter] struct {
	mu      sync.RWMutex
	items   map[string]T
	keyOf   func(T) string
	timeOf  func(T) time.Time
	matchOf func(item T, indexKey string, filters F) bool
}

// New builds an empty Store. keyOf extracts the entity's own identity;
// timeOf extracts the timestamp List sorts by; matchOf reports whether an
// item belongs under indexKey given filters.
func New[T any, F IndexFilter](
	keyOf func(T) string,
	timeOf func(T) time.Time,
	matchOf func(item T, indexKey string, filters F) bool,
) *Store[T, F] {
	return &Store[T, F]{
		items:   make(map[string]T),
		keyOf:   keyOf,
		timeOf:  timeOf,
		matchOf: matchOf,
	}
}

// Put implements store.Putter: create-if-absent, never overwrites.
func (s *Store[T, F]) Put(ctx context.Context, entity T) (T, domain.CreateOutcome, error) {
	key := s.keyOf(entity)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[key]; ok {
		return existing, domain.AlreadyExists, nil
	}
	s.items[key] = entity
	return entity, domain.Created, nil
}

// Get implements store.Getter.
func (s *Store[T, F]) Get(ctx context.Context, key string) (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok, nil
}

// List implements store.Lister: a full scan filtered by matchOf, sorted and
// limited per the embedded domain.ListFilters. Acceptable for an in-process
// adapter at opx's expected scale; internal/store/postgres uses real
// indexes for the same contract.
func (s *Store[T, F]) List(ctx context.Context, indexKey string, filters F) (domain.Page[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []T
	for _, v := range s.items {
		if s.matchOf(v, indexKey, filters) {
			matched = append(matched, v)
		}
	}

	base := filters.Base()
	sort.Slice(matched, func(i, j int) bool {
		ti, tj := s.timeOf(matched[i]), s.timeOf(matched[j])
		if base.Order == domain.OrderOldestFirst {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})
	if base.Limit > 0 && len(matched) > base.Limit {
		matched = matched[:base.Limit]
	}
	return domain.Page[T]{Items: matched}, nil
}
