package memory

import (
	"context"
	"sync"

	"github.com/opx/controlplane/internal/store"
	"github.com/opx/controlplane/pkg/domain"
)

// IncidentStore is the one mutable entity kind's memory adapter: Put for
// creation, Get/List for reads, Update for the re-read-then-validate FSM
// transition loop (spec.md §5).
type IncidentStore struct {
	mu        sync.Mutex
	items     map[string]domain.Incident
	createdAt map[string][]string // service -> incidentIds, insertion order; List scans items and does not read it
}

// NewIncidentStore builds an empty IncidentStore.
func NewIncidentStore() *IncidentStore {
	return &IncidentStore{
		items:     make(map[string]domain.Incident),
		createdAt: make(map[string][]string),
	}
}

// Put creates an incident if absent.
func (s *IncidentStore) Put(ctx context.Context, entity domain.Incident) (domain.Incident, domain.CreateOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[entity.IncidentID]; ok {
		return existing, domain.AlreadyExists, nil
	}
	s.items[entity.IncidentID] = entity
	s.createdAt[entity.Service] = append(s.createdAt[entity.Service], entity.IncidentID)
	return entity, domain.Created, nil
}

// Get reads an incident by id.
func (s *IncidentStore) Get(ctx context.Context, key string) (domain.Incident, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	return v, ok, nil
}

// IncidentFilters narrows listByStatus/listByService scans.
type IncidentFilters struct {
	domain.ListFilters
	Status  domain.IncidentStatus
	Service string
}

// Base implements memory.IndexFilter.
func (f IncidentFilters) Base() domain.ListFilters { return f.ListFilters }

// List scans incidents by status or service, whichever filter is non-empty.
func (s *IncidentStore) List(ctx context.Context, indexKey string, filters IncidentFilters) (domain.Page[domain.Incident], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []domain.Incident
	for _, v := range s.items {
		if filters.Status != "" && v.Status != filters.Status {
			continue
		}
		if filters.Service != "" && v.Service != filters.Service {
			continue
		}
		matched = append(matched, v)
	}

	limit := filters.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return domain.Page[domain.Incident]{Items: matched}, nil
}

// Update implements store.IncidentUpdater: re-read the current record under
// lock, validate expectedVersion, apply mutate, and persist — the
// linearizable last-writer-wins contract spec.md §5 requires.
func (s *IncidentStore) Update(
	ctx context.Context,
	key string,
	expectedVersion int,
	mutate func(current domain.Incident) (domain.Incident, error),
) (domain.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[key]
	if !ok {
		return domain.Incident{}, store.ErrNotFound
	}
	if current.IncidentVersion != expectedVersion {
		return current, store.ErrConflict
	}
	updated, err := mutate(current)
	if err != nil {
		return domain.Incident{}, err
	}
	s.items[key] = updated
	return updated, nil
}
