package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/opx/controlplane/internal/store"
	"github.com/opx/controlplane/pkg/domain"
)

// AuditStore is the memory adapter for AutomationAudit: create-if-absent by
// auditId, plus the one legal mutation, UpdateStatus, which only ever moves
// a RUNNING record to a terminal value exactly once.
type AuditStore struct {
	mu    sync.Mutex
	items map[string]domain.AutomationAudit
}

// NewAuditStore builds an empty AuditStore.
func NewAuditStore() *AuditStore {
	return &AuditStore{items: make(map[string]domain.AutomationAudit)}
}

// Put creates an audit record if absent.
func (s *AuditStore) Put(ctx context.Context, entity domain.AutomationAudit) (domain.AutomationAudit, domain.CreateOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[entity.AuditID]; ok {
		return existing, domain.AlreadyExists, nil
	}
	s.items[entity.AuditID] = entity
	return entity, domain.Created, nil
}

// Get reads an audit record by id.
func (s *AuditStore) Get(ctx context.Context, key string) (domain.AutomationAudit, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	return v, ok, nil
}

// AuditFilters narrows listByOperationType/listByStatus scans, both newest
// first per spec.md §4.9.
type AuditFilters struct {
	domain.ListFilters
	OperationType domain.OperationType
	Status        domain.AuditStatus
}

// Base implements memory.IndexFilter.
func (f AuditFilters) Base() domain.ListFilters { return f.ListFilters }

// List scans audits by operation type or status, newest first by default.
func (s *AuditStore) List(ctx context.Context, indexKey string, filters AuditFilters) (domain.Page[domain.AutomationAudit], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []domain.AutomationAudit
	for _, v := range s.items {
		if filters.OperationType != "" && v.OperationType != filters.OperationType {
			continue
		}
		if filters.Status != "" && v.Status != filters.Status {
			continue
		}
		matched = append(matched, v)
	}
	sort.Slice(matched, func(i, j int) bool {
		if filters.Order == domain.OrderOldestFirst {
			return matched[i].StartTime.Before(matched[j].StartTime)
		}
		return matched[i].StartTime.After(matched[j].StartTime)
	})
	if filters.Limit > 0 && len(matched) > filters.Limit {
		matched = matched[:filters.Limit]
	}
	return domain.Page[domain.AutomationAudit]{Items: matched}, nil
}

// UpdateStatus moves auditID's record from RUNNING to a terminal status
// exactly once; calling it against an already-terminal record is rejected.
func (s *AuditStore) UpdateStatus(
	ctx context.Context,
	auditID string,
	mutate func(current domain.AutomationAudit) (domain.AutomationAudit, error),
) (domain.AutomationAudit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[auditID]
	if !ok {
		return domain.AutomationAudit{}, store.ErrNotFound
	}
	if current.Status != domain.AuditRunning {
		return domain.AutomationAudit{}, store.ErrAlreadyTerminal
	}
	updated, err := mutate(current)
	if err != nil {
		return domain.AutomationAudit{}, err
	}
	s.items[auditID] = updated
	return updated, nil
}
