package memory

import (
	"context"
	"sync"
	"time"

	"github.com/opx/controlplane/pkg/domain"
)

// RateLimitStore holds append-only rate-limit entries keyed by
// (principal, operationType). Expiry is enforced at read time by a query
// predicate (entry.Timestamp within the window), never by physical
// deletion — SPEC_FULL.md's Open Question decision #2.
type RateLimitStore struct {
	mu      sync.Mutex
	entries map[string][]domain.RateLimitEntry
}

// NewRateLimitStore builds an empty RateLimitStore.
func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{entries: make(map[string][]domain.RateLimitEntry)}
}

func rateLimitKey(principal string, op domain.OperationType) string {
	return principal + "#" + string(op)
}

// CountSince returns the entries for (principal, op) with Timestamp after
// since, oldest first, isolated from every other (principal, op) key.
func (s *RateLimitStore) CountSince(ctx context.Context, principal string, op domain.OperationType, since time.Time) ([]domain.RateLimitEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var live []domain.RateLimitEntry
	for _, e := range s.entries[rateLimitKey(principal, op)] {
		if e.Timestamp.After(since) {
			live = append(live, e)
		}
	}
	return live, nil
}

// Record appends a new entry for (principal, op) at timestamp now.
func (s *RateLimitStore) Record(ctx context.Context, entry domain.RateLimitEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rateLimitKey(entry.Principal, entry.OperationType)
	s.entries[key] = append(s.entries[key], entry)
	return nil
}
