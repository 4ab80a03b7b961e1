package memory

import (
	"context"
	"sync"

	"github.com/opx/controlplane/pkg/domain"
)

// KillSwitchStore holds the single kill-switch document. Reads are
// eventually-consistent by contract (spec.md §5) even though this in-process
// adapter happens to be immediately consistent.
type KillSwitchStore struct {
	mu    sync.RWMutex
	value domain.KillSwitch
	set   bool
}

// NewKillSwitchStore builds a store defaulting to inactive (absent) until
// Set is first called.
func NewKillSwitchStore() *KillSwitchStore {
	return &KillSwitchStore{}
}

// Get reads the current kill-switch document. found=false means no record
// has ever been written — callers treat that as inactive (enabled=true).
func (s *KillSwitchStore) Get(ctx context.Context) (domain.KillSwitch, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.set, nil
}

// Set overwrites the kill-switch document. Authority sufficiency
// (EMERGENCY_OVERRIDE) is validated by the caller (pkg/automation) before
// Set is reached; this adapter just persists.
func (s *KillSwitchStore) Set(ctx context.Context, value domain.KillSwitch) (domain.KillSwitch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
	s.set = true
	return s.value, nil
}
