package store

import "context"

// IncidentUpdater is the one mutation path for incident records: optimistic,
// conditional on the caller's observed version, so pkg/incident's re-read-
// then-validate loop can detect a concurrent writer. ErrConflict is returned
// (never panics, never silently ignored) when expectedVersion is stale.
type IncidentUpdater[T any] interface {
	Update(ctx context.Context, key string, expectedVersion int, mutate func(current T) (T, error)) (T, error)
}

// AuditStatusUpdater is the one mutation path for audit records:
// RUNNING -> terminal exactly once. Calling it against an already-terminal
// record is disallowed (spec.md §4.9) and returns ErrAlreadyTerminal.
type AuditStatusUpdater[T any] interface {
	UpdateStatus(ctx context.Context, auditID string, mutate func(current T) (T, error)) (T, error)
}

// KillSwitchSetter is the one mutation path for the kill-switch document.
type KillSwitchSetter[T any] interface {
	Set(ctx context.Context, value T) (T, error)
}
