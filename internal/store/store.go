// Package store defines the storage port every append-only entity kind is
// built on (spec.md §4.2): conditional create-if-absent, read-by-key, and
// index-scoped listing. This is the seam at which the spec's "raw KV/
// document store driver" is explicitly out of scope — callers never see a
// concrete database type, only these interfaces.
package store

import (
	"context"

	"github.com/opx/controlplane/pkg/domain"
)

// Putter conditionally creates an entity keyed by its own identity. A second
// Put with identical content returns domain.AlreadyExists and the
// previously stored value unchanged — stores must never overwrite on Put.
type Putter[T any] interface {
	Put(ctx context.Context, entity T) (T, domain.CreateOutcome, error)
}

// Getter reads an entity by its key. Found is false when no entity exists
// for key; it is never used to signal a schema-validation failure, which
// callers surface as an error instead (an integrity fault, not an absence).
type Getter[T any] interface {
	Get(ctx context.Context, key string) (entity T, found bool, err error)
}

// Lister scans a secondary index. F is the index-specific filter type
// (status, service, operation type, time bucket, ...); it always embeds
// domain.ListFilters for the limit/cursor/order fields every index shares.
type Lister[T any, F any] interface {
	List(ctx context.Context, indexKey string, filters F) (domain.Page[T], error)
}

// Store composes Putter, Getter and Lister for one entity kind — the full
// contract append-only kinds (signal, evidence, promotion, outcome,
// summary, calibration, snapshot, idempotency) satisfy with no other
// mutation path.
type Store[T any, F any] interface {
	Putter[T]
	Getter[T]
	Lister[T, F]
}
