package api

import (
	"context"

	"github.com/opx/controlplane/internal/store/memory"
	"github.com/opx/controlplane/internal/store/postgres"
	"github.com/opx/controlplane/pkg/domain"
)

// IncidentLister answers GET /incidents. memory.IncidentStore and
// postgres.IncidentStore each define their own concrete Filters type (the
// postgres one additionally carrying a Tag field), so there is no single
// generic store.Lister instantiation both satisfy; the two adapters below
// translate this fixed (status, service, limit) query into each backend's
// own Filters struct instead.
type IncidentLister interface {
	ListIncidents(ctx context.Context, status domain.IncidentStatus, service string, limit int) (domain.Page[domain.Incident], error)
}

// MemoryIncidentLister adapts *memory.IncidentStore to IncidentLister.
type MemoryIncidentLister struct {
	Store *memory.IncidentStore
}

func (l MemoryIncidentLister) ListIncidents(ctx context.Context, status domain.IncidentStatus, service string, limit int) (domain.Page[domain.Incident], error) {
	return l.Store.List(ctx, "", memory.IncidentFilters{
		ListFilters: domain.ListFilters{Limit: limit},
		Status:      status,
		Service:     service,
	})
}

// PostgresIncidentLister adapts *postgres.IncidentStore to IncidentLister.
type PostgresIncidentLister struct {
	Store *postgres.IncidentStore
}

func (l PostgresIncidentLister) ListIncidents(ctx context.Context, status domain.IncidentStatus, service string, limit int) (domain.Page[domain.Incident], error) {
	return l.Store.List(ctx, "", postgres.IncidentFilters{
		ListFilters: domain.ListFilters{Limit: limit},
		Status:      status,
		Service:     service,
	})
}
