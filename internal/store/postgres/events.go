package postgres

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opx/controlplane/pkg/domain"
)

// NewEventStore builds the generic append-only Store bound to
// incident_events, satisfying pkg/incident.Service's store.Putter[IncidentEvent]
// dependency. Incident events are never listed back by this adapter —
// pkg/incident only ever appends them — so the generic Store's List path
// goes unused here, same as the memory adapter wired in internal/api's
// tests.
func NewEventStore(db *sqlx.DB) *Store[domain.IncidentEvent, domain.ListFilters] {
	return New[domain.IncidentEvent, domain.ListFilters](db, Config[domain.IncidentEvent]{
		Table:       "incident_events",
		IndexColumn: "incident_id",
		TimeColumn:  "created_at",
		KeyOf:       func(e domain.IncidentEvent) string { return e.EventID },
		IndexOf:     func(e domain.IncidentEvent) string { return e.IncidentID },
		TimeOf:      func(e domain.IncidentEvent) time.Time { return e.CreatedAt },
	})
}
