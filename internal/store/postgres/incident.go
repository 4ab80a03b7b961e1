package postgres

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/opx/controlplane/internal/store"
	"github.com/opx/controlplane/pkg/domain"
)

// IncidentStore is the postgres adapter for the one entity kind with a
// real mutation path: FSM transitions via optimistic concurrency on
// incident_version (spec.md §5's "UPDATE ... WHERE incident_version = $n").
type IncidentStore struct {
	db *sqlx.DB
}

// NewIncidentStore builds an IncidentStore over db. The incidents table is
// created by internal/store/postgres/migrations.
func NewIncidentStore(db *sqlx.DB) *IncidentStore {
	return &IncidentStore{db: db}
}

// Put creates an incident if absent.
func (s *IncidentStore) Put(ctx context.Context, entity domain.Incident) (domain.Incident, domain.CreateOutcome, error) {
	var zero domain.Incident
	data, err := json.Marshal(entity)
	if err != nil {
		return zero, "", err
	}

	query := `INSERT INTO incidents (key, service, status, incident_version, created_at, tags, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (key) DO NOTHING
		RETURNING data`

	var stored []byte
	err = s.db.QueryRowContext(ctx, query,
		entity.IncidentID, entity.Service, entity.Status, entity.IncidentVersion,
		entity.Timestamps.CreatedAt, pq.Array(entity.Tags), data,
	).Scan(&stored)
	if err == nil {
		var out domain.Incident
		if err := json.Unmarshal(stored, &out); err != nil {
			return zero, "", err
		}
		return out, domain.Created, nil
	}
	if !isNotFound(err) {
		return zero, "", wrapQueryError("put", "incidents", err)
	}
	existing, found, getErr := s.Get(ctx, entity.IncidentID)
	if getErr != nil {
		return zero, "", getErr
	}
	if !found {
		return zero, "", store.ErrNotFound
	}
	return existing, domain.AlreadyExists, nil
}

// Get reads an incident by id.
func (s *IncidentStore) Get(ctx context.Context, key string) (domain.Incident, bool, error) {
	var zero domain.Incident
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM incidents WHERE key = $1`, key).Scan(&data)
	if isNotFound(err) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, wrapQueryError("get", "incidents", err)
	}
	var out domain.Incident
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, false, err
	}
	return out, true, nil
}

// IncidentFilters narrows listByStatus/listByService/listByTag scans. Tag
// matches the native text[] column via the GIN-indexed `= ANY(tags)`
// predicate rather than a JSONB containment check on data.
type IncidentFilters struct {
	domain.ListFilters
	Status  domain.IncidentStatus
	Service string
	Tag     string
}

// Base implements postgres.IndexFilter.
func (f IncidentFilters) Base() domain.ListFilters { return f.ListFilters }

// List scans incidents by status, service, or tag, newest-created first by
// default.
func (s *IncidentStore) List(ctx context.Context, indexKey string, filters IncidentFilters) (domain.Page[domain.Incident], error) {
	order := "DESC"
	if filters.Order == domain.OrderOldestFirst {
		order = "ASC"
	}
	limit := filters.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	where := "service = $1"
	var arg interface{} = filters.Service
	switch {
	case filters.Status != "":
		where = "status = $1"
		arg = string(filters.Status)
	case filters.Tag != "":
		where = "$1 = ANY(tags)"
		arg = filters.Tag
	}

	query := `SELECT data FROM incidents WHERE ` + where + ` ORDER BY created_at ` + order + ` LIMIT $2`
	rows, err := s.db.QueryContext(ctx, query, arg, limit)
	if err != nil {
		return domain.Page[domain.Incident]{}, wrapQueryError("list", "incidents", err)
	}
	defer rows.Close()

	var items []domain.Incident
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return domain.Page[domain.Incident]{}, err
		}
		var item domain.Incident
		if err := json.Unmarshal(data, &item); err != nil {
			return domain.Page[domain.Incident]{}, err
		}
		items = append(items, item)
	}
	return domain.Page[domain.Incident]{Items: items}, nil
}

// Update implements store.IncidentUpdater: a conditional UPDATE against the
// caller's expectedVersion. A zero-row update means a concurrent writer
// already moved the record; the caller gets store.ErrConflict so
// pkg/incident's re-read-then-validate loop can react (spec.md §5).
func (s *IncidentStore) Update(
	ctx context.Context,
	key string,
	expectedVersion int,
	mutate func(current domain.Incident) (domain.Incident, error),
) (domain.Incident, error) {
	var zero domain.Incident

	current, found, err := s.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, store.ErrNotFound
	}
	if current.IncidentVersion != expectedVersion {
		return current, store.ErrConflict
	}

	updated, err := mutate(current)
	if err != nil {
		return zero, err
	}
	data, err := json.Marshal(updated)
	if err != nil {
		return zero, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE incidents SET data = $1, service = $2, status = $3, incident_version = $4, tags = $5
			WHERE key = $6 AND incident_version = $7`,
		data, updated.Service, updated.Status, updated.IncidentVersion, pq.Array(updated.Tags), key, expectedVersion,
	)
	if err != nil {
		return zero, wrapQueryError("update", "incidents", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return zero, wrapQueryError("update", "incidents", err)
	}
	if n == 0 {
		return zero, store.ErrConflict
	}
	return updated, nil
}
