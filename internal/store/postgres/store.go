// Package postgres is opx's one concrete storage adapter, grounded on
// kubernaut's pkg/datastorage/repository (jackc/pgx/v5 driver, jmoiron/sqlx
// for scanning, lib/pq array helpers, pressly/goose/v3 migrations,
// DATA-DOG/go-sqlmock for unit tests). Every entity kind's logical
// DynamoDB-style `PK={KIND}#{id}` row is realized as one row in a
// per-kind table with a `key` primary key and a `data` JSONB column holding
// the whole marshaled entity, plus the narrow set of indexed columns each
// kind's listBy<Index> needs.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opx/controlplane/pkg/domain"
	sharederrors "github.com/opx/controlplane/pkg/shared/errors"
)

// row is the generic shape every append-only table's SELECT returns.
type row struct {
	Key  string `db:"key"`
	Data []byte `db:"data"`
}

// Store is the generic append-only adapter: Put/Get/List backed by one
// Postgres table, identical semantics to internal/store/memory.Store but
// durable. T is marshaled whole into the `data` JSONB column; indexCol
// names the column List filters against (service, operation_type, status,
// ...), and occurredCol names the timestamp column List orders by.
type Store[T any, F IndexFilter] struct {
	db         *sqlx.DB
	table      string
	indexCol   string
	occurredCol string
	keyOf      func(T) string
	indexOf    func(T) string
	timeOf     func(T) time.Time
}

// IndexFilter is the minimum shape a List filter type carries.
type IndexFilter interface {
	Base() domain.ListFilters
}

// Config parameterizes New for one entity kind's table.
type Config[T any] struct {
	Table       string
	IndexColumn string
	TimeColumn  string
	KeyOf       func(T) string
	IndexOf     func(T) string
	TimeOf      func(T) time.Time
}

// New builds a Store bound to one table.
func New[T any, F IndexFilter](db *sqlx.DB, cfg Config[T]) *Store[T, F] {
	return &Store[T, F]{
		db:          db,
		table:       cfg.Table,
		indexCol:    cfg.IndexColumn,
		occurredCol: cfg.TimeColumn,
		keyOf:       cfg.KeyOf,
		indexOf:     cfg.IndexOf,
		timeOf:      cfg.TimeOf,
	}
}

// Put performs a conditional create-if-absent insert. On a unique-key
// conflict it falls back to reading the already-stored row, satisfying the
// idempotent-bytes guarantee (spec.md §4.2) without ever overwriting.
func (s *Store[T, F]) Put(ctx context.Context, entity T) (T, domain.CreateOutcome, error) {
	var zero T
	key := s.keyOf(entity)
	data, err := json.Marshal(entity)
	if err != nil {
		return zero, "", sharederrors.ParseError(s.table, "json", err)
	}

	query := `INSERT INTO ` + s.table + ` (key, ` + s.indexCol + `, ` + s.occurredCol + `, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO NOTHING
		RETURNING data`

	var stored []byte
	err = s.db.QueryRowContext(ctx, query, key, s.indexOf(entity), s.timeOf(entity), data).Scan(&stored)
	if err == nil {
		var out T
		if err := json.Unmarshal(stored, &out); err != nil {
			return zero, "", sharederrors.ParseError(s.table, "json", err)
		}
		return out, domain.Created, nil
	}
	if !isNotFound(err) {
		return zero, "", wrapQueryError("put", s.table, err)
	}

	existing, found, getErr := s.Get(ctx, key)
	if getErr != nil {
		return zero, "", getErr
	}
	if !found {
		// Lost a race with a concurrent deleter that can't happen for an
		// append-only table; treat as a transient conflict the caller may
		// retry.
		return zero, "", sharederrors.DatabaseError("put", sql.ErrNoRows)
	}
	return existing, domain.AlreadyExists, nil
}

// Get reads one row by key.
func (s *Store[T, F]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	var r row
	query := `SELECT key, data FROM ` + s.table + ` WHERE key = $1`
	err := s.db.GetContext(ctx, &r, query, key)
	if isNotFound(err) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, wrapQueryError("get", s.table, err)
	}
	var out T
	if err := json.Unmarshal(r.Data, &out); err != nil {
		return zero, false, sharederrors.ParseError(s.table, "json", err)
	}
	return out, true, nil
}

// List scans the table's index column, ordered and limited per filters.
func (s *Store[T, F]) List(ctx context.Context, indexKey string, filters F) (domain.Page[T], error) {
	base := filters.Base()
	order := "DESC"
	if base.Order == domain.OrderOldestFirst {
		order = "ASC"
	}
	limit := base.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT key, data FROM ` + s.table + `
		WHERE ` + s.indexCol + ` = $1
		ORDER BY ` + s.occurredCol + ` ` + order + `
		LIMIT $2`

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, indexKey, limit); err != nil {
		return domain.Page[T]{}, wrapQueryError("list", s.table, err)
	}

	items := make([]T, 0, len(rows))
	for _, r := range rows {
		var item T
		if err := json.Unmarshal(r.Data, &item); err != nil {
			return domain.Page[T]{}, sharederrors.ParseError(s.table, "json", err)
		}
		items = append(items, item)
	}
	return domain.Page[T]{Items: items}, nil
}
