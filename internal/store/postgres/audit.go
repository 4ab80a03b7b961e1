package postgres

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"github.com/opx/controlplane/internal/store"
	"github.com/opx/controlplane/pkg/domain"
)

// AuditStore is the postgres adapter for AutomationAudit: create-if-absent
// by auditId, plus the single legal mutation, UpdateStatus, which moves a
// RUNNING record to a terminal value exactly once.
type AuditStore struct {
	db *sqlx.DB
}

// NewAuditStore builds an AuditStore over db.
func NewAuditStore(db *sqlx.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Put creates an audit record if absent.
func (s *AuditStore) Put(ctx context.Context, entity domain.AutomationAudit) (domain.AutomationAudit, domain.CreateOutcome, error) {
	var zero domain.AutomationAudit
	data, err := json.Marshal(entity)
	if err != nil {
		return zero, "", err
	}

	query := `INSERT INTO audit_records (key, operation_type, status, start_time, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO NOTHING
		RETURNING data`

	var stored []byte
	err = s.db.QueryRowContext(ctx, query,
		entity.AuditID, entity.OperationType, entity.Status, entity.StartTime, data,
	).Scan(&stored)
	if err == nil {
		var out domain.AutomationAudit
		if err := json.Unmarshal(stored, &out); err != nil {
			return zero, "", err
		}
		return out, domain.Created, nil
	}
	if !isNotFound(err) {
		return zero, "", wrapQueryError("put", "audit_records", err)
	}
	existing, found, getErr := s.Get(ctx, entity.AuditID)
	if getErr != nil {
		return zero, "", getErr
	}
	if !found {
		return zero, "", store.ErrNotFound
	}
	return existing, domain.AlreadyExists, nil
}

// Get reads an audit record by id.
func (s *AuditStore) Get(ctx context.Context, key string) (domain.AutomationAudit, bool, error) {
	var zero domain.AutomationAudit
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM audit_records WHERE key = $1`, key).Scan(&data)
	if isNotFound(err) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, wrapQueryError("get", "audit_records", err)
	}
	var out domain.AutomationAudit
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, false, err
	}
	return out, true, nil
}

// AuditFilters narrows listByOperationType/listByStatus scans.
type AuditFilters struct {
	domain.ListFilters
	OperationType domain.OperationType
	Status        domain.AuditStatus
}

// Base implements postgres.IndexFilter.
func (f AuditFilters) Base() domain.ListFilters { return f.ListFilters }

// List scans audits by operation type or status, newest first by default.
func (s *AuditStore) List(ctx context.Context, indexKey string, filters AuditFilters) (domain.Page[domain.AutomationAudit], error) {
	order := "DESC"
	if filters.Order == domain.OrderOldestFirst {
		order = "ASC"
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}

	where := "operation_type = $1"
	arg := string(filters.OperationType)
	if filters.Status != "" {
		where = "status = $1"
		arg = string(filters.Status)
	}

	query := `SELECT data FROM audit_records WHERE ` + where + ` ORDER BY start_time ` + order + ` LIMIT $2`
	rows, err := s.db.QueryContext(ctx, query, arg, limit)
	if err != nil {
		return domain.Page[domain.AutomationAudit]{}, wrapQueryError("list", "audit_records", err)
	}
	defer rows.Close()

	var items []domain.AutomationAudit
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return domain.Page[domain.AutomationAudit]{}, err
		}
		var item domain.AutomationAudit
		if err := json.Unmarshal(data, &item); err != nil {
			return domain.Page[domain.AutomationAudit]{}, err
		}
		items = append(items, item)
	}
	return domain.Page[domain.AutomationAudit]{Items: items}, nil
}

// UpdateStatus moves auditID's record from RUNNING to a terminal status
// exactly once.
func (s *AuditStore) UpdateStatus(
	ctx context.Context,
	auditID string,
	mutate func(current domain.AutomationAudit) (domain.AutomationAudit, error),
) (domain.AutomationAudit, error) {
	var zero domain.AutomationAudit

	current, found, err := s.Get(ctx, auditID)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, store.ErrNotFound
	}
	if current.Status != domain.AuditRunning {
		return zero, store.ErrAlreadyTerminal
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
		`UPDATE audit_records SET data = $1, status = $2 WHERE key = $3 AND status = 'RUNNING'`,
		data, updated.Status, auditID,
	)
	if err != nil {
		return zero, wrapQueryError("updateStatus", "audit_records", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return zero, wrapQueryError("updateStatus", "audit_records", err)
	}
	if n == 0 {
		return zero, store.ErrAlreadyTerminal
	}
	return updated, nil
}
