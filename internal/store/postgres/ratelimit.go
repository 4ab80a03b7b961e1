package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opx/controlplane/pkg/domain"
)

// RateLimitStore holds append-only rate-limit entries. Expiry is enforced
// by a query-time predicate (timestamp > since), never physical deletion —
// SPEC_FULL.md's Open Question decision #2.
type RateLimitStore struct {
	db *sqlx.DB
}

// NewRateLimitStore builds a RateLimitStore over db.
func NewRateLimitStore(db *sqlx.DB) *RateLimitStore {
	return &RateLimitStore{db: db}
}

// CountSince returns the entries for (principal, op) with timestamp after
// since, oldest first.
func (s *RateLimitStore) CountSince(ctx context.Context, principal string, op domain.OperationType, since time.Time) ([]domain.RateLimitEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT principal, operation_type, occurred_at FROM rate_limit_entries
		WHERE principal = $1 AND operation_type = $2 AND occurred_at > $3
		ORDER BY occurred_at ASC`,
		principal, op, since,
	)
	if err != nil {
		return nil, wrapQueryError("countSince", "rate_limit_entries", err)
	}
	defer rows.Close()

	var entries []domain.RateLimitEntry
	for rows.Next() {
		var e domain.RateLimitEntry
		if err := rows.Scan(&e.Principal, &e.OperationType, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Record appends a new entry for (principal, op).
func (s *RateLimitStore) Record(ctx context.Context, entry domain.RateLimitEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rate_limit_entries (principal, operation_type, occurred_at)
		VALUES ($1, $2, $3)`,
		entry.Principal, entry.OperationType, entry.Timestamp,
	)
	if err != nil {
		return wrapQueryError("record", "rate_limit_entries", err)
	}
	return nil
}
