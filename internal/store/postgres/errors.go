package postgres

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	sharederrors "github.com/opx/controlplane/pkg/shared/errors"
)

// pgUniqueViolation is the Postgres error code for a unique-constraint
// violation (23505), the one conflict every repository's conditional
// create can legitimately race into.
const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation, grounded on kubernaut's own migration note ("DD-010: migrated
// from lib/pq") to jackc/pgx/v5's pgconn.PgError.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

// isNotFound reports whether err is sql.ErrNoRows.
func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// wrapQueryError wraps any non-nil database/sql error with
// pkg/shared/errors.DatabaseError so the operation/component/cause triad
// survives. It does not map unique violations or missing rows; callers
// check those (isNotFound, isUniqueViolation) before calling it. resource is
// not used.
func wrapQueryError(operation, resource string, err error) error {
	if err == nil {
		return nil
	}
	return sharederrors.DatabaseError(operation, err)
}
