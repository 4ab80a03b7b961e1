package postgres_test

import (
	"database/sql"
	"encoding/json"

	"github.com/opx/controlplane/pkg/domain"
)

func marshalSignal(s domain.Signal) ([]byte, error) {
	return json.Marshal(s)
}

func sqlNoRowsSentinel() error {
	return sql.ErrNoRows
}
