package postgres

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"github.com/opx/controlplane/pkg/domain"
)

// KillSwitchStore holds the single kill-switch document as one row keyed by
// a fixed singleton key. Reads are eventually consistent by contract
// (spec.md §5); this adapter performs a plain read with no locking.
type KillSwitchStore struct {
	db *sqlx.DB
}

const killSwitchSingletonKey = "GLOBAL"

// NewKillSwitchStore builds a KillSwitchStore over db.
func NewKillSwitchStore(db *sqlx.DB) *KillSwitchStore {
	return &KillSwitchStore{db: db}
}

// Get reads the current kill-switch document. found=false means no record
// has ever been written — callers treat that as inactive.
func (s *KillSwitchStore) Get(ctx context.Context) (domain.KillSwitch, bool, error) {
	var zero domain.KillSwitch
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM kill_switch WHERE key = $1`, killSwitchSingletonKey).Scan(&data)
	if isNotFound(err) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, wrapQueryError("get", "kill_switch", err)
	}
	var out domain.KillSwitch
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, false, err
	}
	return out, true, nil
}

// Set upserts the kill-switch document. Authority sufficiency
// (EMERGENCY_OVERRIDE) is validated by the caller before Set is reached.
func (s *KillSwitchStore) Set(ctx context.Context, value domain.KillSwitch) (domain.KillSwitch, error) {
	var zero domain.KillSwitch
	data, err := json.Marshal(value)
	if err != nil {
		return zero, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kill_switch (key, data) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data`,
		killSwitchSingletonKey, data,
	)
	if err != nil {
		return zero, wrapQueryError("set", "kill_switch", err)
	}
	return value, nil
}
