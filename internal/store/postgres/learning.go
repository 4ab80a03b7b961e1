package postgres

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"github.com/opx/controlplane/pkg/domain"
)

// allServicesKey is the listByService sentinel meaning "every service" —
// the aggregate rollup spec.md §4.7 writes as `service∨"ALL"`.
const allServicesKey = "ALL"

// OutcomeStore is the postgres adapter for IncidentOutcome: append-only,
// listed by service (or allServicesKey for the cross-service rollup) and
// ordered by recorded_at (when the outcome was recorded).
type OutcomeStore struct {
	db *sqlx.DB
}

// NewOutcomeStore builds an OutcomeStore over db.
func NewOutcomeStore(db *sqlx.DB) *OutcomeStore {
	return &OutcomeStore{db: db}
}

// Put creates an outcome record if absent.
func (s *OutcomeStore) Put(ctx context.Context, entity domain.IncidentOutcome) (domain.IncidentOutcome, domain.CreateOutcome, error) {
	var zero domain.IncidentOutcome
	data, err := json.Marshal(entity)
	if err != nil {
		return zero, "", err
	}

	query := `INSERT INTO outcomes (key, service, recorded_at, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO NOTHING
		RETURNING data`

	var stored []byte
	err = s.db.QueryRowContext(ctx, query, entity.OutcomeID, entity.Service, entity.RecordedAt, data).Scan(&stored)
	if err == nil {
		var out domain.IncidentOutcome
		if err := json.Unmarshal(stored, &out); err != nil {
			return zero, "", err
		}
		return out, domain.Created, nil
	}
	if !isNotFound(err) {
		return zero, "", wrapQueryError("put", "outcomes", err)
	}
	existing, found, getErr := s.Get(ctx, entity.OutcomeID)
	if getErr != nil {
		return zero, "", getErr
	}
	if !found {
		return zero, "", wrapQueryError("put", "outcomes", err)
	}
	return existing, domain.AlreadyExists, nil
}

// Get reads an outcome by id.
func (s *OutcomeStore) Get(ctx context.Context, key string) (domain.IncidentOutcome, bool, error) {
	var zero domain.IncidentOutcome
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM outcomes WHERE key = $1`, key).Scan(&data)
	if isNotFound(err) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, wrapQueryError("get", "outcomes", err)
	}
	var out domain.IncidentOutcome
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, false, err
	}
	return out, true, nil
}

// List scans outcomes for one service, or every service when indexKey is
// allServicesKey, oldest-first by default so windowed callers can trim
// without needing a second sort. filters is plain domain.ListFilters — see
// internal/store/memory's NewOutcomeStore doc for why no adapter-specific
// filter type is needed here.
func (s *OutcomeStore) List(ctx context.Context, indexKey string, filters domain.ListFilters) (domain.Page[domain.IncidentOutcome], error) {
	order := "ASC"
	if filters.Order == domain.OrderNewestFirst {
		order = "DESC"
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = 10000
	}

	query := `SELECT data FROM outcomes ORDER BY recorded_at ` + order + ` LIMIT $1`
	args := []interface{}{limit}
	if indexKey != allServicesKey {
		query = `SELECT data FROM outcomes WHERE service = $1 ORDER BY recorded_at ` + order + ` LIMIT $2`
		args = []interface{}{indexKey, limit}
	}

	dbRows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Page[domain.IncidentOutcome]{}, wrapQueryError("list", "outcomes", err)
	}
	defer dbRows.Close()

	var items []domain.IncidentOutcome
	for dbRows.Next() {
		var data []byte
		if err := dbRows.Scan(&data); err != nil {
			return domain.Page[domain.IncidentOutcome]{}, err
		}
		var item domain.IncidentOutcome
		if err := json.Unmarshal(data, &item); err != nil {
			return domain.Page[domain.IncidentOutcome]{}, err
		}
		items = append(items, item)
	}
	return domain.Page[domain.IncidentOutcome]{Items: items}, nil
}

// SummaryStore is the postgres adapter for ResolutionSummary.
type SummaryStore struct {
	db *sqlx.DB
}

// NewSummaryStore builds a SummaryStore over db.
func NewSummaryStore(db *sqlx.DB) *SummaryStore {
	return &SummaryStore{db: db}
}

// Put creates a resolution summary if absent, idempotent by summaryId.
func (s *SummaryStore) Put(ctx context.Context, entity domain.ResolutionSummary) (domain.ResolutionSummary, domain.CreateOutcome, error) {
	var zero domain.ResolutionSummary
	data, err := json.Marshal(entity)
	if err != nil {
		return zero, "", err
	}

	query := `INSERT INTO resolution_summaries (key, service, created_at, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO NOTHING
		RETURNING data`

	var stored []byte
	err = s.db.QueryRowContext(ctx, query, entity.SummaryID, entity.Service, entity.EndDate, data).Scan(&stored)
	if err == nil {
		var out domain.ResolutionSummary
		if err := json.Unmarshal(stored, &out); err != nil {
			return zero, "", err
		}
		return out, domain.Created, nil
	}
	if !isNotFound(err) {
		return zero, "", wrapQueryError("put", "resolution_summaries", err)
	}
	existing, found, getErr := s.Get(ctx, entity.SummaryID)
	if getErr != nil {
		return zero, "", getErr
	}
	if !found {
		return zero, "", wrapQueryError("put", "resolution_summaries", err)
	}
	return existing, domain.AlreadyExists, nil
}

// Get reads a resolution summary by id.
func (s *SummaryStore) Get(ctx context.Context, key string) (domain.ResolutionSummary, bool, error) {
	var zero domain.ResolutionSummary
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM resolution_summaries WHERE key = $1`, key).Scan(&data)
	if isNotFound(err) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, wrapQueryError("get", "resolution_summaries", err)
	}
	var out domain.ResolutionSummary
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, false, err
	}
	return out, true, nil
}

// List scans summaries for one service, or every service when indexKey is
// allServicesKey (used by pkg/learning/snapshot to project summaryIds in
// range).
func (s *SummaryStore) List(ctx context.Context, indexKey string, filters domain.ListFilters) (domain.Page[domain.ResolutionSummary], error) {
	order := "DESC"
	if filters.Order == domain.OrderOldestFirst {
		order = "ASC"
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = 1000
	}

	query := `SELECT data FROM resolution_summaries ORDER BY created_at ` + order + ` LIMIT $1`
	args := []interface{}{limit}
	if indexKey != allServicesKey {
		query = `SELECT data FROM resolution_summaries WHERE service = $1 ORDER BY created_at ` + order + ` LIMIT $2`
		args = []interface{}{indexKey, limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Page[domain.ResolutionSummary]{}, wrapQueryError("list", "resolution_summaries", err)
	}
	defer rows.Close()

	var items []domain.ResolutionSummary
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return domain.Page[domain.ResolutionSummary]{}, err
		}
		var item domain.ResolutionSummary
		if err := json.Unmarshal(data, &item); err != nil {
			return domain.Page[domain.ResolutionSummary]{}, err
		}
		items = append(items, item)
	}
	return domain.Page[domain.ResolutionSummary]{Items: items}, nil
}

// CalibrationStore is the postgres adapter for ConfidenceCalibration — a
// single global partition, listed only by time.
type CalibrationStore struct {
	db *sqlx.DB
}

// NewCalibrationStore builds a CalibrationStore over db.
func NewCalibrationStore(db *sqlx.DB) *CalibrationStore {
	return &CalibrationStore{db: db}
}

// Put creates a calibration record if absent, idempotent by calibrationId.
func (s *CalibrationStore) Put(ctx context.Context, entity domain.ConfidenceCalibration) (domain.ConfidenceCalibration, domain.CreateOutcome, error) {
	var zero domain.ConfidenceCalibration
	data, err := json.Marshal(entity)
	if err != nil {
		return zero, "", err
	}

	query := `INSERT INTO confidence_calibrations (key, created_at, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO NOTHING
		RETURNING data`

	var stored []byte
	err = s.db.QueryRowContext(ctx, query, entity.CalibrationID, entity.EndDate, data).Scan(&stored)
	if err == nil {
		var out domain.ConfidenceCalibration
		if err := json.Unmarshal(stored, &out); err != nil {
			return zero, "", err
		}
		return out, domain.Created, nil
	}
	if !isNotFound(err) {
		return zero, "", wrapQueryError("put", "confidence_calibrations", err)
	}
	existing, found, getErr := s.Get(ctx, entity.CalibrationID)
	if getErr != nil {
		return zero, "", getErr
	}
	if !found {
		return zero, "", wrapQueryError("put", "confidence_calibrations", err)
	}
	return existing, domain.AlreadyExists, nil
}

// Get reads a calibration record by id.
func (s *CalibrationStore) Get(ctx context.Context, key string) (domain.ConfidenceCalibration, bool, error) {
	var zero domain.ConfidenceCalibration
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM confidence_calibrations WHERE key = $1`, key).Scan(&data)
	if isNotFound(err) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, wrapQueryError("get", "confidence_calibrations", err)
	}
	var out domain.ConfidenceCalibration
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, false, err
	}
	return out, true, nil
}

// List scans every calibration record, ignoring indexKey — there is only
// one partition.
func (s *CalibrationStore) List(ctx context.Context, indexKey string, filters domain.ListFilters) (domain.Page[domain.ConfidenceCalibration], error) {
	order := "DESC"
	if filters.Order == domain.OrderOldestFirst {
		order = "ASC"
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = 1000
	}

	query := `SELECT data FROM confidence_calibrations ORDER BY created_at ` + order + ` LIMIT $1`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return domain.Page[domain.ConfidenceCalibration]{}, wrapQueryError("list", "confidence_calibrations", err)
	}
	defer rows.Close()

	var items []domain.ConfidenceCalibration
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return domain.Page[domain.ConfidenceCalibration]{}, err
		}
		var item domain.ConfidenceCalibration
		if err := json.Unmarshal(data, &item); err != nil {
			return domain.Page[domain.ConfidenceCalibration]{}, err
		}
		items = append(items, item)
	}
	return domain.Page[domain.ConfidenceCalibration]{Items: items}, nil
}

// SnapshotStore is the postgres adapter for LearningSnapshot, listed by
// snapshot type.
type SnapshotStore struct {
	db *sqlx.DB
}

// NewSnapshotStore builds a SnapshotStore over db.
func NewSnapshotStore(db *sqlx.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Put creates a snapshot if absent, idempotent by snapshotId.
func (s *SnapshotStore) Put(ctx context.Context, entity domain.LearningSnapshot) (domain.LearningSnapshot, domain.CreateOutcome, error) {
	var zero domain.LearningSnapshot
	data, err := json.Marshal(entity)
	if err != nil {
		return zero, "", err
	}

	query := `INSERT INTO learning_snapshots (key, snapshot_type, created_at, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO NOTHING
		RETURNING data`

	var stored []byte
	err = s.db.QueryRowContext(ctx, query, entity.SnapshotID, entity.SnapshotType, entity.Data.DateRange.End, data).Scan(&stored)
	if err == nil {
		var out domain.LearningSnapshot
		if err := json.Unmarshal(stored, &out); err != nil {
			return zero, "", err
		}
		return out, domain.Created, nil
	}
	if !isNotFound(err) {
		return zero, "", wrapQueryError("put", "learning_snapshots", err)
	}
	existing, found, getErr := s.Get(ctx, entity.SnapshotID)
	if getErr != nil {
		return zero, "", getErr
	}
	if !found {
		return zero, "", wrapQueryError("put", "learning_snapshots", err)
	}
	return existing, domain.AlreadyExists, nil
}

// Get reads a snapshot by id.
func (s *SnapshotStore) Get(ctx context.Context, key string) (domain.LearningSnapshot, bool, error) {
	var zero domain.LearningSnapshot
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM learning_snapshots WHERE key = $1`, key).Scan(&data)
	if isNotFound(err) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, wrapQueryError("get", "learning_snapshots", err)
	}
	var out domain.LearningSnapshot
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, false, err
	}
	return out, true, nil
}

// SnapshotFilters narrows a listByType scan.
type SnapshotFilters struct {
	domain.ListFilters
	SnapshotType domain.SnapshotType
}

// Base implements postgres.IndexFilter.
func (f SnapshotFilters) Base() domain.ListFilters { return f.ListFilters }

// List scans snapshots by type.
func (s *SnapshotStore) List(ctx context.Context, indexKey string, filters SnapshotFilters) (domain.Page[domain.LearningSnapshot], error) {
	order := "DESC"
	if filters.Order == domain.OrderOldestFirst {
		order = "ASC"
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT data FROM learning_snapshots WHERE snapshot_type = $1 ORDER BY created_at ` + order + ` LIMIT $2`
	rows, err := s.db.QueryContext(ctx, query, indexKey, limit)
	if err != nil {
		return domain.Page[domain.LearningSnapshot]{}, wrapQueryError("list", "learning_snapshots", err)
	}
	defer rows.Close()

	var items []domain.LearningSnapshot
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return domain.Page[domain.LearningSnapshot]{}, err
		}
		var item domain.LearningSnapshot
		if err := json.Unmarshal(data, &item); err != nil {
			return domain.Page[domain.LearningSnapshot]{}, err
		}
		items = append(items, item)
	}
	return domain.Page[domain.LearningSnapshot]{Items: items}, nil
}
