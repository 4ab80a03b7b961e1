package memory

import (
	"time"

	"github.com/opx/controlplane/pkg/domain"
)

// allServicesKey mirrors internal/store/postgres's listByService sentinel
// for the cross-service "ALL" rollup.
const allServicesKey = "ALL"

// NewOutcomeStore builds an in-process IncidentOutcome store, listed by
// service or allServicesKey for every service. Filters is plain
// domain.ListFilters — no adapter-specific field is needed beyond
// limit/cursor/order, so pkg/learning/patterns and pkg/learning/snapshot can
// depend on store.Lister[T, domain.ListFilters] without knowing which
// adapter backs it.
func NewOutcomeStore() *Store[domain.IncidentOutcome, domain.ListFilters] {
	return New(
		func(o domain.IncidentOutcome) string { return o.OutcomeID },
		func(o domain.IncidentOutcome) time.Time { return o.RecordedAt },
		func(o domain.IncidentOutcome, indexKey string, _ domain.ListFilters) bool {
			return indexKey == allServicesKey || o.Service == indexKey
		},
	)
}

// NewSummaryStore builds an in-process ResolutionSummary store, listed by
// service or allServicesKey.
func NewSummaryStore() *Store[domain.ResolutionSummary, domain.ListFilters] {
	return New(
		func(s domain.ResolutionSummary) string { return s.SummaryID },
		func(s domain.ResolutionSummary) time.Time { return s.EndDate },
		func(s domain.ResolutionSummary, indexKey string, _ domain.ListFilters) bool {
			return indexKey == allServicesKey || s.Service == indexKey
		},
	)
}

// NewCalibrationStore builds an in-process ConfidenceCalibration store;
// there is only one partition, so every List matches every record.
func NewCalibrationStore() *Store[domain.ConfidenceCalibration, domain.ListFilters] {
	return New(
		func(c domain.ConfidenceCalibration) string { return c.CalibrationID },
		func(c domain.ConfidenceCalibration) time.Time { return c.EndDate },
		func(c domain.ConfidenceCalibration, _ string, _ domain.ListFilters) bool { return true },
	)
}

// SnapshotFilters narrows a listByType scan.
type SnapshotFilters struct {
	domain.ListFilters
	SnapshotType domain.SnapshotType
}

// Base implements memory.IndexFilter.
func (f SnapshotFilters) Base() domain.ListFilters { return f.ListFilters }

// NewSnapshotStore builds an in-process LearningSnapshot store, listed by
// snapshot type.
func NewSnapshotStore() *Store[domain.LearningSnapshot, SnapshotFilters] {
	return New(
		func(s domain.LearningSnapshot) string { return s.SnapshotID },
		func(s domain.LearningSnapshot) time.Time { return s.Data.DateRange.End },
		func(s domain.LearningSnapshot, indexKey string, _ SnapshotFilters) bool {
			return string(s.SnapshotType) == indexKey
		},
	)
}
