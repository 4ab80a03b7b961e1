// Package snapshot implements the snapshot service (spec.md §4.7): given a
// (type, start, end) window, list the outcomes/summaries/calibrations that
// fall within it, project their ids, and persist an immutable
// LearningSnapshot. Window derivation itself (§4.8's calendar-bounded
// rules) lives in pkg/automation, which calls Snapshot with an already-
// resolved {start, end}.
package snapshot

import (
	"context"
	"sort"
	"time"

	"github.com/opx/controlplane/internal/identity"
	"github.com/opx/controlplane/internal/store"
	"github.com/opx/controlplane/pkg/domain"
)

// Version is the snapshot service's algorithm version, folded into
// snapshotId.
const Version = "learning-snapshot-v1.0.0"

// allServicesKey / globalPartitionKey are the listByService/listByType
// sentinels a snapshot always queries with — a snapshot spans every
// service, and the calibration store has only one global partition.
const (
	allServicesKey    = "ALL"
	globalPartitionKey = "GLOBAL"
)

// windowTimestampLayout is the ISO 8601 basic form (no ':' or '-'), so a
// formatted window boundary never contains the colon digest separator.
const windowTimestampLayout = "20060102T150405.000Z"

// ComputeSnapshotID is an Open Question resolution: spec.md §3 doesn't fix
// snapshotId's inputs. A snapshot's identity is fully determined by what
// window it covers and under which retention class.
func ComputeSnapshotID(snapshotType domain.SnapshotType, start, end time.Time, version string) string {
	return identity.DigestColon(string(snapshotType), start.UTC().Format(windowTimestampLayout), end.UTC().Format(windowTimestampLayout), version)
}

// Service computes LearningSnapshot documents.
type Service struct {
	Outcomes     store.Lister[domain.IncidentOutcome, domain.ListFilters]
	Summaries    store.Lister[domain.ResolutionSummary, domain.ListFilters]
	Calibrations store.Lister[domain.ConfidenceCalibration, domain.ListFilters]
	Snapshots    store.Putter[domain.LearningSnapshot]
}

// NewService builds a Service.
func NewService(
	outcomes store.Lister[domain.IncidentOutcome, domain.ListFilters],
	summaries store.Lister[domain.ResolutionSummary, domain.ListFilters],
	calibrations store.Lister[domain.ConfidenceCalibration, domain.ListFilters],
	snapshots store.Putter[domain.LearningSnapshot],
) *Service {
	return &Service{Outcomes: outcomes, Summaries: summaries, Calibrations: calibrations, Snapshots: snapshots}
}

// Snapshot lists every outcome/summary/calibration whose own window falls
// within [start, end), computes the aggregate, and persists it
// idempotently by snapshotId.
func (s *Service) Snapshot(ctx context.Context, snapshotType domain.SnapshotType, start, end time.Time) (domain.LearningSnapshot, domain.CreateOutcome, error) {
	outcomeIDs, services, err := s.windowedOutcomes(ctx, start, end)
	if err != nil {
		return domain.LearningSnapshot{}, "", err
	}
	summaryIDs, err := s.windowedSummaries(ctx, start, end)
	if err != nil {
		return domain.LearningSnapshot{}, "", err
	}
	calibrationIDs, err := s.windowedCalibrations(ctx, start, end)
	if err != nil {
		return domain.LearningSnapshot{}, "", err
	}

	data := domain.SnapshotData{
		TotalOutcomes:     len(outcomeIDs),
		TotalSummaries:    len(summaryIDs),
		TotalCalibrations: len(calibrationIDs),
		Services:          services,
		DateRange:         domain.SnapshotDateRange{Start: start, End: end},
	}

	snap := domain.LearningSnapshot{
		SnapshotID:     ComputeSnapshotID(snapshotType, start, end, Version),
		SnapshotType:   snapshotType,
		Data:           data,
		OutcomeIDs:     outcomeIDs,
		SummaryIDs:     summaryIDs,
		CalibrationIDs: calibrationIDs,
	}
	return s.Snapshots.Put(ctx, snap)
}

func (s *Service) windowedOutcomes(ctx context.Context, start, end time.Time) (ids []string, services []string, err error) {
	page, err := s.Outcomes.List(ctx, allServicesKey, domain.ListFilters{Order: domain.OrderOldestFirst, Limit: 10000})
	if err != nil {
		return nil, nil, err
	}
	serviceSet := make(map[string]struct{})
	for _, o := range page.Items {
		if o.Timing.ClosedAt.Before(start) || !o.Timing.ClosedAt.Before(end) {
			continue
		}
		ids = append(ids, o.OutcomeID)
		serviceSet[o.Service] = struct{}{}
	}
	for svc := range serviceSet {
		services = append(services, svc)
	}
	sort.Strings(ids)
	sort.Strings(services)
	return ids, services, nil
}

func (s *Service) windowedSummaries(ctx context.Context, start, end time.Time) ([]string, error) {
	page, err := s.Summaries.List(ctx, allServicesKey, domain.ListFilters{Order: domain.OrderOldestFirst, Limit: 10000})
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, summary := range page.Items {
		if summary.StartDate.Before(start) || summary.EndDate.After(end) {
			continue
		}
		ids = append(ids, summary.SummaryID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Service) windowedCalibrations(ctx context.Context, start, end time.Time) ([]string, error) {
	page, err := s.Calibrations.List(ctx, globalPartitionKey, domain.ListFilters{Order: domain.OrderOldestFirst, Limit: 10000})
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, c := range page.Items {
		if c.StartDate.Before(start) || c.EndDate.After(end) {
			continue
		}
		ids = append(ids, c.CalibrationID)
	}
	sort.Strings(ids)
	return ids, nil
}
