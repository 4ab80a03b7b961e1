package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/opx/controlplane/internal/store/memory"
	"github.com/opx/controlplane/pkg/domain"
)

func newTestService() (*Service, *memory.Store[domain.IncidentOutcome, domain.ListFilters], *memory.Store[domain.ResolutionSummary, domain.ListFilters], *memory.Store[domain.ConfidenceCalibration, domain.ListFilters]) {
	outcomes := memory.NewOutcomeStore()
	summaries := memory.NewSummaryStore()
	calibrations := memory.NewCalibrationStore()
	snapshots := memory.NewSnapshotStore()
	return NewService(outcomes, summaries, calibrations, snapshots), outcomes, summaries, calibrations
}

func TestSnapshot_ProjectsIDsWithinWindowOnly(t *testing.T) {
	svc, outcomes, summaries, calibrations := newTestService()
	ctx := context.Background()

	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	inWindow := domain.IncidentOutcome{
		OutcomeID: "in-window",
		Service:   "checkout",
		Timing:    domain.OutcomeTiming{ClosedAt: start.Add(time.Hour)},
	}
	outOfWindow := domain.IncidentOutcome{
		OutcomeID: "out-of-window",
		Service:   "checkout",
		Timing:    domain.OutcomeTiming{ClosedAt: end.Add(time.Hour)},
	}
	if _, _, err := outcomes.Put(ctx, inWindow); err != nil {
		t.Fatal(err)
	}
	if _, _, err := outcomes.Put(ctx, outOfWindow); err != nil {
		t.Fatal(err)
	}

	summaryInWindow := domain.ResolutionSummary{
		SummaryID: "summary-in-window",
		Service:   "checkout",
		StartDate: start,
		EndDate:   end,
	}
	if _, _, err := summaries.Put(ctx, summaryInWindow); err != nil {
		t.Fatal(err)
	}

	calibrationOutOfWindow := domain.ConfidenceCalibration{
		CalibrationID: "calibration-out-of-window",
		StartDate:     end,
		EndDate:       end.Add(30 * 24 * time.Hour),
	}
	if _, _, err := calibrations.Put(ctx, calibrationOutOfWindow); err != nil {
		t.Fatal(err)
	}

	snap, outcome, err := svc.Snapshot(ctx, domain.SnapshotMonthly, start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != domain.Created {
		t.Fatalf("expected Created, got %s", outcome)
	}
	if len(snap.OutcomeIDs) != 1 || snap.OutcomeIDs[0] != "in-window" {
		t.Fatalf("expected only in-window outcome, got %v", snap.OutcomeIDs)
	}
	if len(snap.SummaryIDs) != 1 || snap.SummaryIDs[0] != "summary-in-window" {
		t.Fatalf("expected only in-window summary, got %v", snap.SummaryIDs)
	}
	if len(snap.CalibrationIDs) != 0 {
		t.Fatalf("expected no calibrations in window, got %v", snap.CalibrationIDs)
	}
	if snap.Data.TotalOutcomes != 1 || snap.Data.TotalSummaries != 1 || snap.Data.TotalCalibrations != 0 {
		t.Fatalf("unexpected aggregate: %+v", snap.Data)
	}
	if len(snap.Data.Services) != 1 || snap.Data.Services[0] != "checkout" {
		t.Fatalf("expected services=[checkout], got %v", snap.Data.Services)
	}
}

func TestSnapshot_IsIdempotentBySnapshotID(t *testing.T) {
	svc, outcomes, _, _ := newTestService()
	ctx := context.Background()

	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	if _, _, err := outcomes.Put(ctx, domain.IncidentOutcome{
		OutcomeID: "o1",
		Service:   "checkout",
		Timing:    domain.OutcomeTiming{ClosedAt: start.Add(time.Hour)},
	}); err != nil {
		t.Fatal(err)
	}

	first, outcome, err := svc.Snapshot(ctx, domain.SnapshotMonthly, start, end)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != domain.Created {
		t.Fatalf("expected Created, got %s", outcome)
	}

	second, outcome, err := svc.Snapshot(ctx, domain.SnapshotMonthly, start, end)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != domain.AlreadyExists {
		t.Fatalf("expected AlreadyExists on replay, got %s", outcome)
	}
	if first.SnapshotID != second.SnapshotID {
		t.Fatal("snapshotId must be stable for the same (type, window)")
	}
}

func TestComputeSnapshotID_SensitiveToTypeAndWindow(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	base := ComputeSnapshotID(domain.SnapshotMonthly, start, end, Version)
	if ComputeSnapshotID(domain.SnapshotWeekly, start, end, Version) == base {
		t.Fatal("changing snapshotType must change snapshotId")
	}
	if ComputeSnapshotID(domain.SnapshotMonthly, start, end.Add(time.Hour), Version) == base {
		t.Fatal("changing the window must change snapshotId")
	}
	if ComputeSnapshotID(domain.SnapshotMonthly, start, end, Version) != base {
		t.Fatal("snapshotId must be stable for identical inputs")
	}
}
