package calibration

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/opx/controlplane/internal/store/memory"
	"github.com/opx/controlplane/pkg/domain"
)

func seedIncidentAndOutcome(t *testing.T, incidents *memory.IncidentStore, outcomes *memory.Store[domain.IncidentOutcome, domain.ListFilters], id string, score float64, closedAt time.Time, truePositive bool) {
	t.Helper()
	incident := domain.Incident{
		IncidentID:      id,
		Service:         "checkout",
		ConfidenceScore: score,
		IncidentVersion: 1,
	}
	if _, _, err := incidents.Put(context.Background(), incident); err != nil {
		t.Fatal(err)
	}
	outcome := domain.IncidentOutcome{
		OutcomeID:  id + "-outcome",
		IncidentID: id,
		Service:    "checkout",
		RecordedAt: closedAt,
		Classification: domain.OutcomeClassification{
			TruePositive:  truePositive,
			FalsePositive: !truePositive,
		},
		Timing: domain.OutcomeTiming{ClosedAt: closedAt},
	}
	if _, _, err := outcomes.Put(context.Background(), outcome); err != nil {
		t.Fatal(err)
	}
}

func TestCalibrate_ComputesAccuracyAndDriftPerBand(t *testing.T) {
	incidents := memory.NewIncidentStore()
	outcomes := memory.NewOutcomeStore()
	calibrations := memory.NewCalibrationStore()
	cal := NewCalibrator(outcomes, incidents, calibrations)

	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	// HIGH band (score 0.7, midpoint 0.7): 25 outcomes, all true positive
	// -> accuracy 1.0, drift +0.3, sufficient sample.
	for i := 0; i < 25; i++ {
		seedIncidentAndOutcome(t, incidents, outcomes, "high-"+strconv.Itoa(i), 0.7, start.Add(time.Duration(i)*time.Hour), true)
	}

	result, outcome, err := cal.Calibrate(context.Background(), start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != domain.Created {
		t.Fatalf("expected Created, got %s", outcome)
	}

	var high domain.BandCalibration
	for _, bc := range result.BandCalibrations {
		if bc.Band == domain.BandHigh {
			high = bc
		}
	}
	if !high.SampleSizeSufficient {
		t.Fatal("expected HIGH band to have a sufficient sample")
	}
	if high.TotalIncidents != 25 || high.TruePositives != 25 {
		t.Fatalf("unexpected HIGH band tally: %+v", high)
	}
	if high.Accuracy != 1.0 {
		t.Fatalf("expected accuracy 1.0, got %v", high.Accuracy)
	}
}

func TestCalibrate_ExcludesInsufficientBandsFromDriftAggregate(t *testing.T) {
	incidents := memory.NewIncidentStore()
	outcomes := memory.NewOutcomeStore()
	calibrations := memory.NewCalibrationStore()
	cal := NewCalibrator(outcomes, incidents, calibrations)

	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	// Only 3 outcomes in LOW band: insufficient sample.
	for i := 0; i < 3; i++ {
		seedIncidentAndOutcome(t, incidents, outcomes, "low-"+strconv.Itoa(i), 0.1, start.Add(time.Duration(i)*time.Hour), false)
	}

	result, _, err := cal.Calibrate(context.Background(), start, end)
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, band := range result.DriftAnalysis.InsufficientData {
		if band == domain.BandLow {
			found = true
		}
	}
	if !found {
		t.Fatal("expected LOW band to be listed as insufficient data")
	}
	if result.DriftAnalysis.AverageDrift != 0 {
		t.Fatalf("expected zero aggregate drift when every band is insufficient, got %v", result.DriftAnalysis.AverageDrift)
	}
}

func TestCalibrate_RecommendationsAreAlwaysNonActionable(t *testing.T) {
	incidents := memory.NewIncidentStore()
	outcomes := memory.NewOutcomeStore()
	calibrations := memory.NewCalibrationStore()
	cal := NewCalibrator(outcomes, incidents, calibrations)

	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	result, _, err := cal.Calibrate(context.Background(), start, end)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Recommendations) != 4 {
		t.Fatalf("expected one recommendation per band, got %d", len(result.Recommendations))
	}
	for _, rec := range result.Recommendations {
		if rec.Actionable {
			t.Fatalf("recommendation for band %s must never be actionable", rec.Band)
		}
	}
}

func TestComputeCalibrationID_IsWindowDeterministic(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	a := ComputeCalibrationID(start, end, Version)
	b := ComputeCalibrationID(start, end, Version)
	if a != b {
		t.Fatal("calibrationId must be stable for the same window")
	}
	other := ComputeCalibrationID(start, end.Add(time.Hour), Version)
	if a == other {
		t.Fatal("changing the window must change calibrationId")
	}
}
