package patterns

import (
	"context"
	"testing"
	"time"

	"github.com/opx/controlplane/internal/store/memory"
	"github.com/opx/controlplane/pkg/domain"
)

func outcome(service string, closedAt time.Time, truePositive bool, rootCause string, ttd, ttr time.Duration) domain.IncidentOutcome {
	return domain.IncidentOutcome{
		OutcomeID:  service + "-" + closedAt.String(),
		IncidentID: "incident-" + service,
		Service:    service,
		RecordedAt: closedAt,
		Classification: domain.OutcomeClassification{
			TruePositive:   truePositive,
			FalsePositive:  !truePositive,
			RootCause:      rootCause,
			ResolutionType: domain.ResolutionFixed,
		},
		Timing: domain.OutcomeTiming{
			ClosedAt: closedAt,
			TTD:      ttd,
			TTR:      ttr,
		},
	}
}

func TestExtract_AggregatesMetricsWithinWindow(t *testing.T) {
	outcomes := memory.NewOutcomeStore()
	summaries := memory.NewSummaryStore()
	extractor := NewExtractor(outcomes, summaries)

	start := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	inWindow1 := outcome("checkout", start.Add(time.Hour), true, "bad deploy", 5*time.Minute, 30*time.Minute)
	inWindow2 := outcome("checkout", start.Add(2*time.Hour), false, "noisy alert", 2*time.Minute, 10*time.Minute)
	outOfWindow := outcome("checkout", end.Add(time.Hour), true, "bad deploy", time.Minute, time.Minute)

	for _, o := range []domain.IncidentOutcome{inWindow1, inWindow2, outOfWindow} {
		if _, _, err := outcomes.Put(context.Background(), o); err != nil {
			t.Fatal(err)
		}
	}

	summary, createOutcome, err := extractor.Extract(context.Background(), "checkout", start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if createOutcome != domain.Created {
		t.Fatalf("expected Created, got %s", createOutcome)
	}
	if summary.Metrics.TotalIncidents != 2 {
		t.Fatalf("expected 2 incidents within window, got %d", summary.Metrics.TotalIncidents)
	}
	if summary.Metrics.TruePositives != 1 || summary.Metrics.FalsePositives != 1 {
		t.Fatalf("unexpected TP/FP split: %+v", summary.Metrics)
	}
}

func TestExtract_IsIdempotentBySummaryID(t *testing.T) {
	outcomes := memory.NewOutcomeStore()
	summaries := memory.NewSummaryStore()
	extractor := NewExtractor(outcomes, summaries)

	start := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	first, outcome1, err := extractor.Extract(context.Background(), "checkout", start, end)
	if err != nil {
		t.Fatal(err)
	}
	second, outcome2, err := extractor.Extract(context.Background(), "checkout", start, end)
	if err != nil {
		t.Fatal(err)
	}
	if outcome1 != domain.Created || outcome2 != domain.AlreadyExists {
		t.Fatalf("expected Created then AlreadyExists, got %s then %s", outcome1, outcome2)
	}
	if first.SummaryID != second.SummaryID {
		t.Fatal("summaryId must be stable for the same (service, window)")
	}
}

func TestExtract_FlagsHighFalsePositiveRate(t *testing.T) {
	outcomes := memory.NewOutcomeStore()
	summaries := memory.NewSummaryStore()
	extractor := NewExtractor(outcomes, summaries)

	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	// 2 of 3 are false positives: 67% > 30% threshold.
	for i, tp := range []bool{true, false, false} {
		o := outcome("flaky-service", start.Add(time.Duration(i)*time.Hour), tp, "x", time.Minute, time.Minute)
		if _, _, err := outcomes.Put(context.Background(), o); err != nil {
			t.Fatal(err)
		}
	}

	summary, _, err := extractor.Extract(context.Background(), "flaky-service", start, end)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Patterns.DetectionWarnings) != 1 || summary.Patterns.DetectionWarnings[0] != "flaky-service" {
		t.Fatalf("expected flaky-service to be flagged, got %v", summary.Patterns.DetectionWarnings)
	}
}

func TestRankByCount_TiesBreakLexicographically(t *testing.T) {
	ranked := rankByCount(map[string]int{"zebra": 2, "apple": 2, "mango": 5}, topN)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 values, got %d", len(ranked))
	}
	if ranked[0].Value != "mango" {
		t.Fatalf("expected highest count first, got %s", ranked[0].Value)
	}
	if ranked[1].Value != "apple" || ranked[2].Value != "zebra" {
		t.Fatalf("expected tie broken lexicographically, got %v", ranked)
	}
}

func TestExtract_AllServicesRollup(t *testing.T) {
	outcomes := memory.NewOutcomeStore()
	summaries := memory.NewSummaryStore()
	extractor := NewExtractor(outcomes, summaries)

	start := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	a := outcome("checkout", start.Add(time.Hour), true, "x", time.Minute, time.Minute)
	b := outcome("payments", start.Add(time.Hour), true, "y", time.Minute, time.Minute)
	for _, o := range []domain.IncidentOutcome{a, b} {
		if _, _, err := outcomes.Put(context.Background(), o); err != nil {
			t.Fatal(err)
		}
	}

	summary, _, err := extractor.Extract(context.Background(), "", start, end)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Metrics.TotalIncidents != 2 {
		t.Fatalf("expected the ALL rollup to cover both services, got %d", summary.Metrics.TotalIncidents)
	}
}
