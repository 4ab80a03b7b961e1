package evidence

import (
	"testing"
	"time"

	"github.com/opx/controlplane/pkg/domain"
)

func TestBundle_DeterministicIdentity(t *testing.T) {
	b := New()
	detections := []domain.Detection{
		{SignalID: "sig-2", RuleID: "rule-a", Severity: domain.NormalizedHigh, OccurredAt: time.Date(2026, 7, 30, 10, 1, 0, 0, time.UTC)},
		{SignalID: "sig-1", RuleID: "rule-b", Severity: domain.NormalizedCritical, OccurredAt: time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)},
	}
	windowStart := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2026, 7, 30, 10, 5, 0, 0, time.UTC)
	bundledAt := time.Date(2026, 7, 30, 10, 5, 1, 0, time.UTC)

	a := b.Bundle("checkout", detections, windowStart, windowEnd, bundledAt)
	c := b.Bundle("checkout", detections, windowStart, windowEnd, bundledAt)
	if a.EvidenceID != c.EvidenceID {
		t.Fatalf("bundling the same inputs must produce the same evidenceId: %s != %s", a.EvidenceID, c.EvidenceID)
	}
	if a.SignalSummary.SignalCount != 2 {
		t.Fatalf("expected signalCount=2, got %d", a.SignalSummary.SignalCount)
	}
	if a.SignalSummary.UniqueRules != 2 {
		t.Fatalf("expected uniqueRules=2, got %d", a.SignalSummary.UniqueRules)
	}
	if a.SignalSummary.TimeSpread != time.Minute {
		t.Fatalf("expected timeSpread=1m, got %s", a.SignalSummary.TimeSpread)
	}
	if a.BundledAt != bundledAt {
		t.Fatal("bundledAt must be exactly the caller-supplied clock reading")
	}
}

func TestBundle_DifferentServiceDifferentID(t *testing.T) {
	b := New()
	detections := []domain.Detection{{SignalID: "sig-1", RuleID: "rule-a", Severity: domain.NormalizedHigh, OccurredAt: time.Now()}}
	windowStart := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2026, 7, 30, 10, 5, 0, 0, time.UTC)
	bundledAt := windowEnd

	a := b.Bundle("checkout", detections, windowStart, windowEnd, bundledAt)
	other := b.Bundle("payments", detections, windowStart, windowEnd, bundledAt)
	if a.EvidenceID == other.EvidenceID {
		t.Fatal("different services must not collide")
	}
}

func TestBundle_EmptyDetectionsProducesZeroSummary(t *testing.T) {
	b := New()
	windowStart := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2026, 7, 30, 10, 5, 0, 0, time.UTC)

	bundle := b.Bundle("checkout", nil, windowStart, windowEnd, windowEnd)
	if bundle.SignalSummary.SignalCount != 0 {
		t.Fatalf("expected signalCount=0, got %d", bundle.SignalSummary.SignalCount)
	}
}
