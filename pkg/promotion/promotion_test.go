package promotion

import (
	"context"
	"testing"
	"time"

	"github.com/opx/controlplane/pkg/domain"
)

func bundleWith(detections int, uniqueRules int) domain.EvidenceBundle {
	dets := make([]domain.Detection, detections)
	return domain.EvidenceBundle{
		EvidenceID:    "evidence-1",
		Service:       "checkout",
		Detections:    dets,
		WindowStart:   time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC),
		WindowEnd:     time.Date(2026, 7, 30, 10, 5, 0, 0, time.UTC),
		BundledAt:     time.Date(2026, 7, 30, 10, 5, 1, 0, time.UTC),
		SignalSummary: domain.SignalSummary{UniqueRules: uniqueRules},
	}
}

func TestEvaluate_RejectsConfidenceTooLow(t *testing.T) {
	gate := NewGate([]string{"checkout"}, nil)
	bundle := bundleWith(2, 1)
	assessment := domain.CandidateAssessment{ConfidenceScore: 0.55, ConfidenceBand: domain.BandHigh}

	result, err := gate.Evaluate(context.Background(), bundle, assessment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Decision != domain.DecisionReject {
		t.Fatalf("expected REJECT, got %s", result.Decision)
	}
	if result.RejectionCode != domain.RejectionConfidenceTooLow {
		t.Fatalf("expected CONFIDENCE_TOO_LOW, got %s", result.RejectionCode)
	}
}

func TestEvaluate_RejectsInsufficientDetections(t *testing.T) {
	gate := NewGate([]string{"checkout"}, nil)
	bundle := bundleWith(1, 1)
	assessment := domain.CandidateAssessment{ConfidenceScore: 0.7, ConfidenceBand: domain.BandHigh}

	result, err := gate.Evaluate(context.Background(), bundle, assessment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RejectionCode != domain.RejectionInsufficientDetections {
		t.Fatalf("expected INSUFFICIENT_DETECTIONS, got %s", result.RejectionCode)
	}
}

func TestEvaluate_PromotesOnValidInputs(t *testing.T) {
	gate := NewGate([]string{"checkout"}, func(ctx context.Context, incidentID string) (bool, error) {
		return false, nil
	})
	bundle := bundleWith(2, 1)
	assessment := domain.CandidateAssessment{ConfidenceScore: 0.7, ConfidenceBand: domain.BandHigh}

	result, err := gate.Evaluate(context.Background(), bundle, assessment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Decision != domain.DecisionPromote {
		t.Fatalf("expected PROMOTE, got %s: %s", result.Decision, result.RejectionCode)
	}
	want := ComputeIncidentID("checkout", "evidence-1")
	if result.IncidentID != want {
		t.Fatalf("expected incidentId=digest(service|evidenceId)=%s, got %s", want, result.IncidentID)
	}
}

func TestEvaluate_RejectsServiceNotAllowed(t *testing.T) {
	gate := NewGate([]string{"payments"}, nil)
	bundle := bundleWith(2, 1)
	assessment := domain.CandidateAssessment{ConfidenceScore: 0.7, ConfidenceBand: domain.BandHigh}

	result, _ := gate.Evaluate(context.Background(), bundle, assessment)
	if result.RejectionCode != domain.RejectionServiceNotAllowed {
		t.Fatalf("expected SERVICE_NOT_ALLOWED, got %s", result.RejectionCode)
	}
}

func TestEvaluate_RejectsActiveIncidentExists(t *testing.T) {
	gate := NewGate([]string{"checkout"}, func(ctx context.Context, incidentID string) (bool, error) {
		return true, nil
	})
	bundle := bundleWith(2, 1)
	assessment := domain.CandidateAssessment{ConfidenceScore: 0.7, ConfidenceBand: domain.BandHigh}

	result, _ := gate.Evaluate(context.Background(), bundle, assessment)
	if result.RejectionCode != domain.RejectionActiveIncidentExists {
		t.Fatalf("expected ACTIVE_INCIDENT_EXISTS, got %s", result.RejectionCode)
	}
}

func TestComputeIncidentID_IsEvidenceDerivedOnly(t *testing.T) {
	a := ComputeIncidentID("checkout", "evidence-1")
	b := ComputeIncidentID("checkout", "evidence-1")
	if a != b {
		t.Fatal("incidentId must be deterministic from service+evidenceId")
	}
	c := ComputeIncidentID("checkout", "evidence-2")
	if a == c {
		t.Fatal("different evidence must not collide")
	}
}
