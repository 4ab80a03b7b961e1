package incident

import (
	"context"
	"testing"
	"time"

	"github.com/opx/controlplane/internal/store/memory"
	"github.com/opx/controlplane/pkg/domain"
	"github.com/opx/controlplane/pkg/shared/apierr"
)

// eventFilter is a minimal memory.IndexFilter for the event store; incident
// events aren't listed by this test suite, only appended.
type eventFilter struct {
	domain.ListFilters
}

func (f eventFilter) Base() domain.ListFilters { return f.ListFilters }

func newTestService(now time.Time) (*Service, *memory.IncidentStore) {
	incidents := memory.NewIncidentStore()
	events := memory.New(
		func(e domain.IncidentEvent) string { return e.EventID },
		func(e domain.IncidentEvent) time.Time { return e.CreatedAt },
		func(e domain.IncidentEvent, indexKey string, f eventFilter) bool { return true },
	)
	svc := NewService(incidents, events, func() time.Time { return now })
	return svc, incidents
}

func promotionResult(service, evidenceID string, evaluatedAt time.Time) domain.PromotionResult {
	return domain.PromotionResult{
		Decision:    domain.DecisionPromote,
		IncidentID:  "incident-" + evidenceID,
		EvidenceID:  evidenceID,
		CandidateID: "candidate-" + evidenceID,
		EvaluatedAt: evaluatedAt,
	}
}

func TestCreate_CreatedAtEqualsPromotionEvaluatedAt(t *testing.T) {
	evaluatedAt := time.Date(2026, 7, 30, 10, 5, 1, 0, time.UTC)
	svc, _ := newTestService(evaluatedAt)

	promotion := promotionResult("checkout", "evidence-1", evaluatedAt)
	bundle := domain.EvidenceBundle{Service: "checkout", Detections: []domain.Detection{{Severity: domain.NormalizedHigh}}}

	inc, outcome, err := svc.Create(context.Background(), promotion, bundle, domain.SystemAuthority, "t", "d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != domain.Created {
		t.Fatalf("expected Created, got %s", outcome)
	}
	if !inc.Timestamps.CreatedAt.Equal(evaluatedAt) {
		t.Fatalf("createdAt must equal promotion.evaluatedAt: %v != %v", inc.Timestamps.CreatedAt, evaluatedAt)
	}
	if inc.Severity != domain.NormalizedHigh {
		t.Fatalf("expected severity=max(detections)=HIGH, got %s", inc.Severity)
	}
	if inc.Status != domain.StatusPending {
		t.Fatalf("expected initial status PENDING, got %s", inc.Status)
	}
}

func TestCreate_IsIdempotent(t *testing.T) {
	evaluatedAt := time.Now()
	svc, _ := newTestService(evaluatedAt)
	promotion := promotionResult("checkout", "evidence-1", evaluatedAt)
	bundle := domain.EvidenceBundle{Service: "checkout"}

	first, outcome1, err := svc.Create(context.Background(), promotion, bundle, domain.SystemAuthority, "t", "d")
	if err != nil {
		t.Fatal(err)
	}
	second, outcome2, err := svc.Create(context.Background(), promotion, bundle, domain.SystemAuthority, "t", "d")
	if err != nil {
		t.Fatal(err)
	}
	if outcome1 != domain.Created || outcome2 != domain.AlreadyExists {
		t.Fatalf("expected Created then AlreadyExists, got %s then %s", outcome1, outcome2)
	}
	if first.IncidentID != second.IncidentID {
		t.Fatal("idempotent create must return the same record")
	}
}

func TestTransition_PendingToOpenRequiresHumanOperator(t *testing.T) {
	now := time.Now()
	svc, _ := newTestService(now)
	promotion := promotionResult("checkout", "evidence-1", now)
	inc, _, _ := svc.Create(context.Background(), promotion, domain.EvidenceBundle{Service: "checkout"}, domain.SystemAuthority, "t", "d")

	_, err := svc.Transition(context.Background(), inc.IncidentID, TransitionInput{
		To:        domain.StatusOpen,
		Authority: domain.Authority{Type: domain.AuthorityAutoEngine, Principal: "bot"},
	})
	if err == nil {
		t.Fatal("expected INSUFFICIENT_AUTHORITY error")
	}
	coded := apierr.AsCoded(err)
	if coded.Code != apierr.CodeInsufficientAuthority {
		t.Fatalf("expected INSUFFICIENT_AUTHORITY, got %s", coded.Code)
	}

	updated, err := svc.Transition(context.Background(), inc.IncidentID, TransitionInput{
		To:        domain.StatusOpen,
		Authority: domain.Authority{Type: domain.AuthorityHumanOperator, Principal: "alice"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.StatusOpen {
		t.Fatalf("expected OPEN, got %s", updated.Status)
	}
	if updated.Timestamps.OpenedAt == nil {
		t.Fatal("expected openedAt to be set")
	}
	if updated.IncidentVersion != inc.IncidentVersion+1 {
		t.Fatal("expected incidentVersion to increment")
	}
}

func TestTransition_RejectsInvalidTransition(t *testing.T) {
	now := time.Now()
	svc, _ := newTestService(now)
	promotion := promotionResult("checkout", "evidence-1", now)
	inc, _, _ := svc.Create(context.Background(), promotion, domain.EvidenceBundle{Service: "checkout"}, domain.SystemAuthority, "t", "d")

	_, err := svc.Transition(context.Background(), inc.IncidentID, TransitionInput{
		To:        domain.StatusResolved,
		Authority: domain.Authority{Type: domain.AuthorityEmergencyOverride, Principal: "sre"},
	})
	coded := apierr.AsCoded(err)
	if coded.Code != apierr.CodeInvalidTransition {
		t.Fatalf("expected INVALID_TRANSITION for PENDING->RESOLVED, got %s", coded.Code)
	}
}

func TestTransition_ResolvedRequiresReasonAndResolutionBlock(t *testing.T) {
	now := time.Now()
	svc, _ := newTestService(now)
	promotion := promotionResult("checkout", "evidence-1", now)
	inc, _, _ := svc.Create(context.Background(), promotion, domain.EvidenceBundle{Service: "checkout"}, domain.SystemAuthority, "t", "d")

	human := domain.Authority{Type: domain.AuthorityHumanOperator, Principal: "alice"}
	sre := domain.Authority{Type: domain.AuthorityOnCallSRE, Principal: "bob"}

	opened, err := svc.Transition(context.Background(), inc.IncidentID, TransitionInput{To: domain.StatusOpen, Authority: human})
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.Transition(context.Background(), opened.IncidentID, TransitionInput{To: domain.StatusResolved, Authority: sre})
	coded := apierr.AsCoded(err)
	if coded.Code != apierr.CodeMissingMetadata {
		t.Fatalf("expected MISSING_METADATA without reason/resolution, got %s", coded.Code)
	}

	resolved, err := svc.Transition(context.Background(), opened.IncidentID, TransitionInput{
		To:        domain.StatusResolved,
		Authority: sre,
		Metadata:  map[string]interface{}{"reason": "fixed the root cause"},
		Resolution: &domain.Resolution{
			Summary:    "patched",
			Type:       domain.ResolutionFixed,
			ResolvedBy: sre,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Resolution == nil || resolved.Resolution.Type != domain.ResolutionFixed {
		t.Fatal("expected resolution to be recorded")
	}

	// With a resolution recorded, RESOLVED -> CLOSED succeeds.
	_, err = svc.Transition(context.Background(), resolved.IncidentID, TransitionInput{
		To:        domain.StatusClosed,
		Authority: human,
	})
	if err != nil {
		t.Fatalf("unexpected error closing: %v", err)
	}
}

func TestTransition_ClosedIsTerminal(t *testing.T) {
	now := time.Now()
	svc, _ := newTestService(now)
	promotion := promotionResult("checkout", "evidence-1", now)
	inc, _, _ := svc.Create(context.Background(), promotion, domain.EvidenceBundle{Service: "checkout"}, domain.SystemAuthority, "t", "d")

	human := domain.Authority{Type: domain.AuthorityHumanOperator, Principal: "alice"}
	sre := domain.Authority{Type: domain.AuthorityOnCallSRE, Principal: "bob"}

	opened, _ := svc.Transition(context.Background(), inc.IncidentID, TransitionInput{To: domain.StatusOpen, Authority: human})
	resolved, _ := svc.Transition(context.Background(), opened.IncidentID, TransitionInput{
		To: domain.StatusResolved, Authority: sre,
		Metadata:   map[string]interface{}{"reason": "r"},
		Resolution: &domain.Resolution{Summary: "s", Type: domain.ResolutionFixed, ResolvedBy: sre},
	})
	closed, _ := svc.Transition(context.Background(), resolved.IncidentID, TransitionInput{To: domain.StatusClosed, Authority: human})

	_, err := svc.Transition(context.Background(), closed.IncidentID, TransitionInput{To: domain.StatusOpen, Authority: human})
	coded := apierr.AsCoded(err)
	if coded.Code != apierr.CodeInvalidTransition {
		t.Fatalf("expected CLOSED to be terminal, got %s", coded.Code)
	}
}

func TestTransition_NotFoundIncident(t *testing.T) {
	svc, _ := newTestService(time.Now())
	_, err := svc.Transition(context.Background(), "missing", TransitionInput{
		To:        domain.StatusOpen,
		Authority: domain.Authority{Type: domain.AuthorityHumanOperator},
	})
	coded := apierr.AsCoded(err)
	if coded.Code != apierr.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", coded.Code)
	}
}
