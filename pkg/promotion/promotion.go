// Package promotion implements the deterministic gate from evidence +
// confidence to a PROMOTE/REJECT PromotionResult (spec.md §4.5).
package promotion

import (
	"context"

	"github.com/opx/controlplane/internal/identity"
	"github.com/opx/controlplane/pkg/domain"
)

// GateVersion is the fixed decision-rule version stamped onto every result.
const GateVersion = "promotion-gate-v1.0.0"

// minConfidenceScore and minDetections are the gate's fixed thresholds,
// spec.md §4.5's decision rule v1.0.0.
const (
	minConfidenceScore = 0.6
	minDetections      = 2
	minUniqueRules     = 1
)

// ActiveIncidentLookup reports whether an incident with the given id
// already exists and is not in a terminal state. Backed by
// internal/store/postgres.IncidentStore in production.
type ActiveIncidentLookup func(ctx context.Context, incidentID string) (bool, error)

// Gate evaluates evidence + confidence into a PromotionResult.
type Gate struct {
	Allowlist    map[string]bool
	ActiveLookup ActiveIncidentLookup
}

// NewGate builds a Gate over a fixed service allowlist and an active-
// incident lookup.
func NewGate(allowlist []string, activeLookup ActiveIncidentLookup) *Gate {
	set := make(map[string]bool, len(allowlist))
	for _, s := range allowlist {
		set[s] = true
	}
	return &Gate{Allowlist: set, ActiveLookup: activeLookup}
}

// computeCandidateID derives a stable id for a REJECT result's store key
// (CANDIDATE#{candidateId}). Spec.md doesn't fix its formula (only
// incidentId's); this derives it from the same evidence + model version
// the assessment was computed from, so the CANDIDATE key reflects the
// specific assessment being rejected rather than the evidence instance.
func computeCandidateID(evidenceID, modelVersion string) string {
	return identity.DigestColon(evidenceID, modelVersion)
}

// ComputeIncidentID implements spec.md §3's
// `incidentId = digest(service | evidenceId)` — evidence-derived only,
// never time-based, so replaying the same evidence always targets the
// same incident key.
func ComputeIncidentID(service, evidenceID string) string {
	return identity.DigestPipe(service, evidenceID)
}

// Evaluate runs the v1.0.0 decision rule against bundle + assessment,
// returning the first failing condition as a rejectionCode when the gate
// doesn't promote. evaluatedAt is always bundle.BundledAt.
func (g *Gate) Evaluate(ctx context.Context, bundle domain.EvidenceBundle, assessment domain.CandidateAssessment) (domain.PromotionResult, error) {
	candidateID := computeCandidateID(bundle.EvidenceID, assessment.ModelVersion)
	incidentID := ComputeIncidentID(bundle.Service, bundle.EvidenceID)

	base := domain.PromotionResult{
		CandidateID:     candidateID,
		EvidenceID:      bundle.EvidenceID,
		ConfidenceScore: assessment.ConfidenceScore,
		ConfidenceBand:  assessment.ConfidenceBand,
		EvidenceWindow:  domain.EvidenceWindow{Start: bundle.WindowStart, End: bundle.WindowEnd},
		EvaluatedAt:     bundle.BundledAt,
		GateVersion:     GateVersion,
	}

	if code, reason, ok := g.firstFailingCondition(ctx, bundle, assessment, incidentID); !ok {
		base.Decision = domain.DecisionReject
		base.RejectionCode = code
		base.RejectionReason = reason
		return base, nil
	}

	base.Decision = domain.DecisionPromote
	base.IncidentID = incidentID
	return base, nil
}

// firstFailingCondition checks the decision rule's six conditions in the
// fixed order spec.md §4.5 lists them, so two gates evaluating the same
// inputs always report the same rejectionCode.
func (g *Gate) firstFailingCondition(
	ctx context.Context,
	bundle domain.EvidenceBundle,
	assessment domain.CandidateAssessment,
	incidentID string,
) (domain.RejectionCode, string, bool) {
	if !assessment.ConfidenceBand.AtLeast(domain.BandHigh) {
		return domain.RejectionConfidenceTooLow, "confidence band below HIGH", false
	}
	if assessment.ConfidenceScore < minConfidenceScore {
		return domain.RejectionConfidenceTooLow, "confidence score below 0.6", false
	}
	if len(bundle.Detections) < minDetections {
		return domain.RejectionInsufficientDetections, "fewer than 2 detections in evidence", false
	}
	if bundle.SignalSummary.UniqueRules < minUniqueRules {
		return domain.RejectionInsufficientDetections, "no distinct detection rule represented", false
	}
	if !g.Allowlist[bundle.Service] {
		return domain.RejectionServiceNotAllowed, "service is not on the promotion allowlist", false
	}
	if g.ActiveLookup != nil {
		active, err := g.ActiveLookup(ctx, incidentID)
		if err != nil {
			return domain.RejectionGateInternalError, "active incident lookup failed", false
		}
		if active {
			return domain.RejectionActiveIncidentExists, "an active incident already exists for this evidence", false
		}
	}
	return "", "", true
}
