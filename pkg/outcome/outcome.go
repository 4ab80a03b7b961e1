// Package outcome implements the validation gate for recording an
// incident's closure as an immutable IncidentOutcome (spec.md §4.7).
package outcome

import (
	"context"
	"time"

	"github.com/opx/controlplane/internal/identity"
	"github.com/opx/controlplane/pkg/domain"
	"github.com/opx/controlplane/pkg/shared/apierr"
)

// timestampLayout is the millisecond-precision RFC 3339 form spec.md §3
// uses for every serialized timestamp.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// digestTimestampLayout is the ISO 8601 basic form (no ':' or '-') used for
// the closedAt digest input, so that part never contains the colon
// separator.
const digestTimestampLayout = "20060102T150405.000Z"

// ComputeOutcomeID implements spec.md §3's
// `outcomeId = digest(incidentId | closedAt)` (colon-separated per §4.1 —
// the "|" in that prose is bundling notation, not the reserved pipe
// separator, which spec.md reserves for incident identity alone).
func ComputeOutcomeID(incidentID string, closedAt time.Time) string {
	return identity.DigestColon(incidentID, closedAt.UTC().Format(digestTimestampLayout))
}

// Request is the caller-supplied (human-originated) half of an outcome
// record; everything else is derived from the incident.
type Request struct {
	Authority       domain.Authority
	Classification  domain.OutcomeClassification
	HumanAssessment domain.HumanAssessment
	RecordedAt      time.Time
	ValidatedAt     time.Time
}

// Validate runs the §4.7 validation gate against incident and req, and on
// success returns a fully-derived IncidentOutcome ready to persist.
// Timing is computed from the incident's own transition timestamps, never
// from caller input — a closing operator cannot misreport how long an
// incident took to resolve.
func Validate(ctx context.Context, incident domain.Incident, req Request) (domain.IncidentOutcome, error) {
	if incident.Status != domain.StatusClosed {
		return domain.IncidentOutcome{}, apierr.New(apierr.CodeValidationError, "incident must be CLOSED to record an outcome")
	}
	if !req.Authority.Satisfies(domain.AuthorityHumanOperator) {
		return domain.IncidentOutcome{}, apierr.New(apierr.CodeInsufficientAuthority, "outcome recording requires HUMAN_OPERATOR, ON_CALL_SRE, or EMERGENCY_OVERRIDE")
	}
	if req.ValidatedAt.Before(req.RecordedAt) {
		return domain.IncidentOutcome{}, apierr.New(apierr.CodeValidationError, "validatedAt must be >= recordedAt")
	}
	if req.Classification.TruePositive == req.Classification.FalsePositive {
		return domain.IncidentOutcome{}, apierr.New(apierr.CodeValidationError, "exactly one of truePositive/falsePositive must be set")
	}
	if incident.Timestamps.OpenedAt == nil || incident.Timestamps.ResolvedAt == nil || incident.Timestamps.ClosedAt == nil {
		return domain.IncidentOutcome{}, apierr.New(apierr.CodeValidationError, "incident is missing a lifecycle timestamp required to derive timing")
	}

	timing := domain.OutcomeTiming{
		DetectedAt: incident.Timestamps.CreatedAt,
		ResolvedAt: *incident.Timestamps.ResolvedAt,
		ClosedAt:   *incident.Timestamps.ClosedAt,
		TTD:        incident.Timestamps.OpenedAt.Sub(incident.Timestamps.CreatedAt),
		TTR:        incident.Timestamps.ResolvedAt.Sub(*incident.Timestamps.OpenedAt),
	}
	if timing.TTD < 0 || timing.TTR < 0 {
		return domain.IncidentOutcome{}, apierr.New(apierr.CodeValidationError, "derived ttd/ttr must be non-negative")
	}

	return domain.IncidentOutcome{
		OutcomeID:       ComputeOutcomeID(incident.IncidentID, timing.ClosedAt),
		IncidentID:      incident.IncidentID,
		Service:         incident.Service,
		RecordedAt:      req.RecordedAt,
		ValidatedAt:     req.ValidatedAt,
		RecordedBy:      req.Authority,
		Classification:  req.Classification,
		Timing:          timing,
		HumanAssessment: req.HumanAssessment,
		Version:         "outcome-v1.0.0",
	}, nil
}
