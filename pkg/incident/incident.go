// Package incident implements the incident lifecycle state machine: create
// from a PROMOTE decision, and authority-gated status transitions with
// optimistic-concurrency re-read-then-validate semantics (spec.md §4.6).
package incident

import (
	"context"
	"time"

	"github.com/opx/controlplane/internal/identity"
	"github.com/opx/controlplane/internal/store"
	"github.com/opx/controlplane/pkg/domain"
	"github.com/opx/controlplane/pkg/shared/apierr"
)

// Clock returns the current wall-clock time. A field rather than a direct
// time.Now() call so tests can supply a fixed clock for transition-
// timestamp assertions.
type Clock func() time.Time

// transitionRule names the minimum authority and the metadata keys a
// transition requires (spec.md §4.6's transition rule table).
type transitionRule struct {
	minAuthority     domain.AuthorityType
	requiredMetadata []string
	requiresResolution bool
}

// transitionTable is keyed by (from, to); an absent entry is an invalid
// transition for every authority level.
var transitionTable = map[domain.IncidentStatus]map[domain.IncidentStatus]transitionRule{
	domain.StatusPending: {
		domain.StatusOpen: {minAuthority: domain.AuthorityHumanOperator},
	},
	domain.StatusOpen: {
		domain.StatusMitigating: {minAuthority: domain.AuthorityHumanOperator},
		domain.StatusResolved:   {minAuthority: domain.AuthorityOnCallSRE, requiredMetadata: []string{"reason"}, requiresResolution: true},
	},
	domain.StatusMitigating: {
		domain.StatusResolved: {minAuthority: domain.AuthorityOnCallSRE, requiredMetadata: []string{"reason"}, requiresResolution: true},
	},
	domain.StatusResolved: {
		domain.StatusClosed: {minAuthority: domain.AuthorityHumanOperator},
	},
}

// Service orchestrates incident creation and transitions against a store.
type Service struct {
	Incidents interface {
		store.Putter[domain.Incident]
		store.Getter[domain.Incident]
		store.IncidentUpdater[domain.Incident]
	}
	Events store.Putter[domain.IncidentEvent]
	Clock  Clock
}

// NewService builds a Service. clock defaults to time.Now when nil.
func NewService(
	incidents interface {
		store.Putter[domain.Incident]
		store.Getter[domain.Incident]
		store.IncidentUpdater[domain.Incident]
	},
	events store.Putter[domain.IncidentEvent],
	clock Clock,
) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{Incidents: incidents, Events: events, Clock: clock}
}

// Create persists a new incident from a PROMOTE decision. createdAt is
// always promotion.EvaluatedAt (spec.md §3 invariant (a)); a second Create
// for the same incidentId returns the existing record idempotently, per
// the Putter contract.
func (s *Service) Create(
	ctx context.Context,
	promotion domain.PromotionResult,
	bundle domain.EvidenceBundle,
	createdBy domain.Authority,
	title, description string,
) (domain.Incident, domain.CreateOutcome, error) {
	severities := make([]domain.NormalizedSeverity, 0, len(bundle.Detections))
	for _, d := range bundle.Detections {
		severities = append(severities, d.Severity)
	}
	severity := domain.NormalizedInfo
	if len(severities) > 0 {
		severity = domain.MaxSeverity(severities)
	}

	createdAt := promotion.EvaluatedAt
	incident := domain.Incident{
		IncidentID:      promotion.IncidentID,
		Service:         bundle.Service,
		Severity:        severity,
		Status:          domain.StatusPending,
		EvidenceID:      promotion.EvidenceID,
		CandidateID:     promotion.CandidateID,
		ConfidenceScore: promotion.ConfidenceScore,
		Timestamps: domain.IncidentTimestamps{
			CreatedAt:      createdAt,
			LastModifiedAt: createdAt,
		},
		Title:              title,
		Description:        description,
		CreatedBy:           createdBy,
		LastModifiedBy:      createdBy,
		IncidentVersion:     1,
		DetectionCount:      len(bundle.Detections),
		EvidenceGraphCount:  len(bundle.Detections),
	}

	stored, outcome, err := s.Incidents.Put(ctx, incident)
	if err != nil {
		return domain.Incident{}, "", err
	}
	if outcome == domain.Created {
		s.emitEvent(ctx, stored.IncidentID, domain.EventIncidentCreated, stored.Timestamps.CreatedAt, map[string]interface{}{
			"status": string(stored.Status),
		})
	}
	return stored, outcome, nil
}

// TransitionInput is the caller-supplied request to move an incident to a
// new status.
type TransitionInput struct {
	To         domain.IncidentStatus
	Authority  domain.Authority
	Metadata   map[string]interface{}
	Resolution *domain.Resolution
}

// Transition validates and applies a status change. On success the
// returned incident reflects the new state; on failure the stored record
// is left unchanged (spec.md §4.6's failure semantics) and the error is an
// *apierr.CodedError naming the violated rule.
func (s *Service) Transition(ctx context.Context, incidentID string, in TransitionInput) (domain.Incident, error) {
	current, found, err := s.Incidents.Get(ctx, incidentID)
	if err != nil {
		return domain.Incident{}, err
	}
	if !found {
		return domain.Incident{}, apierr.New(apierr.CodeNotFound, "incident not found: "+incidentID)
	}

	updated, err := s.Incidents.Update(ctx, incidentID, current.IncidentVersion, func(live domain.Incident) (domain.Incident, error) {
		return s.applyTransition(live, in)
	})
	if err != nil {
		if err == store.ErrConflict {
			return domain.Incident{}, apierr.New(apierr.CodeConflict, "incident was modified concurrently")
		}
		if err == store.ErrNotFound {
			return domain.Incident{}, apierr.New(apierr.CodeNotFound, "incident not found: "+incidentID)
		}
		return domain.Incident{}, err
	}

	s.emitEvent(ctx, updated.IncidentID, domain.EventStateTransitioned, updated.Timestamps.LastModifiedAt, map[string]interface{}{
		"from": string(current.Status),
		"to":   string(updated.Status),
	})
	return updated, nil
}

// applyTransition is the pure FSM step, run against the store's
// re-read-current record (spec.md §4.6 failure semantics: invalid
// transition / insufficient authority / missing metadata leave the record
// unchanged — returning an error here means Update persists nothing).
func (s *Service) applyTransition(current domain.Incident, in TransitionInput) (domain.Incident, error) {
	if current.Status == domain.StatusClosed {
		return domain.Incident{}, apierr.New(apierr.CodeInvalidTransition, "CLOSED is terminal")
	}

	byTo, known := transitionTable[current.Status]
	if !known {
		return domain.Incident{}, apierr.New(apierr.CodeInvalidTransition, "no transitions defined from "+string(current.Status))
	}
	rule, known := byTo[in.To]
	if !known {
		return domain.Incident{}, apierr.New(apierr.CodeInvalidTransition, string(current.Status)+" -> "+string(in.To)+" is not a valid transition")
	}
	if !in.Authority.Satisfies(rule.minAuthority) {
		return domain.Incident{}, apierr.New(apierr.CodeInsufficientAuthority, "transition requires at least "+rule.minAuthority.String())
	}
	for _, key := range rule.requiredMetadata {
		if _, ok := in.Metadata[key]; !ok {
			return domain.Incident{}, apierr.New(apierr.CodeMissingMetadata, "missing required metadata: "+key)
		}
	}
	if rule.requiresResolution && in.Resolution == nil {
		return domain.Incident{}, apierr.New(apierr.CodeMissingMetadata, "missing required resolution block")
	}
	if in.To == domain.StatusClosed && current.Resolution == nil {
		return domain.Incident{}, apierr.New(apierr.CodeMissingMetadata, "incident has no resolution recorded")
	}

	now := s.Clock()
	updated := current
	updated.Status = in.To
	updated.LastModifiedBy = in.Authority
	updated.Timestamps.LastModifiedAt = now
	updated.IncidentVersion = current.IncidentVersion + 1

	switch in.To {
	case domain.StatusOpen:
		updated.Timestamps.OpenedAt = &now
	case domain.StatusMitigating:
		updated.Timestamps.MitigatingAt = &now
	case domain.StatusResolved:
		updated.Timestamps.ResolvedAt = &now
		if current.Resolution == nil {
			updated.Resolution = in.Resolution
		}
	case domain.StatusClosed:
		updated.Timestamps.ClosedAt = &now
	}
	return updated, nil
}

// emitEvent appends an IncidentEvent. Best-effort: the operational store
// remains the source of truth, so an event-log write failure is swallowed
// rather than failing the transition that already committed.
func (s *Service) emitEvent(ctx context.Context, incidentID string, eventType domain.IncidentEventType, at time.Time, payload map[string]interface{}) {
	if s.Events == nil {
		return
	}
	// ISO 8601 basic form keeps ':' (the digest separator) out of the timestamp.
	eventID := identity.DigestColon(incidentID, string(eventType), at.UTC().Format("20060102T150405.999999999Z"))
	event := domain.IncidentEvent{
		EventID:    eventID,
		IncidentID: incidentID,
		EventType:  eventType,
		CreatedAt:  at,
		Payload:    payload,
	}
	_, _, _ = s.Events.Put(ctx, event)
}
