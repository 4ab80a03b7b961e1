package domain

import "time"

// Decision is the promotion gate's binary outcome.
type Decision string

const (
	DecisionPromote Decision = "PROMOTE"
	DecisionReject  Decision = "REJECT"
)

// RejectionCode names the first failing condition of the promotion decision
// rule, carried 1:1 into pkg/shared/apierr's rejection codes.
type RejectionCode string

const (
	RejectionConfidenceTooLow       RejectionCode = "CONFIDENCE_TOO_LOW"
	RejectionInsufficientDetections RejectionCode = "INSUFFICIENT_DETECTIONS"
	RejectionActiveIncidentExists   RejectionCode = "ACTIVE_INCIDENT_EXISTS"
	RejectionEvidenceNotFound       RejectionCode = "EVIDENCE_NOT_FOUND"
	RejectionServiceNotAllowed      RejectionCode = "SERVICE_NOT_ALLOWED"
	RejectionGateInternalError      RejectionCode = "GATE_INTERNAL_ERROR"
)

// EvidenceWindow is the {start,end} window a PromotionResult was evaluated
// over, copied from the source evidence bundle.
type EvidenceWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PromotionResult is the promotion gate's deterministic decision, keyed by
// INCIDENT#{incidentId} when it promotes and CANDIDATE#{candidateId} when it
// rejects.
type PromotionResult struct {
	Decision        Decision       `json:"decision"`
	IncidentID      string         `json:"incidentId,omitempty"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
	RejectionCode   RejectionCode  `json:"rejectionCode,omitempty"`
	CandidateID     string         `json:"candidateId"`
	EvidenceID      string         `json:"evidenceId"`
	ConfidenceScore float64        `json:"confidenceScore"`
	ConfidenceBand  ConfidenceBand `json:"confidenceBand"`
	EvidenceWindow  EvidenceWindow `json:"evidenceWindow"`
	EvaluatedAt     time.Time      `json:"evaluatedAt"`
	GateVersion     string         `json:"gateVersion"`
}
