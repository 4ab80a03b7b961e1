package domain

import "time"

// IncidentStatus is a state in the incident lifecycle FSM.
type IncidentStatus string

const (
	StatusPending    IncidentStatus = "PENDING"
	StatusOpen       IncidentStatus = "OPEN"
	StatusMitigating IncidentStatus = "MITIGATING"
	StatusResolved   IncidentStatus = "RESOLVED"
	StatusClosed     IncidentStatus = "CLOSED"
)

// ResolutionType classifies how an incident was resolved.
type ResolutionType string

const (
	ResolutionFixed        ResolutionType = "FIXED"
	ResolutionFalsePositive ResolutionType = "FALSE_POSITIVE"
	ResolutionDuplicate    ResolutionType = "DUPLICATE"
	ResolutionWontFix      ResolutionType = "WONT_FIX"
)

// Resolution is set exactly once, when an incident enters RESOLVED, and is
// thereafter immutable.
type Resolution struct {
	Summary    string         `json:"summary"`
	Type       ResolutionType `json:"type"`
	ResolvedBy Authority      `json:"resolvedBy"`
}

// IncidentTimestamps records when an incident entered each state it has
// passed through. Only CreatedAt and LastModifiedAt are always set.
type IncidentTimestamps struct {
	CreatedAt      time.Time  `json:"createdAt"`
	OpenedAt       *time.Time `json:"openedAt,omitempty"`
	MitigatingAt   *time.Time `json:"mitigatingAt,omitempty"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
	ClosedAt       *time.Time `json:"closedAt,omitempty"`
	LastModifiedAt time.Time  `json:"lastModifiedAt"`
}

// Incident is the record of an elevated candidate across its lifecycle.
type Incident struct {
	IncidentID        string             `json:"incidentId"`
	Service           string             `json:"service"`
	Severity          NormalizedSeverity `json:"severity"`
	Status            IncidentStatus     `json:"status"`
	EvidenceID        string             `json:"evidenceId"`
	CandidateID       string             `json:"candidateId"`
	ConfidenceScore   float64            `json:"confidenceScore"`
	Timestamps        IncidentTimestamps `json:"timestamps"`
	Resolution        *Resolution        `json:"resolution,omitempty"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Tags              []string           `json:"tags,omitempty"`
	CreatedBy         Authority          `json:"createdBy"`
	LastModifiedBy    Authority          `json:"lastModifiedBy"`
	IncidentVersion   int                `json:"incidentVersion"`
	BlastRadiusScope  string             `json:"blastRadiusScope,omitempty"`
	DetectionCount    int                `json:"detectionCount"`
	EvidenceGraphCount int               `json:"evidenceGraphCount"`
}

// IncidentEventType names the two kinds of append-only log entries.
type IncidentEventType string

const (
	EventIncidentCreated    IncidentEventType = "IncidentCreated"
	EventStateTransitioned  IncidentEventType = "StateTransitioned"
)

// IncidentEvent is one append-only log entry, ordered by
// (IncidentID, CreatedAt, EventID).
type IncidentEvent struct {
	EventID    string                 `json:"eventId"`
	IncidentID string                 `json:"incidentId"`
	EventType  IncidentEventType      `json:"eventType"`
	CreatedAt  time.Time              `json:"createdAt"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// IdempotencyStatus is the lifecycle of one idempotency record.
type IdempotencyStatus string

const (
	IdempotencyInProgress IdempotencyStatus = "IN_PROGRESS"
	IdempotencyCompleted  IdempotencyStatus = "COMPLETED"
)

// RequestFingerprint pins down which fields of a request were hashed into
// RequestHash, so a fingerprint mismatch under the same key can be explained.
type RequestFingerprint struct {
	Fields []string `json:"fields"`
	Hash   string   `json:"hash"`
}

// IdempotencyRecord guards against duplicate processing of the same
// client-supplied key. Permanent; no TTL; no overwrite.
type IdempotencyRecord struct {
	IdempotencyKey      string                 `json:"idempotencyKey"`
	RequestHash         string                 `json:"requestHash"`
	Status              IdempotencyStatus      `json:"status"`
	Principal           string                 `json:"principal"`
	CreatedAt           time.Time              `json:"createdAt"`
	CompletedAt         *time.Time             `json:"completedAt,omitempty"`
	RequestFingerprint  RequestFingerprint     `json:"requestFingerprint"`
	IncidentID          *string                `json:"incidentId,omitempty"`
	Response            map[string]interface{} `json:"response,omitempty"`
}
