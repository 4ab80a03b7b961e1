package domain

import "time"

// OutcomeClassification is mutually exclusive by construction: exactly one
// of TruePositive/FalsePositive is true, enforced by pkg/outcome's
// validation gate rather than by the type.
type OutcomeClassification struct {
	TruePositive  bool           `json:"truePositive"`
	FalsePositive bool           `json:"falsePositive"`
	RootCause     string         `json:"rootCause"`
	ResolutionType ResolutionType `json:"resolutionType"`
}

// OutcomeTiming derives detection-to-resolution durations from the incident
// record, never from caller input.
type OutcomeTiming struct {
	DetectedAt time.Time     `json:"detectedAt"`
	ResolvedAt time.Time     `json:"resolvedAt"`
	ClosedAt   time.Time     `json:"closedAt"`
	TTD        time.Duration `json:"ttdNanos"`
	TTR        time.Duration `json:"ttrNanos"`
}

// SeverityAccuracy rates how well the predicted severity matched reality.
type SeverityAccuracy string

const (
	SeverityAccuracyAccurate     SeverityAccuracy = "ACCURATE"
	SeverityAccuracyOverestimated SeverityAccuracy = "OVERESTIMATED"
	SeverityAccuracyUnderestimated SeverityAccuracy = "UNDERESTIMATED"
)

// DetectionQuality rates how useful the underlying detections were.
type DetectionQuality string

const (
	DetectionQualityGood DetectionQuality = "GOOD"
	DetectionQualityPartial DetectionQuality = "PARTIAL"
	DetectionQualityPoor DetectionQuality = "POOR"
)

// HumanAssessment is the closing operator's judgment on the incident.
type HumanAssessment struct {
	ConfidenceRating float64          `json:"confidenceRating"`
	SeverityAccuracy SeverityAccuracy `json:"severityAccuracy"`
	DetectionQuality DetectionQuality `json:"detectionQuality"`
	Notes            string          `json:"notes,omitempty"`
}

// IncidentOutcome is the append-only, immutable record of an incident's
// closure. No update or delete.
type IncidentOutcome struct {
	OutcomeID       string                `json:"outcomeId"`
	IncidentID      string                `json:"incidentId"`
	Service         string                `json:"service"`
	RecordedAt      time.Time             `json:"recordedAt"`
	ValidatedAt     time.Time             `json:"validatedAt"`
	RecordedBy      Authority             `json:"recordedBy"`
	Classification  OutcomeClassification `json:"classification"`
	Timing          OutcomeTiming         `json:"timing"`
	HumanAssessment HumanAssessment       `json:"humanAssessment"`
	Version         string                `json:"version"`
}
