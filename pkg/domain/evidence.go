package domain

import "time"

// Detection is one correlated signal occurrence inside an EvidenceBundle.
// Detection correlation itself is out of scope (spec.md Non-goals); this is
// only the shape a bundle carries.
type Detection struct {
	SignalID string             `json:"signalId"`
	RuleID   string             `json:"ruleId"`
	Severity NormalizedSeverity `json:"severity"`
	OccurredAt time.Time        `json:"occurredAt"`
}

// SignalSummary aggregates the detections inside a bundle.
type SignalSummary struct {
	SignalCount          int                            `json:"signalCount"`
	SeverityDistribution map[NormalizedSeverity]int      `json:"severityDistribution"`
	TimeSpread           time.Duration                  `json:"timeSpreadNanos"`
	UniqueRules          int                            `json:"uniqueRules"`
}

// EvidenceBundle is an immutable bundle of detections over a window.
// BundledAt is the sole authoritative decision clock for everything
// downstream (promotion, incident creation).
type EvidenceBundle struct {
	EvidenceID    string        `json:"evidenceId"`
	Service       string        `json:"service"`
	Detections    []Detection   `json:"detections"`
	WindowStart   time.Time     `json:"windowStart"`
	WindowEnd     time.Time     `json:"windowEnd"`
	BundledAt     time.Time     `json:"bundledAt"`
	SignalSummary SignalSummary `json:"signalSummary"`
}
