package domain

import "time"

// SignalSource is the origin kind of a raw observation.
type SignalSource string

const (
	SignalSourceAlarm  SignalSource = "alarm"
	SignalSourceMetric SignalSource = "metric"
	SignalSourceLog    SignalSource = "log"
	SignalSourceCustom SignalSource = "custom"
	SignalSourceEvent  SignalSource = "event"
)

// Severity is the vendor-reported severity scale.
type Severity string

const (
	SeveritySEV1 Severity = "SEV1"
	SeveritySEV2 Severity = "SEV2"
	SeveritySEV3 Severity = "SEV3"
	SeveritySEV4 Severity = "SEV4"
)

// NormalizedSeverity is opx's own severity vocabulary, derived from the
// vendor Severity at normalization time.
type NormalizedSeverity string

const (
	NormalizedCritical NormalizedSeverity = "CRITICAL"
	NormalizedHigh     NormalizedSeverity = "HIGH"
	NormalizedMedium   NormalizedSeverity = "MEDIUM"
	NormalizedLow      NormalizedSeverity = "LOW"
	NormalizedInfo     NormalizedSeverity = "INFO"
)

// severityRank orders NormalizedSeverity so "max severity" (incident.severity
// = max of evidence detection severities) reduces to an integer comparison.
var severityRank = map[NormalizedSeverity]int{
	NormalizedInfo:     0,
	NormalizedLow:      1,
	NormalizedMedium:   2,
	NormalizedHigh:     3,
	NormalizedCritical: 4,
}

// MaxSeverity returns the highest-ranked severity among sevs. Panics if sevs
// is empty — callers always derive it from a non-empty detection list.
func MaxSeverity(sevs []NormalizedSeverity) NormalizedSeverity {
	if len(sevs) == 0 {
		panic("domain: MaxSeverity called with no severities")
	}
	max := sevs[0]
	for _, s := range sevs[1:] {
		if severityRank[s] > severityRank[max] {
			max = s
		}
	}
	return max
}

// Signal is one vendor observation, normalized into opx's own shape. Created
// once by the normalizer, never mutated; duplicates collapse by SignalID.
type Signal struct {
	SignalID           string             `json:"signalId"`
	Source             SignalSource       `json:"source"`
	SignalType         string             `json:"signalType"`
	Service             string             `json:"service"`
	Severity           Severity           `json:"severity"`
	NormalizedSeverity NormalizedSeverity `json:"normalizedSeverity"`
	ObservedAt         time.Time          `json:"observedAt"`
	IdentityWindow     string             `json:"identityWindow"`
	Metadata           map[string]string  `json:"metadata,omitempty"`
	IngestedAt         time.Time          `json:"ingestedAt"`
}
