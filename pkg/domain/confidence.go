package domain

import "time"

// ConfidenceBand is the categorical bucket a confidence score falls into.
type ConfidenceBand string

const (
	BandLow      ConfidenceBand = "LOW"
	BandMedium   ConfidenceBand = "MEDIUM"
	BandHigh     ConfidenceBand = "HIGH"
	BandCritical ConfidenceBand = "CRITICAL"
)

// bandRank orders ConfidenceBand for "band >= HIGH" style comparisons in the
// promotion gate.
var bandRank = map[ConfidenceBand]int{
	BandLow:      0,
	BandMedium:   1,
	BandHigh:     2,
	BandCritical: 3,
}

// AtLeast reports whether b is ranked at or above other.
func (b ConfidenceBand) AtLeast(other ConfidenceBand) bool {
	return bandRank[b] >= bandRank[other]
}

// Factor is one weighted contributor to a CandidateAssessment's score.
type Factor struct {
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
	Weight       float64 `json:"weight"`
}

// Factors is the fixed factor set the confidence model computes, named
// exactly as spec.md §4.4 enumerates them.
type Factors struct {
	DetectionCount  Factor `json:"detectionCount"`
	SeverityScore   Factor `json:"severityScore"`
	RuleDiversity   Factor `json:"ruleDiversity"`
	TemporalDensity Factor `json:"temporalDensity"`
	SignalVolume    Factor `json:"signalVolume"`
}

// CandidateAssessment is the confidence model's output for one evidence
// bundle. AssessedAt always equals the source evidence's BundledAt.
type CandidateAssessment struct {
	ConfidenceScore float64        `json:"confidenceScore"`
	ConfidenceBand  ConfidenceBand `json:"confidenceBand"`
	Reasons         []string       `json:"reasons"`
	Factors         Factors        `json:"factors"`
	AssessedAt      time.Time      `json:"assessedAt"`
	ModelVersion    string         `json:"modelVersion"`
}
