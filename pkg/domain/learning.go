package domain

import "time"

// CountedValue is one (value, count) pair in a top-N ranking, used for both
// root-cause and resolution-type aggregation.
type CountedValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SummaryMetrics are the raw aggregate counters a ResolutionSummary stores.
// Percentages are never stored — they're derived at read time by
// pkg/learning/patterns.DerivePercentages.
type SummaryMetrics struct {
	TotalIncidents    int           `json:"totalIncidents"`
	TruePositives     int           `json:"truePositives"`
	FalsePositives    int           `json:"falsePositives"`
	AverageTTD        time.Duration `json:"averageTTDNanos"`
	AverageTTR        time.Duration `json:"averageTTRNanos"`
	AverageConfidence float64       `json:"averageConfidence"`
}

// SummaryPatterns are the extracted root-cause/resolution-type rankings plus
// informational detection warnings.
type SummaryPatterns struct {
	CommonRootCauses   []CountedValue `json:"commonRootCauses"`
	CommonResolutions  []CountedValue `json:"commonResolutions"`
	DetectionWarnings  []string       `json:"detectionWarnings,omitempty"`
}

// ResolutionSummary is the pattern extractor's output for one (service,
// window) pair. Idempotent by SummaryID.
type ResolutionSummary struct {
	SummaryID string          `json:"summaryId"`
	Service   string          `json:"service"`
	StartDate time.Time       `json:"startDate"`
	EndDate   time.Time       `json:"endDate"`
	Version   string          `json:"version"`
	Metrics   SummaryMetrics  `json:"metrics"`
	Patterns  SummaryPatterns `json:"patterns"`
}

// BandCalibration is one confidence band's accuracy-vs-expectation analysis.
type BandCalibration struct {
	Band                ConfidenceBand `json:"band"`
	TotalIncidents      int            `json:"totalIncidents"`
	TruePositives       int            `json:"truePositives"`
	FalsePositives      int            `json:"falsePositives"`
	Accuracy            float64        `json:"accuracy"`
	ExpectedAccuracy    float64        `json:"expectedAccuracy"`
	Drift               float64        `json:"drift"`
	SampleSizeSufficient bool          `json:"sampleSizeSufficient"`
}

// DriftAnalysis aggregates BandCalibration results across sufficient bands.
type DriftAnalysis struct {
	Overconfident   []ConfidenceBand `json:"overconfident"`
	Underconfident  []ConfidenceBand `json:"underconfident"`
	WellCalibrated  []ConfidenceBand `json:"wellCalibrated"`
	InsufficientData []ConfidenceBand `json:"insufficientData"`
	AverageDrift    float64          `json:"averageDrift"`
	MaxDrift        float64          `json:"maxDrift"`
}

// RecommendationSeverity rates how urgently a calibration recommendation
// should be reviewed. Never changes the actionable=false contract.
type RecommendationSeverity string

const (
	RecommendationInfo     RecommendationSeverity = "INFO"
	RecommendationWarning  RecommendationSeverity = "WARNING"
	RecommendationCritical RecommendationSeverity = "CRITICAL"
)

// Recommendation is always advisory: Actionable is always false, spec.md §8
// invariant 12.
type Recommendation struct {
	Band       ConfidenceBand          `json:"band"`
	Text       string                  `json:"text"`
	Severity   RecommendationSeverity  `json:"severity"`
	Actionable bool                    `json:"actionable"`
}

// ConfidenceCalibration is the calibrator's output for one window.
// Deterministic by CalibrationID.
type ConfidenceCalibration struct {
	CalibrationID    string            `json:"calibrationId"`
	StartDate        time.Time         `json:"startDate"`
	EndDate          time.Time         `json:"endDate"`
	Version          string            `json:"version"`
	BandCalibrations []BandCalibration `json:"bandCalibrations"`
	DriftAnalysis    DriftAnalysis     `json:"driftAnalysis"`
	Recommendations  []Recommendation  `json:"recommendations"`
}

// SnapshotType is the retention/window class of a LearningSnapshot.
type SnapshotType string

const (
	SnapshotDaily   SnapshotType = "DAILY"
	SnapshotWeekly  SnapshotType = "WEEKLY"
	SnapshotMonthly SnapshotType = "MONTHLY"
	SnapshotCustom  SnapshotType = "CUSTOM"
)

// SnapshotDateRange is the {start,end} window a snapshot covers.
type SnapshotDateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SnapshotData is the aggregate a LearningSnapshot carries.
type SnapshotData struct {
	TotalOutcomes     int               `json:"totalOutcomes"`
	TotalSummaries    int               `json:"totalSummaries"`
	TotalCalibrations int               `json:"totalCalibrations"`
	Services          []string          `json:"services"`
	DateRange         SnapshotDateRange `json:"dateRange"`
}

// LearningSnapshot is an immutable, dated archive of learning artifacts.
// Retention: DAILY 30d, WEEKLY 84d, MONTHLY none.
type LearningSnapshot struct {
	SnapshotID     string       `json:"snapshotId"`
	SnapshotType   SnapshotType `json:"snapshotType"`
	Data           SnapshotData `json:"data"`
	OutcomeIDs     []string     `json:"outcomeIds"`
	SummaryIDs     []string     `json:"summaryIds"`
	CalibrationIDs []string     `json:"calibrationIds"`
}
