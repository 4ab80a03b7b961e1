// Package confidence maps an EvidenceBundle to a CandidateAssessment: a
// fixed-weight factor vector, a score, a band, and at least one
// human-readable reason (spec.md §4.4). Assess is pure and deterministic —
// replaying the same bundle must produce a byte-identical assessment.
package confidence

import (
	"fmt"
	"sort"

	"github.com/opx/controlplane/pkg/domain"
	"github.com/opx/controlplane/pkg/shared/mathutil"
)

// ModelVersion is the fixed model identifier stamped onto every assessment.
// Bumping it is a breaking change to replay determinism and must be
// coordinated with the promotion gate's gateVersion.
const ModelVersion = "confidence-v1.0.0"

// Weight fixes each factor's contribution share; the five weights sum to
// 1.0 exactly, satisfying spec.md §7's 1.0 ± 0.001 invariant by construction.
const (
	weightDetectionCount  = 0.30
	weightSeverityScore   = 0.25
	weightRuleDiversity   = 0.20
	weightTemporalDensity = 0.15
	weightSignalVolume    = 0.10
)

// Band boundaries, spec.md §4.4.
const (
	thresholdMedium   = 0.4
	thresholdHigh     = 0.6
	thresholdCritical = 0.8
)

// detectionCountSaturation and signalVolumeSaturation are the counts at
// which their respective factor values reach 1.0. Chosen so a handful of
// detections/signals already carries strong confidence without needing an
// unbounded count to saturate.
const (
	detectionCountSaturation = 5.0
	signalVolumeSaturation   = 10.0
)

// Assess computes the CandidateAssessment for bundle. assessedAt is fixed
// to bundle.BundledAt per spec.md §3 — the evidence's decision clock, never
// wall-clock time at assessment.
func Assess(bundle domain.EvidenceBundle) domain.CandidateAssessment {
	factors := computeFactors(bundle)

	score := factors.DetectionCount.Contribution +
		factors.SeverityScore.Contribution +
		factors.RuleDiversity.Contribution +
		factors.TemporalDensity.Contribution +
		factors.SignalVolume.Contribution
	score = mathutil.Round3(mathutil.Clamp(score, 0, 1))

	return domain.CandidateAssessment{
		ConfidenceScore: score,
		ConfidenceBand:  bandForScore(score),
		Reasons:         reasonsFor(bundle, factors, score),
		Factors:         factors,
		AssessedAt:      bundle.BundledAt,
		ModelVersion:    ModelVersion,
	}
}

// BandForScore maps a raw confidence score (not necessarily one produced
// by Assess — pkg/learning/calibration uses this to re-derive a historical
// incident's predicted band from its stored ConfidenceScore) to its band.
func BandForScore(score float64) domain.ConfidenceBand {
	return bandForScore(score)
}

// bandForScore maps a score into its band per the fixed half-open
// thresholds; the returned band always matches the score's range
// (spec.md §7's band/score consistency invariant).
func bandForScore(score float64) domain.ConfidenceBand {
	switch {
	case score >= thresholdCritical:
		return domain.BandCritical
	case score >= thresholdHigh:
		return domain.BandHigh
	case score >= thresholdMedium:
		return domain.BandMedium
	default:
		return domain.BandLow
	}
}

// computeFactors normalizes each raw signal into [0,1], then multiplies by
// the fixed weight to get its contribution.
func computeFactors(bundle domain.EvidenceBundle) domain.Factors {
	s := bundle.SignalSummary

	detectionValue := mathutil.Clamp(float64(len(bundle.Detections))/detectionCountSaturation, 0, 1)
	severityValue := averageSeverityRank(bundle.Detections)
	diversityValue := ruleDiversityValue(s.UniqueRules, len(bundle.Detections))
	densityValue := temporalDensityValue(len(bundle.Detections), s.TimeSpread)
	volumeValue := mathutil.Clamp(float64(s.SignalCount)/signalVolumeSaturation, 0, 1)

	return domain.Factors{
		DetectionCount:  factor(detectionValue, weightDetectionCount),
		SeverityScore:   factor(severityValue, weightSeverityScore),
		RuleDiversity:   factor(diversityValue, weightRuleDiversity),
		TemporalDensity: factor(densityValue, weightTemporalDensity),
		SignalVolume:    factor(volumeValue, weightSignalVolume),
	}
}

func factor(value, weight float64) domain.Factor {
	return domain.Factor{
		Value:        mathutil.Round3(value),
		Contribution: mathutil.Round3(value * weight),
		Weight:       weight,
	}
}

// severityRankValue mirrors domain.MaxSeverity's rank table but stays local
// since it needs a 0-based [0,1] normalization, not a comparison ordinal.
var severityRankValue = map[domain.NormalizedSeverity]float64{
	domain.NormalizedInfo:     0,
	domain.NormalizedLow:      0.25,
	domain.NormalizedMedium:   0.5,
	domain.NormalizedHigh:     0.75,
	domain.NormalizedCritical: 1,
}

func averageSeverityRank(detections []domain.Detection) float64 {
	if len(detections) == 0 {
		return 0
	}
	values := make([]float64, 0, len(detections))
	for _, d := range detections {
		values = append(values, severityRankValue[d.Severity])
	}
	return mathutil.Clamp(mathutil.Mean(values), 0, 1)
}

func ruleDiversityValue(uniqueRules, detectionCount int) float64 {
	if detectionCount == 0 {
		return 0
	}
	return mathutil.Clamp(float64(uniqueRules)/float64(detectionCount), 0, 1)
}

// temporalDensityValue rewards many detections packed into a short window:
// density approaches 1 as detections-per-minute grows, 0 for a single
// detection (zero spread, nothing to measure density against).
func temporalDensityValue(detectionCount int, timeSpreadNanos interface{ Minutes() float64 }) float64 {
	if detectionCount <= 1 {
		return 0
	}
	minutes := timeSpreadNanos.Minutes()
	if minutes <= 0 {
		minutes = 1.0 / 60.0 // sub-minute spread still counts as dense
	}
	perMinute := float64(detectionCount) / minutes
	return mathutil.Clamp(perMinute/float64(detectionCount), 0, 1)
}

// reasonsFor produces at least one human-readable explanation, ranking
// factors by contribution so the dominant driver of the score is named
// first.
func reasonsFor(bundle domain.EvidenceBundle, factors domain.Factors, score float64) []string {
	type named struct {
		name         string
		contribution float64
	}
	named5 := []named{
		{"detectionCount", factors.DetectionCount.Contribution},
		{"severityScore", factors.SeverityScore.Contribution},
		{"ruleDiversity", factors.RuleDiversity.Contribution},
		{"temporalDensity", factors.TemporalDensity.Contribution},
		{"signalVolume", factors.SignalVolume.Contribution},
	}
	sort.Slice(named5, func(i, j int) bool { return named5[i].contribution > named5[j].contribution })

	reasons := []string{
		fmt.Sprintf("score %.3f (band %s) driven primarily by %s", score, bandForScore(score), named5[0].name),
	}
	if len(bundle.Detections) < 2 {
		reasons = append(reasons, "fewer than 2 detections in evidence bundle")
	}
	return reasons
}
