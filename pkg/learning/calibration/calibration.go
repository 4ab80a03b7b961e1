// Package calibration implements the confidence calibrator (spec.md §4.7):
// group closed-incident outcomes by their predicted confidence band,
// measure how accuracy drifted from that band's expected midpoint, and
// produce advisory-only recommendations. No output of this package ever
// changes pkg/confidence's weights or thresholds — drift is surfaced for a
// human to review, never applied automatically (spec.md §8 invariant 12).
package calibration

import (
	"context"
	"fmt"
	"time"

	"github.com/opx/controlplane/internal/identity"
	"github.com/opx/controlplane/internal/store"
	"github.com/opx/controlplane/pkg/confidence"
	"github.com/opx/controlplane/pkg/domain"
	"github.com/opx/controlplane/pkg/shared/mathutil"
)

// Version is the calibrator's algorithm version, folded into calibrationId.
const Version = "confidence-calibration-v1.0.0"

// MinimumSampleSize is the per-band count below which sampleSizeSufficient
// is false and the band is excluded from drift aggregation.
const MinimumSampleSize = 20

// DriftThreshold (DRIFT_THRESHOLD, spec.md §4.8) is the |drift| above which
// a sufficiently-sampled band is flagged for an advisory drift alert.
const DriftThreshold = 0.15

// wellCalibratedTolerance is a narrower-than-DriftThreshold dead zone: a
// band is only called "well calibrated" when its drift is small enough
// that the calibrator isn't just failing to detect a real miscalibration.
const wellCalibratedTolerance = 0.05

// allServicesKey is the listByService sentinel meaning "every service" —
// calibration is never scoped to one service, spec.md §4.7 groups only by
// band.
const allServicesKey = "ALL"

// windowTimestampLayout is the ISO 8601 basic form (no ':' or '-'), so a
// formatted window boundary never contains the colon digest separator.
const windowTimestampLayout = "20060102T150405.000Z"

// bandOrder fixes iteration order over the four bands so every derived
// slice (BandCalibrations, Recommendations) is replay-identical.
var bandOrder = []domain.ConfidenceBand{domain.BandLow, domain.BandMedium, domain.BandHigh, domain.BandCritical}

// bandMidpoint is each band's expected accuracy under a perfectly
// calibrated model — the center of its score range (spec.md §4.4's
// LOW [0,0.4) / MEDIUM [0.4,0.6) / HIGH [0.6,0.8) / CRITICAL [0.8,1.0]).
var bandMidpoint = map[domain.ConfidenceBand]float64{
	domain.BandLow:      0.2,
	domain.BandMedium:   0.5,
	domain.BandHigh:     0.7,
	domain.BandCritical: 0.9,
}

// ComputeCalibrationID is an Open Question resolution: spec.md §4.7 says
// only "deterministic by calibrationId" without fixing its inputs. A
// calibration run is global (not per-service), so its identity is the
// window plus algorithm version.
func ComputeCalibrationID(start, end time.Time, version string) string {
	return identity.DigestColon(start.UTC().Format(windowTimestampLayout), end.UTC().Format(windowTimestampLayout), version)
}

// IncidentConfidenceReader resolves the ConfidenceScore an outcome's
// incident was assessed at, so the calibrator can re-derive its predicted
// band — IncidentOutcome itself doesn't carry the score, only the
// incidentId.
type IncidentConfidenceReader interface {
	Get(ctx context.Context, incidentID string) (domain.Incident, bool, error)
}

// Calibrator computes ConfidenceCalibration documents.
type Calibrator struct {
	Outcomes     store.Lister[domain.IncidentOutcome, domain.ListFilters]
	Incidents    IncidentConfidenceReader
	Calibrations store.Putter[domain.ConfidenceCalibration]
}

// NewCalibrator builds a Calibrator.
func NewCalibrator(outcomes store.Lister[domain.IncidentOutcome, domain.ListFilters], incidents IncidentConfidenceReader, calibrations store.Putter[domain.ConfidenceCalibration]) *Calibrator {
	return &Calibrator{Outcomes: outcomes, Incidents: incidents, Calibrations: calibrations}
}

type bandTally struct {
	total, truePositives, falsePositives int
}

// Calibrate loads outcomes closed within [start, end), groups them by
// predicted band, computes per-band accuracy/drift, and persists the
// result idempotently by calibrationId. Callers are expected to have
// already enforced spec.md §4.8's MINIMUM_OUTCOMES_FOR_CALIBRATION gate
// (|outcomes| >= 30) before calling Calibrate — that gate is an automation
// orchestration concern, not part of the calibration math itself.
func (c *Calibrator) Calibrate(ctx context.Context, start, end time.Time) (domain.ConfidenceCalibration, domain.CreateOutcome, error) {
	page, err := c.Outcomes.List(ctx, allServicesKey, domain.ListFilters{Order: domain.OrderOldestFirst, Limit: 10000})
	if err != nil {
		return domain.ConfidenceCalibration{}, "", err
	}

	tallies := make(map[domain.ConfidenceBand]*bandTally)
	for _, band := range bandOrder {
		tallies[band] = &bandTally{}
	}

	for _, o := range page.Items {
		if o.Timing.ClosedAt.Before(start) || !o.Timing.ClosedAt.Before(end) {
			continue
		}
		incident, found, err := c.Incidents.Get(ctx, o.IncidentID)
		if err != nil {
			return domain.ConfidenceCalibration{}, "", err
		}
		if !found {
			continue
		}
		band := confidence.BandForScore(incident.ConfidenceScore)
		tally := tallies[band]
		tally.total++
		if o.Classification.TruePositive {
			tally.truePositives++
		}
		if o.Classification.FalsePositive {
			tally.falsePositives++
		}
	}

	bandCalibrations := make([]domain.BandCalibration, 0, len(bandOrder))
	for _, band := range bandOrder {
		bandCalibrations = append(bandCalibrations, computeBandCalibration(band, tallies[band]))
	}

	return c.persist(ctx, start, end, bandCalibrations)
}

func computeBandCalibration(band domain.ConfidenceBand, tally *bandTally) domain.BandCalibration {
	sufficient := tally.total >= MinimumSampleSize
	var accuracy float64
	denominator := tally.truePositives + tally.falsePositives
	if denominator > 0 {
		accuracy = float64(tally.truePositives) / float64(denominator)
	}
	expected := bandMidpoint[band]
	drift := mathutil.Round3(accuracy - expected)

	return domain.BandCalibration{
		Band:                 band,
		TotalIncidents:       tally.total,
		TruePositives:        tally.truePositives,
		FalsePositives:       tally.falsePositives,
		Accuracy:             mathutil.Round3(accuracy),
		ExpectedAccuracy:     expected,
		Drift:                drift,
		SampleSizeSufficient: sufficient,
	}
}

func (c *Calibrator) persist(ctx context.Context, start, end time.Time, bandCalibrations []domain.BandCalibration) (domain.ConfidenceCalibration, domain.CreateOutcome, error) {
	drift := aggregateDrift(bandCalibrations)
	calibration := domain.ConfidenceCalibration{
		CalibrationID:    ComputeCalibrationID(start, end, Version),
		StartDate:        start,
		EndDate:          end,
		Version:          Version,
		BandCalibrations: bandCalibrations,
		DriftAnalysis:    drift,
		Recommendations:  recommendationsFor(bandCalibrations),
	}
	return c.Calibrations.Put(ctx, calibration)
}

// aggregateDrift classifies each sufficiently-sampled band as
// overconfident/underconfident/well-calibrated and excludes insufficient
// bands from the average/max drift figures (spec.md §4.7: "drift
// aggregates exclude insufficient bands"). Positive drift means actual
// accuracy exceeded the band's expected midpoint (the model undersold
// itself for that band); negative drift means accuracy fell short
// (the model oversold itself) — an Open Question resolution, since the
// distilled spec doesn't name a sign convention.
func aggregateDrift(bandCalibrations []domain.BandCalibration) domain.DriftAnalysis {
	var analysis domain.DriftAnalysis
	var driftSum, maxAbsDrift float64
	var sufficientCount int

	for _, bc := range bandCalibrations {
		if !bc.SampleSizeSufficient {
			analysis.InsufficientData = append(analysis.InsufficientData, bc.Band)
			continue
		}
		sufficientCount++
		driftSum += bc.Drift
		if abs(bc.Drift) > maxAbsDrift {
			maxAbsDrift = abs(bc.Drift)
		}
		switch {
		case bc.Drift > wellCalibratedTolerance:
			analysis.Underconfident = append(analysis.Underconfident, bc.Band)
		case bc.Drift < -wellCalibratedTolerance:
			analysis.Overconfident = append(analysis.Overconfident, bc.Band)
		default:
			analysis.WellCalibrated = append(analysis.WellCalibrated, bc.Band)
		}
	}

	if sufficientCount > 0 {
		analysis.AverageDrift = mathutil.Round3(driftSum / float64(sufficientCount))
	}
	analysis.MaxDrift = mathutil.Round3(maxAbsDrift)
	return analysis
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// recommendationsFor produces one advisory Recommendation per band.
// Actionable is always false — this is the one non-negotiable contract
// spec.md §8 invariant 12 names, and every recommendation's text restates
// it so the advisory nature survives even if a caller only logs the text.
func recommendationsFor(bandCalibrations []domain.BandCalibration) []domain.Recommendation {
	recommendations := make([]domain.Recommendation, 0, len(bandCalibrations))
	for _, bc := range bandCalibrations {
		recommendations = append(recommendations, domain.Recommendation{
			Band:       bc.Band,
			Text:       adviceFor(bc),
			Severity:   severityFor(bc),
			Actionable: false,
		})
	}
	return recommendations
}

func severityFor(bc domain.BandCalibration) domain.RecommendationSeverity {
	switch {
	case !bc.SampleSizeSufficient:
		return domain.RecommendationWarning
	case abs(bc.Drift) > DriftThreshold:
		return domain.RecommendationCritical
	default:
		return domain.RecommendationInfo
	}
}

func adviceFor(bc domain.BandCalibration) string {
	const mandatoryAdvisory = "This finding is informational only and requires human review before any action is taken. No automatic tuning is applied to the confidence model."
	switch {
	case !bc.SampleSizeSufficient:
		return fmt.Sprintf("Band %s has fewer than %d outcomes in this window, too few to judge calibration. %s", bc.Band, MinimumSampleSize, mandatoryAdvisory)
	case abs(bc.Drift) > DriftThreshold:
		return fmt.Sprintf("Band %s drifted %.3f from its expected accuracy, beyond the %.2f threshold. %s", bc.Band, bc.Drift, DriftThreshold, mandatoryAdvisory)
	default:
		return fmt.Sprintf("Band %s is within its expected accuracy range (drift %.3f). %s", bc.Band, bc.Drift, mandatoryAdvisory)
	}
}
