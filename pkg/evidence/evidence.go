// Package evidence models the EvidenceBundle shape and its bundledAt clock
// discipline (spec.md §4.3). Detection correlation itself — which signals
// get grouped into a bundle — is out of core scope; this package only
// gives the rest of the pipeline a real collaborator to bundle against.
package evidence

import (
	"sort"
	"time"

	"github.com/opx/controlplane/internal/identity"
	"github.com/opx/controlplane/pkg/domain"
)

// Bundler groups already-correlated detections into an immutable
// EvidenceBundle. The correlation decision (which detections belong
// together) is supplied by the caller; Bundler only computes the bundle's
// identity and summary.
type Bundler interface {
	Bundle(service string, detections []domain.Detection, windowStart, windowEnd, bundledAt time.Time) domain.EvidenceBundle
}

// bundler is the canonical in-repo Bundler implementation.
type bundler struct{}

// New returns the canonical Bundler.
func New() Bundler {
	return bundler{}
}

// Bundle computes evidenceId deterministically from the bundle's
// identity-defining fields and derives signalSummary from detections.
// bundledAt becomes the sole authoritative decision clock for everything
// downstream (spec.md §3) — callers must pass the clock reading at the
// moment of bundling, not re-derive it later.
func (bundler) Bundle(service string, detections []domain.Detection, windowStart, windowEnd, bundledAt time.Time) domain.EvidenceBundle {
	signalIDs := make([]string, 0, len(detections))
	for _, d := range detections {
		signalIDs = append(signalIDs, d.SignalID)
	}
	sort.Strings(signalIDs)

	// Window bounds use the ISO 8601 basic form (no ':'), since ':' is the
	// digest separator.
	parts := append([]string{
		service,
		windowStart.UTC().Format("20060102T150405Z"),
		windowEnd.UTC().Format("20060102T150405Z"),
	}, signalIDs...)
	evidenceID := identity.DigestColon(parts...)

	return domain.EvidenceBundle{
		EvidenceID:    evidenceID,
		Service:       service,
		Detections:    detections,
		WindowStart:   windowStart,
		WindowEnd:     windowEnd,
		BundledAt:     bundledAt,
		SignalSummary: summarize(detections),
	}
}

// summarize aggregates a detection list into SignalSummary.
func summarize(detections []domain.Detection) domain.SignalSummary {
	if len(detections) == 0 {
		return domain.SignalSummary{SeverityDistribution: map[domain.NormalizedSeverity]int{}}
	}

	distribution := make(map[domain.NormalizedSeverity]int)
	rules := make(map[string]struct{})
	earliest, latest := detections[0].OccurredAt, detections[0].OccurredAt

	for _, d := range detections {
		distribution[d.Severity]++
		rules[d.RuleID] = struct{}{}
		if d.OccurredAt.Before(earliest) {
			earliest = d.OccurredAt
		}
		if d.OccurredAt.After(latest) {
			latest = d.OccurredAt
		}
	}

	return domain.SignalSummary{
		SignalCount:          len(detections),
		SeverityDistribution: distribution,
		TimeSpread:           latest.Sub(earliest),
		UniqueRules:          len(rules),
	}
}
