// Package patterns implements the pattern extractor (spec.md §4.7): for a
// (service, start, end) window, aggregate closed-incident outcomes into a
// ResolutionSummary, idempotent by summaryId.
package patterns

import (
	"context"
	"sort"
	"time"

	"github.com/opx/controlplane/internal/identity"
	"github.com/opx/controlplane/internal/store"
	"github.com/opx/controlplane/pkg/domain"
	"github.com/opx/controlplane/pkg/shared/mathutil"
)

// Version is the extractor's algorithm version, folded into summaryId so a
// future scoring change produces a distinct summary rather than silently
// reinterpreting an old one.
const Version = "pattern-summary-v1.0.0"

// falsePositiveWarnRate is the §4.7 threshold above which a service is
// flagged in SummaryPatterns.DetectionWarnings.
const falsePositiveWarnRate = 0.30

// topN bounds commonRootCauses/commonResolutions per §3's data model.
const topN = 10

// allServicesKey is the listByService sentinel for the cross-service "ALL"
// rollup, matching internal/store/memory and internal/store/postgres.
const allServicesKey = "ALL"

// windowTimestampLayout is the millisecond-precision UTC form every
// calendar-bounded window boundary is serialized with before hashing, in
// ISO 8601 basic form (no ':' or '-') so it never contains the colon
// separator.
const windowTimestampLayout = "20060102T150405.000Z"

// ComputeSummaryID implements spec.md §4's
// `summaryId = digest(service∨"ALL" | startDate | endDate | version)`.
// Despite the "|"-joined prose this uses the colon separator like every id
// but incident identity (§4.1); service is normalized to "ALL" for the
// cross-service rollup so the aggregate summary has a stable id distinct
// from any one service's.
func ComputeSummaryID(service string, start, end time.Time, version string) string {
	return identity.DigestColon(serviceKey(service), start.UTC().Format(windowTimestampLayout), end.UTC().Format(windowTimestampLayout), version)
}

func serviceKey(service string) string {
	if service == "" {
		return allServicesKey
	}
	return service
}

// Extractor computes ResolutionSummary documents from stored outcomes.
type Extractor struct {
	Outcomes  store.Lister[domain.IncidentOutcome, domain.ListFilters]
	Summaries store.Putter[domain.ResolutionSummary]
}

// NewExtractor builds an Extractor.
func NewExtractor(outcomes store.Lister[domain.IncidentOutcome, domain.ListFilters], summaries store.Putter[domain.ResolutionSummary]) *Extractor {
	return &Extractor{Outcomes: outcomes, Summaries: summaries}
}

// Extract loads outcomes for (service, start, end) — service="" aggregates
// across every service — computes metrics and patterns, and persists the
// result idempotently by summaryId.
func (e *Extractor) Extract(ctx context.Context, service string, start, end time.Time) (domain.ResolutionSummary, domain.CreateOutcome, error) {
	page, err := e.Outcomes.List(ctx, serviceKey(service), domain.ListFilters{Order: domain.OrderOldestFirst, Limit: 10000})
	if err != nil {
		return domain.ResolutionSummary{}, "", err
	}

	windowed := make([]domain.IncidentOutcome, 0, len(page.Items))
	for _, o := range page.Items {
		if o.Timing.ClosedAt.Before(start) || !o.Timing.ClosedAt.Before(end) {
			continue
		}
		windowed = append(windowed, o)
	}

	summary := domain.ResolutionSummary{
		SummaryID: ComputeSummaryID(service, start, end, Version),
		Service:   service,
		StartDate: start,
		EndDate:   end,
		Version:   Version,
		Metrics:   computeMetrics(windowed),
		Patterns:  computePatterns(windowed),
	}
	return e.Summaries.Put(ctx, summary)
}

func computeMetrics(outcomes []domain.IncidentOutcome) domain.SummaryMetrics {
	if len(outcomes) == 0 {
		return domain.SummaryMetrics{}
	}

	var truePositives, falsePositives int
	ttds := make([]float64, 0, len(outcomes))
	ttrs := make([]float64, 0, len(outcomes))
	confidences := make([]float64, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Classification.TruePositive {
			truePositives++
		}
		if o.Classification.FalsePositive {
			falsePositives++
		}
		ttds = append(ttds, float64(o.Timing.TTD))
		ttrs = append(ttrs, float64(o.Timing.TTR))
		confidences = append(confidences, o.HumanAssessment.ConfidenceRating)
	}

	return domain.SummaryMetrics{
		TotalIncidents:    len(outcomes),
		TruePositives:     truePositives,
		FalsePositives:    falsePositives,
		AverageTTD:        time.Duration(mathutil.Mean(ttds)),
		AverageTTR:        time.Duration(mathutil.Mean(ttrs)),
		AverageConfidence: mathutil.Round3(mathutil.Mean(confidences)),
	}
}

func computePatterns(outcomes []domain.IncidentOutcome) domain.SummaryPatterns {
	rootCauses := make(map[string]int)
	resolutions := make(map[string]int)
	byService := make(map[string]struct{ total, falsePositives int })

	for _, o := range outcomes {
		if o.Classification.RootCause != "" {
			rootCauses[o.Classification.RootCause]++
		}
		if o.Classification.ResolutionType != "" {
			resolutions[string(o.Classification.ResolutionType)]++
		}
		counts := byService[o.Service]
		counts.total++
		if o.Classification.FalsePositive {
			counts.falsePositives++
		}
		byService[o.Service] = counts
	}

	var warnings []string
	services := make([]string, 0, len(byService))
	for svc := range byService {
		services = append(services, svc)
	}
	sort.Strings(services)
	for _, svc := range services {
		counts := byService[svc]
		if counts.total == 0 {
			continue
		}
		if float64(counts.falsePositives)/float64(counts.total) > falsePositiveWarnRate {
			warnings = append(warnings, svc)
		}
	}

	return domain.SummaryPatterns{
		CommonRootCauses:  rankByCount(rootCauses, topN),
		CommonResolutions: rankByCount(resolutions, topN),
		DetectionWarnings: warnings,
	}
}

// rankByCount returns the top-n (value, count) pairs, highest count first,
// ties broken by lexicographic order of value for stable, replay-identical
// output (spec.md §4.7).
func rankByCount(counts map[string]int, n int) []domain.CountedValue {
	values := make([]domain.CountedValue, 0, len(counts))
	for value, count := range counts {
		values = append(values, domain.CountedValue{Value: value, Count: count})
	}
	sort.Slice(values, func(i, j int) bool {
		if values[i].Count != values[j].Count {
			return values[i].Count > values[j].Count
		}
		return values[i].Value < values[j].Value
	})
	if len(values) > n {
		values = values[:n]
	}
	return values
}
