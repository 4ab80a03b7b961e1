package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/opx/controlplane/internal/store"
	"github.com/opx/controlplane/pkg/alert"
	"github.com/opx/controlplane/pkg/domain"
	"github.com/opx/controlplane/pkg/learning/calibration"
	"github.com/opx/controlplane/pkg/learning/patterns"
	"github.com/opx/controlplane/pkg/learning/snapshot"
	"github.com/opx/controlplane/pkg/metrics"
	"github.com/opx/controlplane/pkg/shared/logging"
)

// MinimumOutcomesForCalibration (MINIMUM_OUTCOMES_FOR_CALIBRATION, spec.md
// §4.8) is the total in-window outcome count below which a calibration run
// is skipped before doing any substantive work.
const MinimumOutcomesForCalibration = 30

// PatternExtraction runs the pattern-extraction operation for service
// (""=ALL) over [start,end), per spec.md §4.8's scheduled handler skeleton.
func PatternExtraction(
	ctx context.Context,
	h *Handler,
	extractor *patterns.Extractor,
	startTime time.Time,
	triggerType domain.TriggerType,
	triggeredBy domain.Authority,
	service string,
	start, end time.Time,
) (domain.AutomationAudit, bool, error) {
	parameters := map[string]interface{}{"service": service, "start": start, "end": end}
	return h.Execute(ctx, startTime, triggerType, triggeredBy, parameters, nil, func(ctx context.Context) (map[string]interface{}, int, error) {
		summary, _, err := extractor.Extract(ctx, service, start, end)
		if err != nil {
			return nil, 0, err
		}
		return map[string]interface{}{"summaryId": summary.SummaryID}, summary.Metrics.TotalIncidents, nil
	})
}

// Calibration runs the confidence-calibration operation over [start,end),
// gated on MinimumOutcomesForCalibration and followed by an advisory drift
// alert when the result's max drift exceeds calibration.DriftThreshold.
func Calibration(
	ctx context.Context,
	h *Handler,
	calibrator *calibration.Calibrator,
	outcomes store.Lister[domain.IncidentOutcome, domain.ListFilters],
	startTime time.Time,
	triggerType domain.TriggerType,
	triggeredBy domain.Authority,
	start, end time.Time,
) (domain.AutomationAudit, bool, error) {
	parameters := map[string]interface{}{"start": start, "end": end}

	gate := func(ctx context.Context) (bool, string, error) {
		count, err := countOutcomesInWindow(ctx, outcomes, start, end)
		if err != nil {
			return false, "", err
		}
		if count < MinimumOutcomesForCalibration {
			return true, domain.SkippedInsufficientData, nil
		}
		return false, "", nil
	}

	var result domain.ConfidenceCalibration
	record, skipped, err := h.Execute(ctx, startTime, triggerType, triggeredBy, parameters, gate, func(ctx context.Context) (map[string]interface{}, int, error) {
		c, _, calErr := calibrator.Calibrate(ctx, start, end)
		if calErr != nil {
			return nil, 0, calErr
		}
		result = c
		return map[string]interface{}{"calibrationId": c.CalibrationID}, 0, nil
	})

	if !skipped && err == nil {
		maybeAlertDrift(ctx, h, record.AuditID, triggerType, result)
	}
	return record, skipped, err
}

func countOutcomesInWindow(ctx context.Context, outcomes store.Lister[domain.IncidentOutcome, domain.ListFilters], start, end time.Time) (int, error) {
	const allServicesKey = "ALL"
	page, err := outcomes.List(ctx, allServicesKey, domain.ListFilters{Order: domain.OrderOldestFirst, Limit: 10000})
	if err != nil {
		return 0, err
	}
	count := 0
	for _, o := range page.Items {
		if o.Timing.ClosedAt.Before(start) || !o.Timing.ClosedAt.Before(end) {
			continue
		}
		count++
	}
	return count, nil
}

func maybeAlertDrift(ctx context.Context, h *Handler, auditID string, triggerType domain.TriggerType, c domain.ConfidenceCalibration) {
	if c.DriftAnalysis.MaxDrift <= calibration.DriftThreshold {
		return
	}
	metrics.RecordDriftDetected(string(h.OperationType))
	message := fmt.Sprintf("max drift %.3f exceeds the %.2f advisory threshold", c.DriftAnalysis.MaxDrift, calibration.DriftThreshold)
	a := alert.New(domain.AlertDrift, h.OperationType, triggerType, auditID, message)
	alert.PublishBestEffort(ctx, h.Alerts, a, func(err error) {
		logging.LogError(h.Logger, err, "drift alert publish failed", logging.NewFields().Component("automation").Operation(string(h.OperationType)))
	})
}

// Snapshot runs the learning-snapshot operation over (snapshotType, start,
// end), per spec.md §4.8's scheduled handler skeleton.
func Snapshot(
	ctx context.Context,
	h *Handler,
	svc *snapshot.Service,
	startTime time.Time,
	triggerType domain.TriggerType,
	triggeredBy domain.Authority,
	snapshotType domain.SnapshotType,
	start, end time.Time,
) (domain.AutomationAudit, bool, error) {
	parameters := map[string]interface{}{"snapshotType": snapshotType, "start": start, "end": end}
	return h.Execute(ctx, startTime, triggerType, triggeredBy, parameters, nil, func(ctx context.Context) (map[string]interface{}, int, error) {
		snap, _, err := svc.Snapshot(ctx, snapshotType, start, end)
		if err != nil {
			return nil, 0, err
		}
		total := snap.Data.TotalOutcomes + snap.Data.TotalSummaries + snap.Data.TotalCalibrations
		metrics.RecordSnapshotRecordCount(string(snapshotType), total)
		return map[string]interface{}{"snapshotId": snap.SnapshotID}, total, nil
	})
}
