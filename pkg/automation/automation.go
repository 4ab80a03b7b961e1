// Package automation implements the scheduled and manual-trigger
// orchestration skeleton spec.md §4.8 describes: resolve a calendar window,
// check the kill switch, write an audit-before-work RUNNING record, run the
// operation-specific gate, execute the underlying work under retry, and
// record exactly one terminal audit transition plus its metrics.
package automation

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/opx/controlplane/pkg/alert"
	"github.com/opx/controlplane/pkg/audit"
	"github.com/opx/controlplane/pkg/automation/retry"
	"github.com/opx/controlplane/pkg/domain"
	"github.com/opx/controlplane/pkg/metrics"
	"github.com/opx/controlplane/pkg/shared/apierr"
	"github.com/opx/controlplane/pkg/shared/logging"
)

// Gate is an operation-specific pre-work check run after the RUNNING audit
// record is written but before any substantive work starts. Returning
// skip=true terminates the run as FAILED with results.skipped=reason
// (spec.md §4.8's calibration INSUFFICIENT_DATA gate is the only current
// user of this).
type Gate func(ctx context.Context) (skip bool, reason string, err error)

// Work is the underlying operation call, wrapped in retry by Execute.
// recordsProcessed feeds metrics.RecordRecordsProcessed and is caller-defined
// (incidents for pattern extraction, total ids for a snapshot, 0 when not
// applicable).
type Work func(ctx context.Context) (results map[string]interface{}, recordsProcessed int, err error)

// Handler orchestrates every invocation — scheduled or manual — of one
// automation operation type.
type Handler struct {
	OperationType domain.OperationType
	KillSwitch    KillSwitchStore
	Audit         *audit.Recorder
	Alerts        alert.Publisher
	Logger        logr.Logger
	RetryConfig   retry.Config
	// Clock returns the current time; overridden in tests, defaults to
	// time.Now in NewHandler.
	Clock func() time.Time
}

// NewHandler builds a Handler for operationType with the production clock.
func NewHandler(operationType domain.OperationType, killSwitch KillSwitchStore, recorder *audit.Recorder, alerts alert.Publisher, logger logr.Logger) *Handler {
	return &Handler{
		OperationType: operationType,
		KillSwitch:    killSwitch,
		Audit:         recorder,
		Alerts:        alerts,
		Logger:        logger,
		RetryConfig:   retry.DefaultConfig,
		Clock:         time.Now,
	}
}

func (h *Handler) now() time.Time {
	if h.Clock == nil {
		return time.Now().UTC()
	}
	return h.Clock().UTC()
}

// Execute runs the ten-step scheduled-handler skeleton: kill-switch check,
// audit-before-work, gate, retried work, terminal audit + metrics.
// skipped=true means the run ended via the kill switch or the gate, not
// through work itself.
func (h *Handler) Execute(
	ctx context.Context,
	startTime time.Time,
	triggerType domain.TriggerType,
	triggeredBy domain.Authority,
	parameters map[string]interface{},
	gate Gate,
	work Work,
) (record domain.AutomationAudit, skipped bool, err error) {
	opType := string(h.OperationType)
	trigType := string(triggerType)
	metrics.RecordInvocationCount(opType, trigType)

	fields := logging.NewFields().Component("automation").Operation(opType)

	active, ksErr := h.killSwitchActive(ctx)
	if ksErr != nil {
		logging.LogError(h.Logger, ksErr, "kill switch read failed, failing open", fields)
	}
	emergencyOverride := triggeredBy.Type == domain.AuthorityEmergencyOverride
	if active && !emergencyOverride {
		record, err = h.Audit.StartRunning(ctx, h.OperationType, triggerType, startTime, triggeredBy, parameters)
		if err != nil {
			return domain.AutomationAudit{}, true, err
		}
		metrics.RecordKillSwitchBlocked(opType)
		record, err = h.Audit.SkipSuccess(ctx, record.AuditID, h.now(), domain.SkippedKillSwitchActive)
		return record, true, err
	}

	record, err = h.Audit.StartRunning(ctx, h.OperationType, triggerType, startTime, triggeredBy, parameters)
	if err != nil {
		return domain.AutomationAudit{}, false, err
	}

	if gate != nil {
		skip, reason, gateErr := gate(ctx)
		if gateErr != nil {
			return h.failTerminal(ctx, record.AuditID, h.OperationType, triggerType, gateErr)
		}
		if skip {
			metrics.RecordCalibrationSkipped(reason)
			metrics.RecordFailure(opType, trigType, reason)
			record, err = h.Audit.FailSkipped(ctx, record.AuditID, h.now(), reason)
			return record, true, err
		}
	}

	timer := metrics.NewTimer()
	var results map[string]interface{}
	var recordsProcessed int
	retryErr := retry.Do(ctx, h.RetryConfig, func(ctx context.Context) error {
		r, n, workErr := work(ctx)
		if workErr != nil {
			return workErr
		}
		results, recordsProcessed = r, n
		return nil
	})
	timer.Stop(opType, trigType)

	if retryErr != nil {
		return h.failTerminal(ctx, record.AuditID, h.OperationType, triggerType, retryErr)
	}

	metrics.RecordSuccess(opType, trigType)
	if recordsProcessed > 0 {
		metrics.RecordRecordsProcessed(opType, recordsProcessed)
	}
	record, err = h.Audit.Succeed(ctx, record.AuditID, h.now(), results)
	return record, false, err
}

func (h *Handler) failTerminal(ctx context.Context, auditID string, operationType domain.OperationType, triggerType domain.TriggerType, causeErr error) (domain.AutomationAudit, bool, error) {
	opType, trigType := string(operationType), string(triggerType)
	coded := apierr.AsCoded(causeErr)
	metrics.RecordFailure(opType, trigType, string(coded.Code))

	record, auditErr := h.Audit.Fail(ctx, auditID, h.now(), causeErr.Error(), "")
	if auditErr != nil {
		return domain.AutomationAudit{}, false, auditErr
	}

	a := alert.New(domain.AlertFailure, operationType, triggerType, auditID, causeErr.Error())
	alert.PublishBestEffort(ctx, h.Alerts, a, func(pubErr error) {
		logging.LogError(h.Logger, pubErr, "alert publish failed", logging.NewFields().Component("automation").Operation(opType))
	})
	return record, false, causeErr
}

func (h *Handler) killSwitchActive(ctx context.Context) (bool, error) {
	if h.KillSwitch == nil {
		return false, nil
	}
	ks, found, err := h.KillSwitch.Get(ctx)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return ks.IsActive(), nil
}
