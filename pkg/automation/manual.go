package automation

import (
	"context"
	"time"

	"github.com/opx/controlplane/pkg/audit"
	"github.com/opx/controlplane/pkg/domain"
	"github.com/opx/controlplane/pkg/metrics"
	"github.com/opx/controlplane/pkg/shared/apierr"
	"github.com/opx/controlplane/pkg/shared/logging"
)

// Dispatcher enqueues an automation invocation to run asynchronously,
// detached from the HTTP request that triggered it — satisfied by
// internal/dispatch/inproc.Pool/TrackedPool.
type Dispatcher interface {
	Dispatch(ctx context.Context, fn func(ctx context.Context) error) error
}

// Invocation is the deferred work a manual trigger dispatches — the
// caller's Execute/PatternExtraction/Calibration/Snapshot call, closed over
// the authority and trigger type TriggerManually resolves.
type Invocation func(ctx context.Context, now time.Time, triggerType domain.TriggerType, authority domain.Authority) error

// ManualTriggerResult is the {auditId, status} body spec.md §4.8's manual
// trigger orchestration returns — always 202 Accepted on successful
// admission, carrying the rate-limit state for the response headers.
type ManualTriggerResult struct {
	AuditID   string
	Status    string
	RateLimit domain.RateLimitCheck
}

// TriggerManually implements spec.md §4.8's 8-step manual trigger flow:
// construct authority, check the kill switch (bypassed by
// EMERGENCY_OVERRIDE), check and record the rate limit, compute auditId,
// and dispatch the invocation asynchronously. Schema validation and
// principal extraction happen at the HTTP boundary; principal=="" here is
// treated as already-invalid (401).
func (h *Handler) TriggerManually(
	ctx context.Context,
	now time.Time,
	principal string,
	emergency bool,
	rateLimiter *RateLimiter,
	dispatcher Dispatcher,
	invoke Invocation,
) (ManualTriggerResult, error) {
	if principal == "" {
		return ManualTriggerResult{}, apierr.New(apierr.CodeUnauthorized, "a principal is required to trigger an automation operation")
	}

	authorityType := domain.AuthorityHumanOperator
	triggerType := domain.TriggerManual
	if emergency {
		authorityType = domain.AuthorityEmergencyOverride
		triggerType = domain.TriggerManualEmergency
	}
	authority := domain.Authority{Type: authorityType, Principal: principal}

	active, ksErr := h.killSwitchActive(ctx)
	if ksErr != nil {
		fields := logging.NewFields().Component("automation").Operation(string(h.OperationType))
		logging.LogError(h.Logger, ksErr, "kill switch read failed, failing open", fields)
	}
	if active && authorityType != domain.AuthorityEmergencyOverride {
		record, startErr := h.Audit.StartRunning(ctx, h.OperationType, triggerType, now, authority, nil)
		if startErr != nil {
			return ManualTriggerResult{}, startErr
		}
		metrics.RecordKillSwitchBlocked(string(h.OperationType))
		if _, skipErr := h.Audit.SkipSuccess(ctx, record.AuditID, h.now(), domain.SkippedKillSwitchActive); skipErr != nil {
			return ManualTriggerResult{}, skipErr
		}
		return ManualTriggerResult{}, apierr.New(apierr.CodeKillSwitchActive, "automation is currently disabled")
	}

	check, err := rateLimiter.Check(ctx, principal, h.OperationType, now)
	if err != nil {
		return ManualTriggerResult{}, err
	}
	if !check.Allowed {
		return ManualTriggerResult{RateLimit: check}, apierr.WithDetails(
			apierr.CodeRateLimitExceeded,
			"rate limit exceeded for this operation",
			map[string]interface{}{"retryAfterSeconds": check.RetryAfter.Seconds()},
		)
	}
	if err := rateLimiter.Record(ctx, principal, h.OperationType, now); err != nil {
		return ManualTriggerResult{}, err
	}

	auditID := audit.ComputeAuditID(h.OperationType, now, audit.Version)

	if err := dispatcher.Dispatch(ctx, func(ctx context.Context) error {
		return invoke(ctx, now, triggerType, authority)
	}); err != nil {
		return ManualTriggerResult{}, err
	}

	return ManualTriggerResult{AuditID: auditID, Status: "ACCEPTED", RateLimit: check}, nil
}
