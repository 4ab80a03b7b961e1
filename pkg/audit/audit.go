// Package audit implements the AutomationAudit record lifecycle (spec.md
// §4.9): create-if-absent RUNNING record written before any substantive
// work, then exactly one terminal transition to SUCCESS or FAILED. The
// RUNNING->terminal-once enforcement itself lives at the store layer
// (internal/store/{memory,postgres}.AuditStore.UpdateStatus); this package
// is the thin, storage-agnostic vocabulary pkg/automation calls through.
package audit

import (
	"context"
	"time"

	"github.com/opx/controlplane/internal/identity"
	"github.com/opx/controlplane/internal/store"
	"github.com/opx/controlplane/pkg/domain"
)

// Version is the audit schema version stamped onto every record.
const Version = "automation-audit-v1.0.0"

// auditTimestampLayout is the ISO 8601 basic form (no ':' or '-'), so the
// formatted startTime never contains the colon digest separator.
const auditTimestampLayout = "20060102T150405.000Z"

// ComputeAuditID is an Open Question resolution: spec.md §4.8 writes
// `digest(operationType | startTime | version)` using "|" as prose
// shorthand for "joined with", not the literal reserved pipe separator —
// §4.1 reserves pipe exclusively for incident identity
// (service | evidenceId). Every other identity rule, this one included,
// joins with colon.
func ComputeAuditID(operationType domain.OperationType, startTime time.Time, version string) string {
	return identity.DigestColon(string(operationType), startTime.UTC().Format(auditTimestampLayout), version)
}

// Store is the persistence port a Recorder depends on.
type Store interface {
	store.Putter[domain.AutomationAudit]
	store.Getter[domain.AutomationAudit]
	UpdateStatus(ctx context.Context, auditID string, mutate func(current domain.AutomationAudit) (domain.AutomationAudit, error)) (domain.AutomationAudit, error)
}

// Recorder wraps a Store with the audit lifecycle's three legal
// transitions: start, succeed, fail.
type Recorder struct {
	Store Store
}

// NewRecorder builds a Recorder over s.
func NewRecorder(s Store) *Recorder {
	return &Recorder{Store: s}
}

// StartRunning computes auditId and writes the RUNNING record — this must
// happen before any substantive work (spec.md §4.8 step 6,
// "audit-before-work").
func (r *Recorder) StartRunning(
	ctx context.Context,
	operationType domain.OperationType,
	triggerType domain.TriggerType,
	startTime time.Time,
	triggeredBy domain.Authority,
	parameters map[string]interface{},
) (domain.AutomationAudit, error) {
	entity := domain.AutomationAudit{
		AuditID:       ComputeAuditID(operationType, startTime, Version),
		OperationType: operationType,
		TriggerType:   triggerType,
		StartTime:     startTime,
		Status:        domain.AuditRunning,
		Parameters:    parameters,
		TriggeredBy:   triggeredBy,
		Version:       Version,
	}
	stored, _, err := r.Store.Put(ctx, entity)
	return stored, err
}

// Succeed moves auditID from RUNNING to SUCCESS with the operation's results.
func (r *Recorder) Succeed(ctx context.Context, auditID string, endTime time.Time, results map[string]interface{}) (domain.AutomationAudit, error) {
	return r.Store.UpdateStatus(ctx, auditID, func(current domain.AutomationAudit) (domain.AutomationAudit, error) {
		current.Status = domain.AuditSuccess
		current.EndTime = &endTime
		current.Results = results
		return current, nil
	})
}

// SkipSuccess moves auditID from RUNNING to SUCCESS with
// results.skipped=reason — an intentional no-op, not a failure. This is the
// kill-switch skip path (spec.md §4.8 step 5); the calibration
// insufficient-data skip instead uses FailSkipped below.
func (r *Recorder) SkipSuccess(ctx context.Context, auditID string, endTime time.Time, reason string) (domain.AutomationAudit, error) {
	return r.Succeed(ctx, auditID, endTime, map[string]interface{}{"skipped": reason})
}

// Fail moves auditID from RUNNING to FAILED with an error message/stack.
func (r *Recorder) Fail(ctx context.Context, auditID string, endTime time.Time, errorMessage, errorStack string) (domain.AutomationAudit, error) {
	return r.Store.UpdateStatus(ctx, auditID, func(current domain.AutomationAudit) (domain.AutomationAudit, error) {
		current.Status = domain.AuditFailed
		current.EndTime = &endTime
		current.ErrorMessage = errorMessage
		current.ErrorStack = errorStack
		return current, nil
	})
}

// FailSkipped moves auditID from RUNNING to FAILED with
// results.skipped=reason — the calibration gate's INSUFFICIENT_DATA path
// (spec.md §4.8), which unlike the kill-switch skip is a failed run, not a
// successful no-op.
func (r *Recorder) FailSkipped(ctx context.Context, auditID string, endTime time.Time, reason string) (domain.AutomationAudit, error) {
	return r.Store.UpdateStatus(ctx, auditID, func(current domain.AutomationAudit) (domain.AutomationAudit, error) {
		current.Status = domain.AuditFailed
		current.EndTime = &endTime
		current.Results = map[string]interface{}{"skipped": reason}
		return current, nil
	})
}
