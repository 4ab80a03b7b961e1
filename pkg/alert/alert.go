// Package alert defines the automation alert vocabulary (spec.md §4.9):
// every publish carries {OperationType, TriggerType, AuditId, AlertType}
// plus a deduplication id, and emission is always best-effort — a
// Publisher's failure is logged and swallowed, never surfaced to the
// operation handler that triggered it.
package alert

import (
	"context"

	"github.com/opx/controlplane/pkg/domain"
)

// Publisher publishes an Alert to an external notification sink.
type Publisher interface {
	Publish(ctx context.Context, alert domain.Alert) error
}

// ComputeDeduplicationID builds the {operationType}-{auditId} key spec.md
// §4.9 fixes for every alert publish.
func ComputeDeduplicationID(operationType domain.OperationType, auditID string) string {
	return string(operationType) + "-" + auditID
}

// New builds an Alert with its deduplication id already computed.
func New(alertType domain.AlertType, operationType domain.OperationType, triggerType domain.TriggerType, auditID, message string) domain.Alert {
	return domain.Alert{
		AlertType:       alertType,
		OperationType:   operationType,
		TriggerType:     triggerType,
		AuditID:         auditID,
		Message:         message,
		DeduplicationID: ComputeDeduplicationID(operationType, auditID),
	}
}

// PublishBestEffort calls p.Publish and routes any error to onError instead
// of returning it — the best-effort contract spec.md §4.9 requires. A nil
// Publisher is a silent no-op, so callers needn't guard every call site
// with an "is alerting configured" check.
func PublishBestEffort(ctx context.Context, p Publisher, a domain.Alert, onError func(error)) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, a); err != nil && onError != nil {
		onError(err)
	}
}
