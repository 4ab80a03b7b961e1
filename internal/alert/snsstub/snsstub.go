// Package snsstub documents the swap-in point for a real AWS SNS-backed
// pkg/alert.Publisher. No AWS SDK client exists anywhere in this module's
// dependency set — none was present in the retrieval pack this module was
// built from — so this is a documented stub, not a fabricated client:
// wiring github.com/aws/aws-sdk-go-v2/service/sns here is future work.
package snsstub

import (
	"context"

	"github.com/opx/controlplane/pkg/domain"
)

// Publisher is a placeholder SNS-backed alert publisher. Publish always
// succeeds without sending anything. A real implementation would call
// sns.Client.Publish with alert.Message as the message body,
// alert.DeduplicationID as MessageDeduplicationId (for a FIFO topic), and
// {OperationType, TriggerType, AuditId, AlertType} as MessageAttributes —
// exactly the shape spec.md §4.9 requires of every alert publish.
type Publisher struct {
	TopicARN string
}

// New builds a Publisher targeting topicARN.
func New(topicARN string) *Publisher {
	return &Publisher{TopicARN: topicARN}
}

// Publish is a no-op; it exists so callers can wire snsstub.Publisher
// anywhere a pkg/alert.Publisher is expected before a real SNS client is
// available.
func (p *Publisher) Publish(ctx context.Context, alert domain.Alert) error {
	return nil
}
