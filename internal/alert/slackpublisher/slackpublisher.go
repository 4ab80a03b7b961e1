// Package slackpublisher implements pkg/alert.Publisher over a Slack
// incoming webhook — the concrete notification sink kubernaut's own
// pkg/notification/delivery package exercises per-channel (its
// delivery.Service interface, grounded on delivery/file_test.go, has the
// same one-method "Deliver/Publish" shape this package follows).
package slackpublisher

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/opx/controlplane/pkg/domain"
)

// Publisher posts an Alert's fields as a single Slack message via an
// incoming webhook URL.
type Publisher struct {
	WebhookURL string
}

// New builds a Publisher over a Slack incoming webhook URL.
func New(webhookURL string) *Publisher {
	return &Publisher{WebhookURL: webhookURL}
}

// Publish posts alert to the configured webhook.
func (p *Publisher) Publish(ctx context.Context, alert domain.Alert) error {
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf(
			"[%s] %s (operationType=%s triggerType=%s auditId=%s dedup=%s)",
			alert.AlertType, alert.Message, alert.OperationType, alert.TriggerType, alert.AuditID, alert.DeduplicationID,
		),
	}
	return slack.PostWebhookContext(ctx, p.WebhookURL, msg)
}
