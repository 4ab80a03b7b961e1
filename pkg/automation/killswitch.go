package automation

import (
	"context"
	"time"

	"github.com/opx/controlplane/pkg/audit"
	"github.com/opx/controlplane/pkg/domain"
	"github.com/opx/controlplane/pkg/shared/apierr"
)

// KillSwitchStore is the persistence port the kill switch controller and the
// scheduled-handler fail-open check both depend on; satisfied by
// internal/store/{memory,postgres}.KillSwitchStore.
type KillSwitchStore interface {
	Get(ctx context.Context) (domain.KillSwitch, bool, error)
	Set(ctx context.Context, value domain.KillSwitch) (domain.KillSwitch, error)
}

// KillSwitchController implements the admin-facing disable/enable
// operations (spec.md §4.8): both require EMERGENCY_OVERRIDE authority and
// are themselves recorded as automation audits.
type KillSwitchController struct {
	Store KillSwitchStore
	Audit *audit.Recorder
}

// NewKillSwitchController builds a KillSwitchController.
func NewKillSwitchController(store KillSwitchStore, recorder *audit.Recorder) *KillSwitchController {
	return &KillSwitchController{Store: store, Audit: recorder}
}

// Get reads the current kill switch, defaulting to inactive (enabled=true)
// when no document has ever been written.
func (c *KillSwitchController) Get(ctx context.Context) (domain.KillSwitch, error) {
	value, found, err := c.Store.Get(ctx)
	if err != nil {
		return domain.KillSwitch{}, err
	}
	if !found {
		return domain.KillSwitch{Enabled: true}, nil
	}
	return value, nil
}

// Disable suppresses every automated operation until Enable is called.
// Target latency is under 30s (spec.md §4.8) — this performs exactly one
// store write plus one audit write, no other I/O.
func (c *KillSwitchController) Disable(ctx context.Context, now time.Time, authority domain.Authority, reason string) (domain.KillSwitch, error) {
	return c.set(ctx, now, authority, domain.KillSwitch{
		Enabled:      false,
		DisabledAt:   &now,
		DisabledBy:   &authority,
		Reason:       reason,
		LastModified: now,
	}, domain.OperationKillSwitchDisable)
}

// Enable resumes automated operations.
func (c *KillSwitchController) Enable(ctx context.Context, now time.Time, authority domain.Authority) (domain.KillSwitch, error) {
	return c.set(ctx, now, authority, domain.KillSwitch{
		Enabled:      true,
		LastModified: now,
	}, domain.OperationKillSwitchEnable)
}

func (c *KillSwitchController) set(ctx context.Context, now time.Time, authority domain.Authority, value domain.KillSwitch, operationType domain.OperationType) (domain.KillSwitch, error) {
	if !authority.Satisfies(domain.AuthorityEmergencyOverride) {
		return domain.KillSwitch{}, apierr.New(apierr.CodeInsufficientAuthority, "kill switch changes require EMERGENCY_OVERRIDE authority")
	}

	stored, err := c.Store.Set(ctx, value)
	if err != nil {
		return domain.KillSwitch{}, err
	}

	if c.Audit != nil {
		record, auditErr := c.Audit.StartRunning(ctx, operationType, domain.TriggerManualEmergency, now, authority, map[string]interface{}{"reason": value.Reason})
		if auditErr == nil {
			_, _ = c.Audit.Succeed(ctx, record.AuditID, now, map[string]interface{}{"enabled": stored.Enabled})
		}
	}
	return stored, nil
}
