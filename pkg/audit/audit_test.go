package audit

import (
	"context"
	"testing"
	"time"

	"github.com/opx/controlplane/internal/store"
	"github.com/opx/controlplane/internal/store/memory"
	"github.com/opx/controlplane/pkg/domain"
)

func TestStartRunning_IsIdempotentByAuditID(t *testing.T) {
	s := memory.NewAuditStore()
	r := NewRecorder(s)
	ctx := context.Background()
	startTime := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	first, err := r.StartRunning(ctx, domain.OperationCalibration, domain.TriggerScheduled, startTime, domain.SystemAuthority, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != domain.AuditRunning {
		t.Fatalf("expected RUNNING, got %s", first.Status)
	}

	second, err := r.StartRunning(ctx, domain.OperationCalibration, domain.TriggerScheduled, startTime, domain.SystemAuthority, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.AuditID != second.AuditID {
		t.Fatal("auditId must be stable for the same (operationType, startTime, version)")
	}
}

func TestSucceed_MovesRunningToSuccessExactlyOnce(t *testing.T) {
	s := memory.NewAuditStore()
	r := NewRecorder(s)
	ctx := context.Background()
	startTime := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	running, err := r.StartRunning(ctx, domain.OperationSnapshot, domain.TriggerScheduled, startTime, domain.SystemAuthority, nil)
	if err != nil {
		t.Fatal(err)
	}

	done, err := r.Succeed(ctx, running.AuditID, startTime.Add(time.Minute), map[string]interface{}{"recordCount": 3})
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != domain.AuditSuccess {
		t.Fatalf("expected SUCCESS, got %s", done.Status)
	}

	if _, err := r.Succeed(ctx, running.AuditID, startTime.Add(2*time.Minute), nil); err != store.ErrAlreadyTerminal {
		t.Fatalf("expected ErrAlreadyTerminal on second terminal transition, got %v", err)
	}
}

func TestFailSkipped_MarksFailedWithSkippedReason(t *testing.T) {
	s := memory.NewAuditStore()
	r := NewRecorder(s)
	ctx := context.Background()
	startTime := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	running, err := r.StartRunning(ctx, domain.OperationCalibration, domain.TriggerScheduled, startTime, domain.SystemAuthority, nil)
	if err != nil {
		t.Fatal(err)
	}

	done, err := r.FailSkipped(ctx, running.AuditID, startTime.Add(time.Second), domain.SkippedInsufficientData)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != domain.AuditFailed {
		t.Fatalf("expected FAILED, got %s", done.Status)
	}
	if done.Results["skipped"] != domain.SkippedInsufficientData {
		t.Fatalf("expected results.skipped=%s, got %v", domain.SkippedInsufficientData, done.Results["skipped"])
	}
}

func TestComputeAuditID_SensitiveToStartTime(t *testing.T) {
	startTime := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	a := ComputeAuditID(domain.OperationPatternExtraction, startTime, Version)
	b := ComputeAuditID(domain.OperationPatternExtraction, startTime.Add(time.Second), Version)
	if a == b {
		t.Fatal("changing startTime must change auditId")
	}
}
