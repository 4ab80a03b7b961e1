// Package metrics exposes the Prometheus counters and histograms
// spec.md §4.9 names. Only raw counters and durations are recorded here —
// there is no derived-rate metric type in this package, so "no precomputed
// rates" is enforced structurally rather than by convention.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Allowed label dimensions: OperationType, TriggerType, Reason, SnapshotType,
// ErrorType. AgentId/Model are reserved for the analytics subsystem
// (out of scope here) and deliberately never appear as a label on any
// metric below. Per-incident or per-session dimensions are forbidden.
var (
	SuccessTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "automation_success_total",
		Help: "Automated operation invocations that completed successfully.",
	}, []string{"operation_type", "trigger_type"})

	FailureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "automation_failure_total",
		Help: "Automated operation invocations that terminated in error.",
	}, []string{"operation_type", "trigger_type", "error_type"})

	DurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "automation_duration_seconds",
		Help:    "Wall-clock duration of one automated operation invocation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation_type", "trigger_type"})

	RecordsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "automation_records_processed_total",
		Help: "Records (outcomes, summaries, calibrations) processed by an operation.",
	}, []string{"operation_type"})

	FailedServicesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "automation_failed_services_total",
		Help: "Services that could not be aggregated during an operation.",
	}, []string{"operation_type"})

	CalibrationSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "automation_calibration_skipped_total",
		Help: "Calibration runs skipped before doing substantive work.",
	}, []string{"reason"})

	DriftDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "automation_drift_detected_total",
		Help: "Confidence bands whose drift exceeded the advisory threshold.",
	}, []string{"operation_type"})

	KillSwitchBlockedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "automation_kill_switch_blocked_total",
		Help: "Operation invocations skipped because the kill switch was active.",
	}, []string{"operation_type"})

	SnapshotRecordCount = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "automation_snapshot_record_count",
		Help:    "Number of ids a snapshot bundled, by snapshot type.",
		Buckets: []float64{0, 1, 10, 100, 1000, 10000},
	}, []string{"snapshot_type"})

	InvocationCountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "automation_invocation_count_total",
		Help: "Every handler invocation attempt, regardless of outcome.",
	}, []string{"operation_type", "trigger_type"})
)

// RecordSuccess increments SuccessTotal for (operationType, triggerType).
func RecordSuccess(operationType, triggerType string) {
	SuccessTotal.WithLabelValues(operationType, triggerType).Inc()
}

// RecordFailure increments FailureTotal for (operationType, triggerType, errorType).
func RecordFailure(operationType, triggerType, errorType string) {
	FailureTotal.WithLabelValues(operationType, triggerType, errorType).Inc()
}

// RecordDuration observes d against DurationSeconds for (operationType, triggerType).
func RecordDuration(operationType, triggerType string, d time.Duration) {
	DurationSeconds.WithLabelValues(operationType, triggerType).Observe(d.Seconds())
}

// RecordRecordsProcessed adds n to RecordsProcessedTotal for operationType.
func RecordRecordsProcessed(operationType string, n int) {
	RecordsProcessedTotal.WithLabelValues(operationType).Add(float64(n))
}

// RecordFailedServices adds n to FailedServicesTotal for operationType.
func RecordFailedServices(operationType string, n int) {
	FailedServicesTotal.WithLabelValues(operationType).Add(float64(n))
}

// RecordCalibrationSkipped increments CalibrationSkippedTotal for reason.
func RecordCalibrationSkipped(reason string) {
	CalibrationSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordDriftDetected increments DriftDetectedTotal for operationType.
func RecordDriftDetected(operationType string) {
	DriftDetectedTotal.WithLabelValues(operationType).Inc()
}

// RecordKillSwitchBlocked increments KillSwitchBlockedTotal for operationType.
func RecordKillSwitchBlocked(operationType string) {
	KillSwitchBlockedTotal.WithLabelValues(operationType).Inc()
}

// RecordSnapshotRecordCount observes n against SnapshotRecordCount for snapshotType.
func RecordSnapshotRecordCount(snapshotType string, n int) {
	SnapshotRecordCount.WithLabelValues(snapshotType).Observe(float64(n))
}

// RecordInvocationCount increments InvocationCountTotal for (operationType, triggerType).
func RecordInvocationCount(operationType, triggerType string) {
	InvocationCountTotal.WithLabelValues(operationType, triggerType).Inc()
}

// Timer measures elapsed wall-clock time from construction and records it
// against DurationSeconds on Stop.
type Timer struct {
	start time.Time
}

// NewTimer starts a Timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the time since the Timer was started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Stop records the elapsed duration for (operationType, triggerType).
func (t *Timer) Stop(operationType, triggerType string) time.Duration {
	elapsed := t.Elapsed()
	RecordDuration(operationType, triggerType, elapsed)
	return elapsed
}
