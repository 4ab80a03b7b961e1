package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/opx/controlplane/internal/store"
	"github.com/opx/controlplane/pkg/automation"
	"github.com/opx/controlplane/pkg/domain"
	"github.com/opx/controlplane/pkg/learning/calibration"
	"github.com/opx/controlplane/pkg/learning/patterns"
	"github.com/opx/controlplane/pkg/learning/snapshot"
	"github.com/opx/controlplane/pkg/shared/apierr"
)

// AutomationDeps is the set of collaborators the three scheduled-operation
// endpoints need: each pairs an automation.Handler with the orchestrator
// (pkg/automation.PatternExtraction/Calibration/Snapshot) and domain service
// it wraps, plus the rate limiter and dispatcher every manual trigger shares.
type AutomationDeps struct {
	PatternExtraction *automation.Handler
	Extractor         *patterns.Extractor

	Calibration *automation.Handler
	Calibrator  *calibration.Calibrator
	Outcomes    store.Lister[domain.IncidentOutcome, domain.ListFilters]

	Snapshot  *automation.Handler
	Snapshots *snapshot.Service

	RateLimiter *automation.RateLimiter
	Dispatcher  automation.Dispatcher
	KillSwitch  *automation.KillSwitchController
}

// triggerRequest is the body POST /automation/extract-patterns and
// POST /automation/calibrate share (spec.md §6): an explicit [startDate,
// endDate) window, never a Window()-derived calendar bucket — manual
// triggers always name their own bounds.
type triggerRequest struct {
	Service   string `json:"service"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
	Emergency bool   `json:"emergency"`
}

type snapshotRequest struct {
	SnapshotType domain.SnapshotType `json:"snapshotType" validate:"required"`
	StartDate    string              `json:"startDate" validate:"required"`
	EndDate      string              `json:"endDate" validate:"required"`
	Emergency    bool                `json:"emergency"`
}

func parseWindowDates(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, apierr.New(apierr.CodeValidationError, "startDate must be RFC3339")
	}
	end, err := time.Parse(time.RFC3339, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, apierr.New(apierr.CodeValidationError, "endDate must be RFC3339")
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, apierr.New(apierr.CodeValidationError, "endDate must be after startDate")
	}
	return start, end, nil
}

func (s *Server) triggerAccepted(w http.ResponseWriter, result automation.ManualTriggerResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.RateLimit.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.RateLimit.Limit-result.RateLimit.CurrentCount))
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"auditId": result.AuditID,
		"status":  result.Status,
	})
}

func (s *Server) handleExtractPatterns(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if !s.decode(w, r, &req) {
		return
	}
	start, end, err := parseWindowDates(req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, err)
		return
	}

	principal, _ := principalFromRequest(r)
	now := time.Now().UTC()
	result, err := s.Deps.PatternExtraction.TriggerManually(r.Context(), now, principal, req.Emergency, s.Deps.RateLimiter, s.Deps.Dispatcher,
		func(ctx context.Context, now time.Time, triggerType domain.TriggerType, authority domain.Authority) error {
			_, _, execErr := automation.PatternExtraction(ctx, s.Deps.PatternExtraction, s.Deps.Extractor, now, triggerType, authority, req.Service, start, end)
			return execErr
		},
	)
	if err != nil {
		writeError(w, err)
		return
	}
	s.triggerAccepted(w, result)
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if !s.decode(w, r, &req) {
		return
	}
	start, end, err := parseWindowDates(req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, err)
		return
	}

	principal, _ := principalFromRequest(r)
	now := time.Now().UTC()
	result, err := s.Deps.Calibration.TriggerManually(r.Context(), now, principal, req.Emergency, s.Deps.RateLimiter, s.Deps.Dispatcher,
		func(ctx context.Context, now time.Time, triggerType domain.TriggerType, authority domain.Authority) error {
			_, _, execErr := automation.Calibration(ctx, s.Deps.Calibration, s.Deps.Calibrator, s.Deps.Outcomes, now, triggerType, authority, start, end)
			return execErr
		},
	)
	if err != nil {
		writeError(w, err)
		return
	}
	s.triggerAccepted(w, result)
}

func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if !s.decode(w, r, &req) {
		return
	}
	start, end, err := parseWindowDates(req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, err)
		return
	}

	principal, _ := principalFromRequest(r)
	now := time.Now().UTC()
	result, err := s.Deps.Snapshot.TriggerManually(r.Context(), now, principal, req.Emergency, s.Deps.RateLimiter, s.Deps.Dispatcher,
		func(ctx context.Context, now time.Time, triggerType domain.TriggerType, authority domain.Authority) error {
			_, _, execErr := automation.Snapshot(ctx, s.Deps.Snapshot, s.Deps.Snapshots, now, triggerType, authority, req.SnapshotType, start, end)
			return execErr
		},
	)
	if err != nil {
		writeError(w, err)
		return
	}
	s.triggerAccepted(w, result)
}

type killSwitchDisableRequest struct {
	Reason string `json:"reason" validate:"required,min=1"`
}

func (s *Server) handleKillSwitchDisable(w http.ResponseWriter, r *http.Request) {
	var req killSwitchDisableRequest
	if !s.decode(w, r, &req) {
		return
	}
	authority, ok := s.requireAuthority(w, r)
	if !ok {
		return
	}
	ks, err := s.Deps.KillSwitch.Disable(r.Context(), time.Now().UTC(), authority, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, killSwitchStatusBody(ks))
}

func (s *Server) handleKillSwitchEnable(w http.ResponseWriter, r *http.Request) {
	authority, ok := s.requireAuthority(w, r)
	if !ok {
		return
	}
	ks, err := s.Deps.KillSwitch.Enable(r.Context(), time.Now().UTC(), authority)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, killSwitchStatusBody(ks))
}

func (s *Server) handleKillSwitchStatus(w http.ResponseWriter, r *http.Request) {
	ks, err := s.Deps.KillSwitch.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, killSwitchStatusBody(ks))
}

func killSwitchStatusBody(ks domain.KillSwitch) map[string]interface{} {
	return map[string]interface{}{
		"active":       ks.IsActive(),
		"enabled":      ks.Enabled,
		"disabledAt":   ks.DisabledAt,
		"disabledBy":   ks.DisabledBy,
		"reason":       ks.Reason,
		"lastModified": ks.LastModified,
	}
}
