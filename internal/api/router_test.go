package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/opx/controlplane/internal/dispatch/inproc"
	"github.com/opx/controlplane/internal/store/memory"
	"github.com/opx/controlplane/pkg/audit"
	"github.com/opx/controlplane/pkg/automation"
	"github.com/opx/controlplane/pkg/domain"
	"github.com/opx/controlplane/pkg/incident"
	"github.com/opx/controlplane/pkg/learning/calibration"
	"github.com/opx/controlplane/pkg/learning/patterns"
	"github.com/opx/controlplane/pkg/learning/snapshot"
)

type testServer struct {
	router     http.Handler
	killSwitch *automation.KillSwitchController
	dispatcher *inproc.TrackedPool
	auditStore *memory.AuditStore
	incidents  *memory.IncidentStore
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	auditStore := memory.NewAuditStore()
	recorder := audit.NewRecorder(auditStore)
	killSwitchStore := memory.NewKillSwitchStore()

	outcomes := memory.NewOutcomeStore()
	summaries := memory.NewSummaryStore()
	calibrations := memory.NewCalibrationStore()
	snapshots := memory.NewSnapshotStore()
	incidents := memory.NewIncidentStore()
	events := memory.New(
		func(e domain.IncidentEvent) string { return e.EventID },
		func(e domain.IncidentEvent) time.Time { return e.CreatedAt },
		func(e domain.IncidentEvent, indexKey string, _ domain.ListFilters) bool { return e.IncidentID == indexKey },
	)

	newHandler := func(op domain.OperationType) *automation.Handler {
		h := automation.NewHandler(op, killSwitchStore, recorder, nil, logr.Discard())
		h.RetryConfig.InitialDelay = time.Millisecond
		h.RetryConfig.MaxDelay = 5 * time.Millisecond
		return h
	}

	dispatcher := inproc.NewTrackedPool(4)

	deps := AutomationDeps{
		PatternExtraction: newHandler(domain.OperationPatternExtraction),
		Extractor:         patterns.NewExtractor(outcomes, summaries),

		Calibration: newHandler(domain.OperationCalibration),
		Calibrator:  calibration.NewCalibrator(outcomes, incidents, calibrations),
		Outcomes:    outcomes,

		Snapshot:  newHandler(domain.OperationSnapshot),
		Snapshots: snapshot.NewService(outcomes, summaries, calibrations, snapshots),

		RateLimiter: automation.NewRateLimiter(memory.NewRateLimitStore()),
		Dispatcher:  dispatcher,
		KillSwitch:  automation.NewKillSwitchController(killSwitchStore, recorder),
	}

	incidentSvc := incident.NewService(incidents, events, nil)
	lister := MemoryIncidentLister{Store: incidents}

	return testServer{
		router:     NewRouter(deps, incidentSvc, lister),
		killSwitch: deps.KillSwitch,
		dispatcher: dispatcher,
		auditStore: auditStore,
		incidents:  incidents,
	}
}

func doRequest(t *testing.T, ts testServer, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func TestKillSwitchStatus_DefaultsToInactive(t *testing.T) {
	ts := newTestServer(t)
	rec := doRequest(t, ts, http.MethodGet, "/automation/kill-switch/status", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["active"] != false {
		t.Fatalf("expected active=false, got %v", body)
	}
}

func TestKillSwitchDisable_RequiresEmergencyOverride(t *testing.T) {
	ts := newTestServer(t)
	rec := doRequest(t, ts, http.MethodPost, "/automation/kill-switch/disable",
		map[string]string{"reason": "ongoing incident"},
		map[string]string{"X-Opx-Principal": "alice", "X-Opx-Authority": "HUMAN_OPERATOR"},
	)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestKillSwitchDisableThenEnable_Roundtrip(t *testing.T) {
	ts := newTestServer(t)
	headers := map[string]string{"X-Opx-Principal": "alice", "X-Opx-Authority": "EMERGENCY_OVERRIDE"}

	rec := doRequest(t, ts, http.MethodPost, "/automation/kill-switch/disable", map[string]string{"reason": "ongoing incident"}, headers)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, ts, http.MethodGet, "/automation/kill-switch/status", nil, nil)
	var status map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &status)
	if status["active"] != true {
		t.Fatalf("expected active=true after disable, got %v", status)
	}

	rec = doRequest(t, ts, http.MethodPost, "/automation/kill-switch/enable", nil, headers)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestKillSwitchDisable_RejectsShortReason(t *testing.T) {
	ts := newTestServer(t)
	headers := map[string]string{"X-Opx-Principal": "alice", "X-Opx-Authority": "EMERGENCY_OVERRIDE"}
	rec := doRequest(t, ts, http.MethodPost, "/automation/kill-switch/disable", map[string]string{"reason": ""}, headers)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestExtractPatterns_AcceptsAndDispatches(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]interface{}{
		"service":   "checkout",
		"startDate": "2026-07-01T00:00:00Z",
		"endDate":   "2026-08-01T00:00:00Z",
	}
	rec := doRequest(t, ts, http.MethodPost, "/automation/extract-patterns", body, map[string]string{"X-Opx-Principal": "alice"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["auditId"] == "" || resp["auditId"] == nil {
		t.Fatalf("expected an auditId in the response, got %v", resp)
	}
	if resp["status"] != "ACCEPTED" {
		t.Fatalf("expected status=ACCEPTED, got %v", resp)
	}

	if err := ts.dispatcher.Wait(); err != nil {
		t.Fatalf("dispatched work returned an error: %v", err)
	}
}

func TestExtractPatterns_RejectsMissingPrincipal(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]interface{}{"startDate": "2026-07-01T00:00:00Z", "endDate": "2026-08-01T00:00:00Z"}
	rec := doRequest(t, ts, http.MethodPost, "/automation/extract-patterns", body, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestExtractPatterns_RejectsInvertedWindow(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]interface{}{
		"startDate": "2026-08-01T00:00:00Z",
		"endDate":   "2026-07-01T00:00:00Z",
	}
	rec := doRequest(t, ts, http.MethodPost, "/automation/extract-patterns", body, map[string]string{"X-Opx-Principal": "alice"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func seedPendingIncident(t *testing.T, ts testServer, id string) {
	t.Helper()
	incident := domain.Incident{IncidentID: id, Service: "checkout", Status: domain.StatusPending, IncidentVersion: 1}
	if _, _, err := ts.incidents.Put(context.Background(), incident); err != nil {
		t.Fatal(err)
	}
}

func TestIncidentOpen_TransitionsWithHumanOperator(t *testing.T) {
	ts := newTestServer(t)
	seedPendingIncident(t, ts, "inc-1")

	rec := doRequest(t, ts, http.MethodPost, "/incidents/inc-1/open", nil, map[string]string{"X-Opx-Principal": "alice", "X-Opx-Authority": "HUMAN_OPERATOR"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated domain.Incident
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatal(err)
	}
	if updated.Status != domain.StatusOpen {
		t.Fatalf("expected OPEN, got %s", updated.Status)
	}
}

func TestIncidentOpen_RejectsShortEmergencyJustification(t *testing.T) {
	ts := newTestServer(t)
	seedPendingIncident(t, ts, "inc-2")

	body := map[string]string{"justification": "too short"}
	rec := doRequest(t, ts, http.MethodPost, "/incidents/inc-2/open", body, map[string]string{"X-Opx-Principal": "alice", "X-Opx-Authority": "EMERGENCY_OVERRIDE"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListIncidents_FiltersByService(t *testing.T) {
	ts := newTestServer(t)
	seedPendingIncident(t, ts, "inc-3")

	rec := doRequest(t, ts, http.MethodGet, "/incidents?service=checkout", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var page domain.Page[domain.Incident]
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 incident, got %d", len(page.Items))
	}
}
