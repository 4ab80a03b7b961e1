// Command opx-controlplane is the automation and lifecycle control plane's
// HTTP entrypoint: it loads Settings, wires the storage backend (in-memory
// for local/dev, Postgres when DATABASE_URL is set), assembles the
// automation/incident services, and serves internal/api's router until an
// interrupt or terminate signal asks it to drain and exit. No cmd/*/main.go
// survived in the retrieved reference set to imitate directly (see
// internal/httpserver's doc comment); this wiring instead follows the
// constructor shapes pkg/automation, pkg/incident and pkg/learning/* already
// fix, the same way internal/api/router_test.go wires them for tests.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-logr/logr"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/lib/pq"

	"github.com/opx/controlplane/internal/alert/slackpublisher"
	"github.com/opx/controlplane/internal/alert/snsstub"
	"github.com/opx/controlplane/internal/api"
	"github.com/opx/controlplane/internal/config"
	"github.com/opx/controlplane/internal/dispatch/inproc"
	"github.com/opx/controlplane/internal/httpserver"
	"github.com/opx/controlplane/internal/store"
	"github.com/opx/controlplane/internal/store/memory"
	"github.com/opx/controlplane/internal/store/postgres"
	"github.com/opx/controlplane/internal/store/postgres/migrations"
	"github.com/opx/controlplane/pkg/alert"
	"github.com/opx/controlplane/pkg/audit"
	"github.com/opx/controlplane/pkg/automation"
	"github.com/opx/controlplane/pkg/domain"
	"github.com/opx/controlplane/pkg/incident"
	"github.com/opx/controlplane/pkg/learning/calibration"
	"github.com/opx/controlplane/pkg/learning/patterns"
	"github.com/opx/controlplane/pkg/learning/snapshot"
	"github.com/opx/controlplane/pkg/shared/logging"
)

// incidentStore is the narrow shape pkg/incident.Service depends on: create,
// read, and the optimistic-concurrency FSM update path.
type incidentStore interface {
	store.Putter[domain.Incident]
	store.Getter[domain.Incident]
	store.IncidentUpdater[domain.Incident]
}

// backend bundles every persistence port the process wires, independent of
// which concrete adapter (memory or postgres) is behind it.
type backend struct {
	auditStore   audit.Store
	killSwitch   automation.KillSwitchStore
	rateLimit    automation.RateLimitStore
	outcomes     store.Store[domain.IncidentOutcome, domain.ListFilters]
	summaries    store.Store[domain.ResolutionSummary, domain.ListFilters]
	calibrations store.Store[domain.ConfidenceCalibration, domain.ListFilters]
	snapshots    store.Putter[domain.LearningSnapshot]
	incidents    incidentStore
	events       store.Putter[domain.IncidentEvent]
	lister       api.IncidentLister
}

func main() {
	settings := config.Load()

	logger, flush, err := newLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer flush()

	fields := logging.NewFields().Component("opx-controlplane")

	b, closeBackend, err := wireBackend(settings)
	if err != nil {
		logging.LogError(logger, err, "failed to wire storage backend", fields)
		os.Exit(1)
	}
	defer closeBackend()

	recorder := audit.NewRecorder(b.auditStore)
	rateLimiter := automation.NewRateLimiter(b.rateLimit)
	killSwitch := automation.NewKillSwitchController(b.killSwitch, recorder)
	publisher := wireAlertPublisher(settings)

	newHandler := func(op domain.OperationType) *automation.Handler {
		return automation.NewHandler(op, b.killSwitch, recorder, publisher, logger)
	}

	deps := api.AutomationDeps{
		PatternExtraction: newHandler(domain.OperationPatternExtraction),
		Extractor:         patterns.NewExtractor(b.outcomes, b.summaries),

		Calibration: newHandler(domain.OperationCalibration),
		Calibrator:  calibration.NewCalibrator(b.outcomes, b.incidents, b.calibrations),
		Outcomes:    b.outcomes,

		Snapshot:  newHandler(domain.OperationSnapshot),
		Snapshots: snapshot.NewService(b.outcomes, b.summaries, b.calibrations, b.snapshots),

		RateLimiter: rateLimiter,
		Dispatcher:  inproc.NewPool(dispatchConcurrency()),
		KillSwitch:  killSwitch,
	}

	incidentSvc := incident.NewService(b.incidents, b.events, nil)

	router := api.NewRouter(deps, incidentSvc, b.lister)
	mountOperational(router)

	tunablesWatcher := wireTunablesWatcher(logger, fields)
	if tunablesWatcher != nil {
		defer func() { _ = tunablesWatcher.Stop() }()
	}

	addr := ":" + getenvDefault("PORT", "8080")
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := httpserver.Run(ctx, srv, logger); err != nil {
		logging.LogError(logger, err, "server exited with error", fields)
		os.Exit(1)
	}
	logging.Log(logger, 0, "shutdown complete", fields)
}

// newLogger picks the production (JSON) or development (console) zap
// encoding based on OPX_ENV, per pkg/shared/logging.NewDevelopment's own
// doc comment.
func newLogger() (logr.Logger, func(), error) {
	if os.Getenv("OPX_ENV") == "development" {
		return logging.NewDevelopment("opx-controlplane")
	}
	return logging.NewProduction("opx-controlplane")
}

// mountOperational adds the health and metrics endpoints the HTTP API
// surface itself doesn't own — kept separate from internal/api.NewRouter so
// that package stays scoped to spec.md §6's documented automation/incident
// surface.
func mountOperational(r *chi.Mux) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
}

// wireTunablesWatcher starts the fsnotify-backed rate-limit hot-reloader
// when TUNABLES_FILE names an existing path; returns nil (no-op) otherwise,
// since a local/dev run has no reason to require one.
func wireTunablesWatcher(logger logr.Logger, fields logging.Fields) *config.Watcher {
	path := os.Getenv("TUNABLES_FILE")
	if path == "" {
		return nil
	}
	w, err := config.NewWatcher(path, logger)
	if err != nil {
		logging.LogError(logger, err, "failed to load tunables file, continuing with package defaults", fields)
		return nil
	}
	if err := w.Start(); err != nil {
		logging.LogError(logger, err, "failed to start tunables watcher", fields)
	}
	return w
}

func dispatchConcurrency() int {
	return 16
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func wireAlertPublisher(settings config.Settings) alert.Publisher {
	if webhook := os.Getenv("SLACK_WEBHOOK_URL"); webhook != "" {
		return slackpublisher.New(webhook)
	}
	if settings.AlertTopicARN != "" {
		return snsstub.New(settings.AlertTopicARN)
	}
	return nil
}

func wireBackend(settings config.Settings) (backend, func(), error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return wireMemoryBackend(), func() {}, nil
	}
	return wirePostgresBackend(dsn)
}

func wireMemoryBackend() backend {
	auditStore := memory.NewAuditStore()
	killSwitchStore := memory.NewKillSwitchStore()
	rateLimitStore := memory.NewRateLimitStore()
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

	return backend{
		auditStore:   auditStore,
		killSwitch:   killSwitchStore,
		rateLimit:    rateLimitStore,
		outcomes:     outcomes,
		summaries:    summaries,
		calibrations: calibrations,
		snapshots:    snapshots,
		incidents:    incidents,
		events:       events,
		lister:       api.MemoryIncidentLister{Store: incidents},
	}
}

func wirePostgresBackend(dsn string) (backend, func(), error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return backend{}, func() {}, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.Up(db.DB); err != nil {
		_ = db.Close()
		return backend{}, func() {}, fmt.Errorf("apply migrations: %w", err)
	}

	incidents := postgres.NewIncidentStore(db)

	b := backend{
		auditStore:   postgres.NewAuditStore(db),
		killSwitch:   postgres.NewKillSwitchStore(db),
		rateLimit:    postgres.NewRateLimitStore(db),
		outcomes:     postgres.NewOutcomeStore(db),
		summaries:    postgres.NewSummaryStore(db),
		calibrations: postgres.NewCalibrationStore(db),
		snapshots:    postgres.NewSnapshotStore(db),
		incidents:    incidents,
		events:       postgres.NewEventStore(db),
		lister:       api.PostgresIncidentLister{Store: incidents},
	}
	return b, func() { _ = db.Close() }, nil
}
