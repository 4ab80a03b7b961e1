// Package httpserver wraps net/http.Server with the signal-driven graceful
// shutdown every long-running opx process needs. No cmd/*/main.go survived
// in the retrieved reference set for this concern (only cmd/*-service
// _test.go files remain, none constructing an http.Server directly), so
// this follows the general idiomatic Go shape instead of a concrete
// teacher file: listen, wait for SIGINT/SIGTERM or ctx cancellation, drain
// in-flight requests within a bounded deadline.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/opx/controlplane/pkg/shared/logging"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests to
// finish once shutdown begins.
const ShutdownTimeout = 15 * time.Second

// Run starts srv and blocks until ctx is cancelled, then drains
// in-flight requests and returns. A bind/listen error returns immediately.
func Run(ctx context.Context, srv *http.Server, logger logr.Logger) error {
	fields := logging.NewFields().Component("httpserver")

	errCh := make(chan error, 1)
	go func() {
		logging.Log(logger, 0, "listening", fields.Custom("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Log(logger, 0, "shutting down", fields)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
