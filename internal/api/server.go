// Package api implements the HTTP surface spec.md §6 describes: automation
// triggers, kill-switch admin, and incident lifecycle transitions, routed
// with go-chi/chi and validated with go-playground/validator.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/opx/controlplane/internal/api/middleware"
	"github.com/opx/controlplane/pkg/domain"
	"github.com/opx/controlplane/pkg/incident"
	"github.com/opx/controlplane/pkg/shared/apierr"
)

var validate = validator.New()

// Server bundles every HTTP handler's dependencies. It has no behavior of
// its own beyond what NewRouter wires into a chi.Mux.
type Server struct {
	Deps      AutomationDeps
	Incidents *incident.Service
	Lister    IncidentLister
}

// decode parses r's JSON body into dst, rejecting unknown fields (spec.md
// §6's strict-schema validation) and running struct-tag validation. It
// writes the error response itself on failure, returning false so the
// caller can bail out with a single `if !s.decode(...) { return }`.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, apierr.New(apierr.CodeValidationError, "malformed request body: "+err.Error()))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, apierr.New(apierr.CodeValidationError, err.Error()))
		return false
	}
	return true
}

// principalFromRequest resolves the caller's principal string, if any
// principal-extracting middleware ran.
func principalFromRequest(r *http.Request) (string, bool) {
	authority, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return "", false
	}
	return authority.Principal, true
}

// requireAuthority resolves the caller's Authority, writing a 401 response
// and returning ok=false if no principal-extracting middleware populated
// the request context.
func (s *Server) requireAuthority(w http.ResponseWriter, r *http.Request) (domain.Authority, bool) {
	authority, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierr.New(apierr.CodeUnauthorized, "no principal resolved for this request"))
		return domain.Authority{}, false
	}
	return authority, true
}
