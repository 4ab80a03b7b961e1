// Package middleware provides the HTTP-layer cross-cutting concerns
// internal/api's router installs: principal extraction chief among them.
package middleware

import (
	"context"
	"net/http"

	"github.com/opx/controlplane/pkg/domain"
)

type principalContextKey struct{}

// PrincipalFromContext resolves the Authority an upstream extractor
// middleware attached to the request context. spec.md §6: "the principal
// is derived from request context (userArn | caller | accountId; 401 if
// absent)" — resolving real IAM-signed request identity is explicitly out
// of scope (spec.md §1), so this is the interface a real extractor would
// satisfy, with HeaderPrincipalExtractor below standing in for local/dev use.
func PrincipalFromContext(ctx context.Context) (domain.Authority, bool) {
	a, ok := ctx.Value(principalContextKey{}).(domain.Authority)
	return a, ok
}

// WithPrincipal returns a context carrying authority, for an extractor to
// call before passing the request on.
func WithPrincipal(ctx context.Context, authority domain.Authority) context.Context {
	return context.WithValue(ctx, principalContextKey{}, authority)
}

// HeaderPrincipalExtractor is the local/dev principal extractor: it trusts
// the X-Opx-Principal/X-Opx-Authority headers verbatim. A real deployment
// would replace this with IAM-signed-request identity resolution; this
// adapter exists only so the rest of the HTTP layer has something concrete
// to depend on while that integration remains out of scope.
func HeaderPrincipalExtractor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := r.Header.Get("X-Opx-Principal")
		if principal == "" {
			next.ServeHTTP(w, r)
			return
		}

		authorityType := domain.AuthorityHumanOperator
		switch r.Header.Get("X-Opx-Authority") {
		case "AUTO_ENGINE":
			authorityType = domain.AuthorityAutoEngine
		case "ON_CALL_SRE":
			authorityType = domain.AuthorityOnCallSRE
		case "EMERGENCY_OVERRIDE":
			authorityType = domain.AuthorityEmergencyOverride
		}

		ctx := WithPrincipal(r.Context(), domain.Authority{Type: authorityType, Principal: principal})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
