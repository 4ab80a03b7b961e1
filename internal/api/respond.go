package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/opx/controlplane/pkg/shared/apierr"
)

// errorBody is the {error, message, details?} shape spec.md §6 fixes for
// every non-2xx response.
type errorBody struct {
	Error   apierr.Code            `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError translates err into the fixed HTTP status + error body shape.
// Any error that isn't already a *apierr.CodedError is reported as
// INTERNAL_ERROR via apierr.AsCoded.
func writeError(w http.ResponseWriter, err error) {
	coded := apierr.AsCoded(err)
	if coded.Code == apierr.CodeRateLimitExceeded {
		if retryAfter, ok := coded.Details["retryAfterSeconds"].(float64); ok {
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter))
		}
	}
	writeJSON(w, apierr.HTTPStatus(coded.Code), errorBody{Error: coded.Code, Message: coded.Message, Details: coded.Details})
}
