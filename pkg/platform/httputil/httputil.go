// Package httputil centralizes JSON response writing and domain error
// translation so every handler returns the same envelope shape.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "github.com/cerberus100/Telehealthcrm-sub001/pkg/domain-errors"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/platform/privacy"
)

// ErrorResponse is the machine-readable error envelope returned to callers.
// Description is omitted for internal errors so infrastructure details never
// leak, and is redacted before serialization so PHI never leaks.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON serializes v with the given status. Encoding failures are
// unrecoverable at this point (headers already sent) and are ignored.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into an HTTP response.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code)}
	if includeDescription(code) {
		resp.ErrorDescription = privacy.RedactString(dErrors.MessageOf(err), privacy.ContextGeneral)
	}
	WriteJSON(w, StatusForCode(code), resp)
}

// StatusForCode maps a domain error code to its HTTP status.
func StatusForCode(code dErrors.Code) int {
	switch code {
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden, dErrors.CodeTenantInactive:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// includeDescription reports whether the error description may be surfaced.
// Internal and invariant errors carry infrastructure detail and are suppressed.
func includeDescription(code dErrors.Code) bool {
	switch code {
	case dErrors.CodeInternal, dErrors.CodeInvariantViolation:
		return false
	}
	return true
}
