// Package middleware assembles the request pipeline: request identity,
// client metadata, authentication, the role gate, and tenant resolution.
// Rate limiting lives with its module in internal/ratelimit/middleware.
package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cerberus100/Telehealthcrm-sub001/pkg/requestcontext"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns every request a correlation ID, honoring one supplied by
// the caller, and pins the request-scoped time so every stage of the
// pipeline sees the same "now".
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), id)
		ctx = requestcontext.WithRequestTime(ctx, time.Now())

		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
