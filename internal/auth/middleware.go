package auth

import (
	"context"
	"net/http"

	"aws-examples-api/internal/observability/logger"
	"aws-examples-api/internal/telemetry"
)

type contextKey string

const identityContextKey contextKey = "forwarded_identity"

// IdentityMiddleware extracts the forwarded identity from headerName and
// stores the Result in the request context. Requests are never rejected.
func IdentityMiddleware(extractor *Extractor, headerName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := extractor.Extract(r.Context(), r.Header.Get(headerName))
			telemetry.RecordIdentity(r.Context(), string(result.Outcome()))

			ctx := context.WithValue(r.Context(), identityContextKey, result)
			if sub := result.Subject(); sub != "" {
				ctx = logger.SetSubjectInContext(ctx, sub)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the Result stored by IdentityMiddleware, or an
// anonymous Result when the middleware did not run
func FromContext(ctx context.Context) Result {
	if result, ok := ctx.Value(identityContextKey).(Result); ok {
		return result
	}
	return anonymousResult(ReasonMissingHeader, "")
}
