package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// IdentityNone labels requests on routes that never read the forwarded identity
const IdentityNone = "none"

type labelsKey struct{}

// requestLabels is shared by pointer so handlers deeper in the chain can
// label the request after the outer middleware has started it
type requestLabels struct {
	identity string
}

// RecordIdentity labels the current request and span with the forwarded
// identity outcome
func RecordIdentity(ctx context.Context, outcome string) {
	if labels, ok := ctx.Value(labelsKey{}).(*requestLabels); ok {
		labels.identity = outcome
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("identity.outcome", outcome))
}

// routePattern returns the matched chi pattern, or the raw path when no route matched
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}

// OTelMiddleware wraps the otelhttp handler. Spans are named and tagged with
// the chi route pattern so /api/messages stays one series.
func OTelMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		tagged := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			// the pattern is only known once chi has routed
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				span := trace.SpanFromContext(r.Context())
				span.SetName(r.Method + " " + rctx.RoutePattern())
				span.SetAttributes(semconv.HTTPRoute(rctx.RoutePattern()))
			}
		})
		return otelhttp.NewHandler(tagged, serviceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + routePattern(r)
			}),
		)
	}
}

// MetricsMiddleware records RED metrics labelled by method, route, status and
// identity outcome
func MetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			labels := &requestLabels{identity: IdentityNone}
			r = r.WithContext(context.WithValue(r.Context(), labelsKey{}, labels))

			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			// chi fills the pattern while routing, so read it afterwards
			attrs := metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", routePattern(r)),
				attribute.Int("status", ww.statusCode),
				attribute.String("identity", labels.identity),
			)

			metrics.RequestsTotal.Add(r.Context(), 1, attrs)
			metrics.RequestDuration.Record(r.Context(), time.Since(start).Seconds(), attrs)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
