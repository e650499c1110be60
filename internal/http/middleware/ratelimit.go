package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"aws-examples-api/internal/http/httperr"
	"aws-examples-api/internal/observability/logger"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RateLimiter is satisfied by ratelimit.RedisRateLimiter
type RateLimiter interface {
	AllowRequest(ctx context.Context, clientKey string, limit int, window time.Duration) (bool, int, error)
}

const rateLimitWindow = time.Minute

// RateLimitMiddleware enforces a per-client request budget per minute.
// The limiter failing lets the request through.
func RateLimitMiddleware(limiter RateLimiter, limitPerMin int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logger.GetLogger(ctx)
			client := ClientIP(r)

			allowed, remaining, err := limiter.AllowRequest(ctx, client, limitPerMin, rateLimitWindow)
			if err != nil {
				log.Warn(ctx, "rate limit check failed, allowing request",
					logger.Module("http"),
					logger.Action("rate_limit"),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limitPerMin))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(rateLimitWindow).Unix(), 10))

			if !allowed {
				trace.SpanFromContext(ctx).AddEvent("rate_limit_exceeded")

				log.Warn(ctx, "rate limit exceeded",
					logger.Module("http"),
					logger.Action("rate_limit"),
					zap.String("client_ip", client),
					zap.Int("limit", limitPerMin),
				)

				w.Header().Set("Retry-After", strconv.Itoa(int(rateLimitWindow.Seconds())))
				httperr.TooManyRequests429(w, ctx, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the address the rate limit is keyed on. The ALB appends
// the peer it accepted the connection from as the last X-Forwarded-For
// entry; earlier entries come from the client and are ignored. Without the
// header it is the connection's remote host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		entries := strings.Split(xff, ",")
		for i := len(entries) - 1; i >= 0; i-- {
			if ip := strings.TrimSpace(entries[i]); ip != "" {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
