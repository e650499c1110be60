package requestid

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type contextKey string

const requestIDContextKey contextKey = "request_id"

const (
	// HeaderRequestID is read from and echoed on every response.
	HeaderRequestID = "X-Request-Id"
	// HeaderAmznTraceID is added by the ALB and API Gateway in front of the service.
	HeaderAmznTraceID = "X-Amzn-Trace-Id"
)

// NewRequestID generates a time-ordered request ID: req_<unix millis>_<20 hex chars>
func NewRequestID() string {
	timestamp := time.Now().UnixMilli()

	randomBytes := make([]byte, 10)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Sprintf("req_%d", timestamp)
	}

	return fmt.Sprintf("req_%d_%s", timestamp, hex.EncodeToString(randomBytes))
}

// FromHeaders picks the inbound correlation ID. An explicit X-Request-Id wins,
// then the Root segment of X-Amzn-Trace-Id. Returns "" when neither is usable.
func FromHeaders(h http.Header) string {
	if id := strings.TrimSpace(h.Get(HeaderRequestID)); id != "" {
		return id
	}
	return amznTraceRoot(h.Get(HeaderAmznTraceID))
}

// amznTraceRoot extracts "Root=1-..." from "Root=1-67891233-abcdef012345678912345678;Parent=...;Sampled=1"
func amznTraceRoot(v string) string {
	for _, part := range strings.Split(v, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && key == "Root" && value != "" {
			return value
		}
	}
	return ""
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// SetRequestID stores request ID in context
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}
