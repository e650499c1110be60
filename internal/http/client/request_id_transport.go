package client

import (
	"net/http"

	"aws-examples-api/internal/observability/requestid"
)

// RequestIDTransport is an http.RoundTripper that propagates the request ID
// from context to outbound requests as X-Request-Id.
type RequestIDTransport struct {
	base http.RoundTripper
}

// NewRequestIDTransport creates a new RequestIDTransport wrapping the base transport.
// If base is nil, defaults to http.DefaultTransport.
func NewRequestIDTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RequestIDTransport{base: base}
}

// RoundTrip implements http.RoundTripper.
// An X-Request-Id already set by the caller is never overwritten.
func (t *RequestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(requestid.HeaderRequestID) != "" {
		return t.base.RoundTrip(req)
	}

	ctx := req.Context()
	reqID := requestid.GetRequestID(ctx)
	if reqID == "" {
		// background jobs (seed, warmup) have no request scope
		return t.base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request
	clonedReq := req.Clone(ctx)
	clonedReq.Header.Set(requestid.HeaderRequestID, reqID)

	return t.base.RoundTrip(clonedReq)
}
