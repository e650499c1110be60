package client

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxRedirects = 3

// NewCustomHTTPClient creates an http.Client for outbound calls with the
// given overall timeout.
//
// Includes:
// - Request ID propagation via RequestIDTransport
// - Client spans via otelhttp (no-ops while telemetry is disabled)
// - Connection pooling via a clone of DefaultTransport
func NewCustomHTTPClient(timeout time.Duration) *http.Client {
	baseTransport := http.DefaultTransport.(*http.Transport).Clone()

	return &http.Client{
		Transport: otelhttp.NewTransport(NewRequestIDTransport(baseTransport)),
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// NewKeyEndpointClient creates the client used to download ALB signing keys.
// A zero timeout falls back to 5s; the key fetch sits on the request path.
func NewKeyEndpointClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return NewCustomHTTPClient(timeout)
}
