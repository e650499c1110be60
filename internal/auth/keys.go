package auth

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
)

// PEMFetcher retrieves the PEM-encoded public key for a kid
type PEMFetcher interface {
	Fetch(ctx context.Context, kid string) (string, error)
}

// KeyProvider returns the verification key for a kid
type KeyProvider interface {
	PublicKey(ctx context.Context, kid string) (*ecdsa.PublicKey, error)
}

// KeyFetcher downloads ALB signing keys from
// https://public-keys.auth.elb.<region>.amazonaws.com/<kid>
type KeyFetcher struct {
	client   *resty.Client
	endpoint string
}

// NewKeyFetcher creates a fetcher on top of httpClient, which carries the
// timeout and transport (request id, tracing).
func NewKeyFetcher(httpClient *http.Client, endpoint string) *KeyFetcher {
	client := resty.NewWithClient(httpClient).
		SetHeader("Accept", "application/x-pem-file, text/plain")

	return &KeyFetcher{
		client:   client,
		endpoint: strings.TrimRight(endpoint, "/"),
	}
}

// Fetch returns the PEM body for kid
func (f *KeyFetcher) Fetch(ctx context.Context, kid string) (string, error) {
	keyURL := f.endpoint + "/" + url.PathEscape(kid)

	resp, err := f.client.R().SetContext(ctx).Get(keyURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch public key: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound || resp.StatusCode() == http.StatusForbidden:
		// the key bucket answers 403 for unknown objects
		return "", fmt.Errorf("kid %s: %w", kid, ErrKeyNotFound)
	case resp.IsError():
		return "", fmt.Errorf("unexpected status fetching public key: %d", resp.StatusCode())
	}

	body := strings.TrimSpace(resp.String())
	if body == "" {
		return "", fmt.Errorf("empty public key body for kid %s", kid)
	}
	return body, nil
}
