package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewDynamoDB creates a DynamoDB client for region. endpoint overrides the
// regional endpoint (DynamoDB Local, LocalStack) and may be empty.
// Credentials come from the default chain: env, shared config, then the
// instance or task role.
func NewDynamoDB(region, endpoint string) (*dynamodb.DynamoDB, error) {
	// The client keeps a nil Transport until the session is built so the SDK
	// can install AWS_CA_BUNDLE, which it only supports on *http.Transport.
	cfg := aws.NewConfig().
		WithRegion(region).
		WithMaxRetries(3).
		WithHTTPClient(&http.Client{Timeout: 10 * time.Second})
	if endpoint != "" {
		cfg = cfg.WithEndpoint(endpoint)
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}

	httpClient := sess.Config.HTTPClient
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	httpClient.Transport = otelhttp.NewTransport(base)

	return dynamodb.New(sess), nil
}

// Pinger is satisfied by repo.MessageRepository
type Pinger interface {
	Ping(ctx context.Context) error
}

// WaitForTable pings until the table answers, with exponential backoff.
// It returns the last error once retries are exhausted.
func WaitForTable(ctx context.Context, p Pinger, maxRetries int) error {
	retryDelay := 1 * time.Second

	var err error
	for i := 0; i < maxRetries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = p.Ping(pingCtx)
		cancel()

		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
		}
	}

	return fmt.Errorf("table not reachable after %d attempts: %w", maxRetries, err)
}
