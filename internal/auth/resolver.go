package auth

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"time"

	"aws-examples-api/internal/observability/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// KeyResolver resolves kids to ECDSA public keys, consulting cache before
// fetching. Concurrent misses for one kid may fetch more than once.
type KeyResolver struct {
	fetcher PEMFetcher
	cache   KeyCache
	ttl     time.Duration
	log     *logger.Logger
	lookups metric.Int64Counter
}

// NewKeyResolver creates a KeyResolver. cache may be nil, and a zero ttl
// disables caching; lookups may be nil when metrics are off.
func NewKeyResolver(fetcher PEMFetcher, cache KeyCache, ttl time.Duration, log *logger.Logger, lookups metric.Int64Counter) *KeyResolver {
	return &KeyResolver{
		fetcher: fetcher,
		cache:   cache,
		ttl:     ttl,
		log:     log,
		lookups: lookups,
	}
}

// PublicKey implements KeyProvider
func (r *KeyResolver) PublicKey(ctx context.Context, kid string) (*ecdsa.PublicKey, error) {
	if r.cachingEnabled() {
		pemText, ok, err := r.cache.Get(ctx, kid)
		switch {
		case err != nil:
			r.log.Warn(ctx, "public key cache read failed",
				logger.Module("auth"),
				logger.Action("resolve_key"),
				zap.String("kid", kid),
				zap.Error(err),
			)
		case ok:
			key, err := jwt.ParseECPublicKeyFromPEM([]byte(pemText))
			if err == nil {
				r.record(ctx, "cache")
				return key, nil
			}
			r.log.Warn(ctx, "cached public key unparsable, refetching",
				logger.Module("auth"),
				logger.Action("resolve_key"),
				zap.String("kid", kid),
				zap.Error(err),
			)
		}
	}

	pemText, err := r.fetcher.Fetch(ctx, kid)
	if err != nil {
		r.record(ctx, "fetch_error")
		return nil, err
	}

	key, err := jwt.ParseECPublicKeyFromPEM([]byte(pemText))
	if err != nil {
		r.record(ctx, "fetch_error")
		return nil, fmt.Errorf("failed to parse EC public key: %w", err)
	}
	r.record(ctx, "fetch")

	if r.cachingEnabled() {
		if err := r.cache.Set(ctx, kid, pemText, r.ttl); err != nil {
			r.log.Warn(ctx, "public key cache write failed",
				logger.Module("auth"),
				logger.Action("resolve_key"),
				zap.String("kid", kid),
				zap.Error(err),
			)
		}
	}

	return key, nil
}

func (r *KeyResolver) cachingEnabled() bool {
	return r.cache != nil && r.ttl > 0
}

func (r *KeyResolver) record(ctx context.Context, source string) {
	if r.lookups == nil {
		return
	}
	r.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}
