package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aws-examples-api/internal/observability/logger"
	"aws-examples-api/internal/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func TestIdentityMiddleware(t *testing.T) {
	key := newTestKey(t)
	f := newVerifyingExtractor(t, &key.PublicKey, "")

	token, err := NewTestToken(key, testKid, "", testClaims(time.Now().Add(time.Hour)))
	require.NoError(t, err)

	var got Result
	var subject string
	handler := IdentityMiddleware(f.extractor, "x-amzn-oidc-data")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
		subject = logger.GetSubjectFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	req.Header.Set("X-Amzn-Oidc-Data", PadSegments(token, 1))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, got.Verified)
	assert.Equal(t, "9a7b6c5d-user", got.Subject())
	assert.Equal(t, "9a7b6c5d-user", subject)
}

func TestIdentityMiddleware_NeverRejects(t *testing.T) {
	extractor, err := NewExtractor(logger.FromZap(zap.NewNop(), "test"), ExtractorOptions{})
	require.NoError(t, err)

	called := false
	handler := IdentityMiddleware(extractor, "x-amzn-oidc-data")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, ReasonMalformedToken, FromContext(r.Context()).Reason)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	req.Header.Set("x-amzn-oidc-data", "garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIdentityMiddleware_LabelsRequestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := telemetry.NewMetrics(mp.Meter(telemetry.MeterName))
	require.NoError(t, err)

	extractor, err := NewExtractor(logger.FromZap(zap.NewNop(), "test"), ExtractorOptions{})
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	handler := telemetry.MetricsMiddleware(metrics)(IdentityMiddleware(extractor, "x-amzn-oidc-data")(ok))

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	req.Header.Set("x-amzn-oidc-data", "garbage")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/messages", nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	byIdentity := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_requests_total" {
				continue
			}
			for _, p := range m.Data.(metricdata.Sum[int64]).DataPoints {
				v, _ := p.Attributes.Value("identity")
				byIdentity[v.AsString()] += p.Value
			}
		}
	}

	assert.Equal(t, map[string]int64{
		string(OutcomeRejected):  1,
		string(OutcomeAnonymous): 1,
	}, byIdentity)
}

func TestFromContext_Default(t *testing.T) {
	result := FromContext(context.Background())

	assert.NotNil(t, result.Claims)
	assert.True(t, result.Anonymous())
	assert.Equal(t, OutcomeAnonymous, result.Outcome())
}

func TestSetResultForTesting(t *testing.T) {
	ctx := SetResultForTesting(context.Background(), Result{Claims: Claims{"sub": "s"}, Verified: true})

	assert.Equal(t, "s", FromContext(ctx).Subject())
}
