package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aws-examples-api/internal/auth"
	"aws-examples-api/internal/config"
	"aws-examples-api/internal/http/client"
	"aws-examples-api/internal/http/handler"
	"aws-examples-api/internal/lambdaapi"
	"aws-examples-api/internal/observability/logger"
	"aws-examples-api/internal/ratelimit"
	"aws-examples-api/internal/repo"
	"aws-examples-api/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKid    = "3c9a1f0e-5b7d-4e2a-8c6f-0d1e2f3a4b5c"
	testSigner = "arn:aws:elasticloadbalancing:us-east-1:123456789012:loadbalancer/app/examples/50dc6c495c0c9188"
)

// fakeTable answers GetItem from a single optional message and
// DescribeTable with err or ACTIVE
type fakeTable struct {
	dynamodbiface.DynamoDBAPI

	text string
	err  error
}

func (f *fakeTable) GetItemWithContext(_ aws.Context, in *dynamodb.GetItemInput, _ ...request.Option) (*dynamodb.GetItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.text == "" {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: map[string]*dynamodb.AttributeValue{
		"id":  in.Key["id"],
		"msg": {S: aws.String(f.text)},
	}}, nil
}

func (f *fakeTable) DescribeTableWithContext(_ aws.Context, in *dynamodb.DescribeTableInput, _ ...request.Option) (*dynamodb.DescribeTableOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.DescribeTableOutput{Table: &dynamodb.TableDescription{
		TableName:   in.TableName,
		TableStatus: aws.String(dynamodb.TableStatusActive),
	}}, nil
}

type routerFixture struct {
	router chi.Router
	key    *ecdsa.PrivateKey
	table  *fakeTable
}

type fixtureOption func(*config.Config, *RouterDeps)

func withRateLimit(t *testing.T, limit int) fixtureOption {
	return func(cfg *config.Config, deps *RouterDeps) {
		mr := miniredis.RunT(t)
		rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rc.Close() })

		cfg.RateLimitPerClientPerMin = limit
		deps.RateLimiter = ratelimit.NewRedisRateLimiter(rc, nil)
	}
}

func withAppEnv(env string) fixtureOption {
	return func(cfg *config.Config, deps *RouterDeps) {
		cfg.AppEnv = env
		deps.DebugHandler = handler.NewDebugHandler(env)
	}
}

// newRouterFixture wires the full router against a local key server and an
// in-memory table, the way newApplication does against AWS
func newRouterFixture(t *testing.T, opts ...fixtureOption) routerFixture {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	pemText, err := auth.EncodePublicKeyPEM(&key.PublicKey)
	require.NoError(t, err)

	keyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimPrefix(r.URL.Path, "/") != testKid {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(pemText))
	}))
	t.Cleanup(keyServer.Close)

	cfg := &config.Config{
		AppEnv:              "production",
		AWSRegion:           "us-east-1",
		DynamoDBTable:       "aws-examples-messages",
		MessageID:           1,
		DefaultMessage:      "Hello World!",
		OIDCDataHeader:      config.DefaultOIDCDataHeader,
		OIDCVerifySignature: true,
		OIDCKeyEndpoint:     keyServer.URL,
		OIDCExpectedSigner:  testSigner,
		CORSAllowedOrigins:  "*",
		OTELServiceName:     "test",
	}

	log, err := logger.New("test", "error")
	require.NoError(t, err)

	table := &fakeTable{text: "Happy AWS learning!"}
	messages := repo.NewMessageRepository(table, cfg.DynamoDBTable)

	resolver := auth.NewKeyResolver(
		auth.NewKeyFetcher(client.NewKeyEndpointClient(2*time.Second), cfg.KeyEndpoint()),
		auth.NewMemoryKeyCache(), time.Hour, log, nil,
	)
	extractor, err := auth.NewExtractor(log, auth.ExtractorOptions{
		VerifySignature: true,
		ExpectedSigner:  testSigner,
		ClockSkew:       time.Minute,
		Keys:            resolver,
	})
	require.NoError(t, err)

	deps := RouterDeps{
		Cfg:            cfg,
		Log:            log,
		Extractor:      extractor,
		MessageHandler: handler.NewMessageHandler(service.NewMessageService(messages, cfg.MessageID, cfg.DefaultMessage, log)),
		HealthHandler:  handler.NewHealthHandler(messages),
		DebugHandler:   handler.NewDebugHandler(cfg.AppEnv),
	}
	for _, opt := range opts {
		opt(cfg, &deps)
	}

	return routerFixture{router: buildRouter(deps), key: key, table: table}
}

func (f routerFixture) token(t *testing.T, claims map[string]any) string {
	t.Helper()
	token, err := auth.NewTestToken(f.key, testKid, testSigner, claims)
	require.NoError(t, err)
	return auth.PadSegments(token, 1)
}

func (f routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func learnerClaims() map[string]any {
	return map[string]any{
		"sub":   "9a7b6c5d-user",
		"email": "learner@example.com",
		"exp":   time.Now().Add(time.Minute).Unix(),
	}
}

func decodeMessages(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestMessages_VerifiedIdentity(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	req.Header.Set("x-amzn-oidc-data", f.token(t, learnerClaims()))
	w := f.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	body := decodeMessages(t, w)
	assert.Equal(t, "Happy AWS learning!", body["message"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "learner@example.com", user["email"])
	assert.Equal(t, "9a7b6c5d-user", user["sub"])
}

func TestMessages_Anonymous(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/messages", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Happy AWS learning!","user":{}}`, w.Body.String())
}

func TestMessages_ForgedIdentityIsAnonymous(t *testing.T) {
	f := newRouterFixture(t)

	forger, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	forged, err := auth.NewTestToken(forger, testKid, testSigner, learnerClaims())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	req.Header.Set("x-amzn-oidc-data", forged)
	w := f.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Happy AWS learning!","user":{}}`, w.Body.String())
}

func TestMessages_FallsBackToDefault(t *testing.T) {
	t.Run("ItemMissing", func(t *testing.T) {
		f := newRouterFixture(t)
		f.table.text = ""

		w := f.do(httptest.NewRequest(http.MethodGet, "/api/messages", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Hello World!", decodeMessages(t, w)["message"])
	})

	t.Run("TableUnavailable", func(t *testing.T) {
		f := newRouterFixture(t)
		f.table.err = errors.New("AccessDeniedException")

		w := f.do(httptest.NewRequest(http.MethodGet, "/api/messages", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Hello World!", decodeMessages(t, w)["message"])
	})
}

func TestHealthz(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestHealthEndpoint_ReturnsRequestID(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("X-Request-Id"), "req_"))
}

func TestHealthEndpoint_PreservesRequestID(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "req_1234567890_abcdef123456")
	w := f.do(req)

	assert.Equal(t, "req_1234567890_abcdef123456", w.Header().Get("X-Request-Id"))
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("TableActive", func(t *testing.T) {
		f := newRouterFixture(t)

		w := f.do(httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ready"}`, w.Body.String())
	})

	t.Run("TableUnavailable", func(t *testing.T) {
		f := newRouterFixture(t)
		f.table.err = context.DeadlineExceeded

		w := f.do(httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"unavailable","error":"dynamodb unavailable"}`, w.Body.String())
	})
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")

	w = f.do(httptest.NewRequest(http.MethodPost, "/api/messages", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "METHOD_NOT_ALLOWED")
}

func TestDebugIdentity(t *testing.T) {
	t.Run("HiddenOutsideDev", func(t *testing.T) {
		f := newRouterFixture(t)

		w := f.do(httptest.NewRequest(http.MethodGet, "/debug/identity", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("ReportsRejectionReasonInDev", func(t *testing.T) {
		f := newRouterFixture(t, withAppEnv("dev"))

		claims := learnerClaims()
		claims["exp"] = time.Now().Add(-time.Hour).Unix()

		req := httptest.NewRequest(http.MethodGet, "/debug/identity", nil)
		req.Header.Set("x-amzn-oidc-data", f.token(t, claims))
		w := f.do(req)

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "rejected", body["outcome"])
		assert.Equal(t, "token_expired", body["reason"])
		assert.Equal(t, testKid, body["kid"])
	})
}

func TestCORSPreflight(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/messages", nil)
	req.Header.Set("Origin", "https://examples.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := f.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	f := newRouterFixture(t, withRateLimit(t, 2))

	for i := 0; i < 2; i++ {
		w := f.do(httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	// outside /api is never limited
	w = f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLambdaAdapterServesRouter(t *testing.T) {
	f := newRouterFixture(t)
	log, err := logger.New("test", "error")
	require.NoError(t, err)

	resp, err := lambdaapi.NewAdapter(f.router, log).Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Path:       "/api/messages",
		Headers:    map[string]string{"x-amzn-oidc-data": f.token(t, learnerClaims())},
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID: "apigw-req-1",
			Identity:  events.APIGatewayRequestIdentity{SourceIP: "203.0.113.9"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, resp.IsBase64Encoded)
	assert.Contains(t, resp.Body, "learner@example.com")
	assert.Contains(t, resp.Body, "Happy AWS learning!")
	assert.Equal(t, []string{"apigw-req-1"}, resp.MultiValueHeaders["X-Request-Id"])
}
