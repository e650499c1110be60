package main

import (
	"context"
	"fmt"
	"time"

	"aws-examples-api/internal/auth"
	"aws-examples-api/internal/config"
	"aws-examples-api/internal/database"
	"aws-examples-api/internal/http/client"
	"aws-examples-api/internal/http/handler"
	"aws-examples-api/internal/observability/logger"
	"aws-examples-api/internal/ratelimit"
	"aws-examples-api/internal/repo"
	"aws-examples-api/internal/service"
	"aws-examples-api/internal/telemetry"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// application is the wired service shared by the serve and lambda commands
type application struct {
	router   chi.Router
	messages *repo.MessageRepository
	closers  []func(context.Context) error
	log      *logger.Logger
}

// newApplication connects every dependency named by cfg and builds the router.
// Telemetry is strictly opt-in; Redis is only dialed when REDIS_URL is set.
func newApplication(ctx context.Context, cfg *config.Config, log *logger.Logger) (*application, error) {
	app := &application{log: log}

	var metrics *telemetry.Metrics
	if cfg.TelemetryEnabled() {
		log.Info(ctx, "initializing telemetry", zap.String("endpoint", cfg.OTELExporterEndpoint))

		rc := telemetry.ResourceConfig{
			ServiceName: cfg.OTELServiceName,
			Environment: cfg.AppEnv,
			Region:      cfg.AWSRegion,
			Table:       cfg.DynamoDBTable,
		}

		tp, err := telemetry.InitTracer(ctx, rc, cfg.OTELExporterEndpoint, cfg.OTELSamplingRatio)
		if err != nil {
			log.Warn(ctx, "failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			app.closers = append(app.closers, tp.Shutdown)
		}

		mp, m, err := telemetry.InitMetrics(ctx, rc, cfg.OTELExporterEndpoint)
		if err != nil {
			log.Warn(ctx, "failed to initialize metrics, continuing without metrics", zap.Error(err))
		} else {
			metrics = m
			app.closers = append(app.closers, mp.Shutdown)
		}

		log.Info(ctx, "telemetry initialized", zap.Bool("tracing", tp != nil), zap.Bool("metrics", metrics != nil))
	} else {
		log.Info(ctx, "telemetry disabled (opt-in only or missing endpoint)")
	}

	// DynamoDB
	db, err := database.NewDynamoDB(cfg.AWSRegion, cfg.DynamoDBEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamodb client: %w", err)
	}
	app.messages = repo.NewMessageRepository(db, cfg.DynamoDBTable)

	// Redis
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		log.Info(ctx, "connecting to redis")
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		redisClient = redis.NewClient(redisOpts)
		app.closers = append(app.closers, func(context.Context) error { return redisClient.Close() })

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info(ctx, "redis connected")
	}

	extractor, err := newExtractor(cfg, log, redisClient, metrics)
	if err != nil {
		return nil, err
	}

	messageService := service.NewMessageService(app.messages, cfg.MessageID, cfg.DefaultMessage, log)

	deps := RouterDeps{
		Cfg:            cfg,
		Log:            log,
		Extractor:      extractor,
		Metrics:        metrics,
		MessageHandler: handler.NewMessageHandler(messageService),
		HealthHandler:  handler.NewHealthHandler(app.messages),
		DebugHandler:   handler.NewDebugHandler(cfg.AppEnv),
	}

	if cfg.RateLimitEnabled() {
		var rejections metric.Int64Counter
		if metrics != nil {
			rejections = metrics.RateLimitRejections
		}
		deps.RateLimiter = ratelimit.NewRedisRateLimiter(redisClient, rejections)
		log.Info(ctx, "rate limiting enabled", zap.Int("limit_per_min", cfg.RateLimitPerClientPerMin))
	}

	app.router = buildRouter(deps)
	return app, nil
}

// newExtractor builds the forwarded identity extractor. Keys are cached in
// Redis when available so every instance shares them, otherwise in memory.
func newExtractor(cfg *config.Config, log *logger.Logger, redisClient *redis.Client, metrics *telemetry.Metrics) (*auth.Extractor, error) {
	var outcomes, lookups metric.Int64Counter
	if metrics != nil {
		outcomes = metrics.IdentityOutcomes
		lookups = metrics.PublicKeyLookups
	}

	opts := auth.ExtractorOptions{
		VerifySignature: cfg.OIDCVerifySignature,
		ExpectedSigner:  cfg.OIDCExpectedSigner,
		ClockSkew:       cfg.ClockSkew(),
		Outcomes:        outcomes,
	}

	if cfg.OIDCVerifySignature {
		var cache auth.KeyCache = auth.NewMemoryKeyCache()
		if redisClient != nil {
			cache = auth.NewRedisKeyCache(redisClient)
		}

		fetcher := auth.NewKeyFetcher(client.NewKeyEndpointClient(cfg.KeyFetchTimeout()), cfg.KeyEndpoint())
		opts.Keys = auth.NewKeyResolver(fetcher, cache, cfg.KeyCacheTTL(), log, lookups)
	}

	extractor, err := auth.NewExtractor(log, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity extractor: %w", err)
	}

	log.Info(context.Background(), "forwarded identity extraction initialized",
		zap.String("header", cfg.OIDCDataHeader),
		zap.Bool("verify_signature", extractor.Verifying()),
		zap.String("key_endpoint", cfg.KeyEndpoint()),
		zap.Bool("signer_check", cfg.OIDCExpectedSigner != ""),
	)

	return extractor, nil
}

// Close releases connections and flushes telemetry, newest first
func (a *application) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Error(ctx, "failed to release resource on shutdown", zap.Error(err))
		}
	}
}
