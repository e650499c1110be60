package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultOIDCDataHeader is the header the ALB sets after a successful
// authenticate-cognito / authenticate-oidc action.
const DefaultOIDCDataHeader = "x-amzn-oidc-data"

// Config holds all application configuration
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"production"`
	Port     string `env:"PORT" envDefault:"3000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// AWS
	AWSRegion        string `env:"AWS_REGION,required"`
	DynamoDBTable    string `env:"DYNAMODB_TABLE" envDefault:"aws-examples-messages"`
	DynamoDBEndpoint string `env:"DYNAMODB_ENDPOINT"` // local dynamodb, leave empty in AWS

	// Message record
	MessageID      int64  `env:"MESSAGE_ID" envDefault:"1"`
	DefaultMessage string `env:"DEFAULT_MESSAGE" envDefault:"Hello World!"`

	// Forwarded identity (ALB x-amzn-oidc-data)
	OIDCDataHeader             string `env:"OIDC_DATA_HEADER" envDefault:"x-amzn-oidc-data"`
	OIDCVerifySignature        bool   `env:"OIDC_VERIFY_SIGNATURE" envDefault:"true"`
	OIDCKeyEndpoint            string `env:"OIDC_KEY_ENDPOINT"`    // defaults to the regional ELB public key endpoint
	OIDCExpectedSigner         string `env:"OIDC_EXPECTED_SIGNER"` // ALB ARN; empty disables the signer check
	OIDCKeyCacheTTLSeconds     int    `env:"OIDC_KEY_CACHE_TTL_SECONDS" envDefault:"3600"`
	OIDCKeyFetchTimeoutSeconds int    `env:"OIDC_KEY_FETCH_TIMEOUT_SECONDS" envDefault:"5"`
	OIDCClockSkewSeconds       int    `env:"OIDC_CLOCK_SKEW_SECONDS" envDefault:"60"`

	// Redis (optional): shared public key cache and rate limiting
	RedisURL                 string `env:"REDIS_URL"`
	RateLimitPerClientPerMin int    `env:"RATE_LIMIT_PER_CLIENT_PER_MIN" envDefault:"120"`

	// HTTP
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
	MetricsToken       string `env:"METRICS_TOKEN"`

	// OpenTelemetry
	OTELEnabled          bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELExporterEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTELServiceName      string  `env:"OTEL_SERVICE_NAME" envDefault:"aws-examples-api"`
	OTELSamplingRatio    float64 `env:"OTEL_SAMPLING_RATIO" envDefault:"0.1"`
}

// LoadConfig loads configuration from the environment. A .env file in the
// working directory is applied first when present; real env vars win.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate performs custom validation on the configuration
func (c *Config) Validate() error {
	if c.AWSRegion == "" {
		return fmt.Errorf("AWS_REGION is required")
	}

	if c.DynamoDBTable == "" {
		return fmt.Errorf("DYNAMODB_TABLE must not be empty")
	}

	if c.MessageID < 0 {
		return fmt.Errorf("MESSAGE_ID must be non-negative")
	}

	if strings.TrimSpace(c.OIDCDataHeader) == "" {
		return fmt.Errorf("OIDC_DATA_HEADER must not be empty")
	}

	if c.OIDCKeyCacheTTLSeconds < 0 {
		return fmt.Errorf("OIDC_KEY_CACHE_TTL_SECONDS must be non-negative")
	}

	if c.OIDCKeyFetchTimeoutSeconds <= 0 {
		return fmt.Errorf("OIDC_KEY_FETCH_TIMEOUT_SECONDS must be positive")
	}

	if c.OIDCClockSkewSeconds < 0 {
		return fmt.Errorf("OIDC_CLOCK_SKEW_SECONDS must be non-negative")
	}

	if c.RateLimitPerClientPerMin < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_CLIENT_PER_MIN must be non-negative")
	}

	if c.OTELSamplingRatio < 0 || c.OTELSamplingRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLING_RATIO must be between 0 and 1")
	}

	return nil
}

// IsDev reports whether development-only routes should be mounted
func (c *Config) IsDev() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development"
}

// TelemetryEnabled reports whether OTLP exporters should be started
func (c *Config) TelemetryEnabled() bool {
	return c.OTELEnabled && c.OTELExporterEndpoint != ""
}

// RateLimitEnabled reports whether /api requests are rate limited. It needs Redis.
func (c *Config) RateLimitEnabled() bool {
	return c.RedisURL != "" && c.RateLimitPerClientPerMin > 0
}

// KeyEndpoint returns the base URL serving ALB signing keys by kid
func (c *Config) KeyEndpoint() string {
	if c.OIDCKeyEndpoint != "" {
		return strings.TrimRight(c.OIDCKeyEndpoint, "/")
	}
	return fmt.Sprintf("https://public-keys.auth.elb.%s.amazonaws.com", c.AWSRegion)
}

func (c *Config) KeyCacheTTL() time.Duration {
	return time.Duration(c.OIDCKeyCacheTTLSeconds) * time.Second
}

func (c *Config) KeyFetchTimeout() time.Duration {
	return time.Duration(c.OIDCKeyFetchTimeoutSeconds) * time.Second
}

func (c *Config) ClockSkew() time.Duration {
	return time.Duration(c.OIDCClockSkewSeconds) * time.Second
}

// GetCORSAllowedOrigins returns the list of allowed CORS origins
func (c *Config) GetCORSAllowedOrigins() []string {
	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
