package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	awspkg "curation-bff/pkg/aws"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds the process configuration. It is loaded once at start and
// handed to the clients and services that need it.
type Config struct {
	Port   string
	AppEnv string

	APIGatewayURL     string
	ScraperServiceURL string
	JobRunnerURL      string
	AdminAPIKey       string
	UpstreamTimeout   time.Duration

	AutoApprove     bool
	BulkConcurrency int

	RedisURL        string
	JobTrackingTTL  time.Duration
	CurationLockTTL time.Duration

	// DevAuthToken substitutes a missing bearer token. Only honoured outside production.
	DevAuthToken string
	// ServiceToken authenticates background reconciliation from the results queue.
	ServiceToken string

	AllowedOrigins     []string
	RateLimitPerMinute int

	CloudWatchEnabled    bool
	UseSecretsManager    bool
	EventsTopicARN       string
	CurationResultsQueue string
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load reads .env (if present) and the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		zap.L().Debug("no .env file found, using environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Port:                 get("PORT", "8090"),
		AppEnv:               get("APP_ENV", "development"),
		APIGatewayURL:        strings.TrimSuffix(get("API_GATEWAY_URL", ""), "/"),
		AdminAPIKey:          get("ADMIN_API_KEY", ""),
		RedisURL:             get("REDIS_URL", ""),
		DevAuthToken:         get("DEV_AUTH_TOKEN", ""),
		ServiceToken:         get("SERVICE_AUTH_TOKEN", ""),
		CloudWatchEnabled:    get("CLOUDWATCH_ENABLED", "") == "true",
		UseSecretsManager:    get("AWS_USE_SECRETS", "") == "true",
		EventsTopicARN:       get("CURATION_EVENTS_TOPIC_ARN", ""),
		CurationResultsQueue: get("CURATION_RESULTS_QUEUE_URL", ""),
	}
	cfg.ScraperServiceURL = strings.TrimSuffix(get("SCRAPER_SERVICE_URL", cfg.APIGatewayURL), "/")
	cfg.JobRunnerURL = strings.TrimSuffix(get("JOB_RUNNER_URL", cfg.APIGatewayURL), "/")

	var err error
	if cfg.UpstreamTimeout, err = time.ParseDuration(get("UPSTREAM_TIMEOUT", "30s")); err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_TIMEOUT: %w", err)
	}
	if cfg.JobTrackingTTL, err = time.ParseDuration(get("JOB_TRACKING_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("invalid JOB_TRACKING_TTL: %w", err)
	}
	if cfg.CurationLockTTL, err = time.ParseDuration(get("CURATION_LOCK_TTL", "2m")); err != nil {
		return nil, fmt.Errorf("invalid CURATION_LOCK_TTL: %w", err)
	}
	if cfg.AutoApprove, err = strconv.ParseBool(get("AUTO_APPROVE", "false")); err != nil {
		return nil, fmt.Errorf("invalid AUTO_APPROVE: %w", err)
	}
	if cfg.BulkConcurrency, err = strconv.Atoi(get("BULK_CONCURRENCY", "1")); err != nil {
		return nil, fmt.Errorf("invalid BULK_CONCURRENCY: %w", err)
	}
	if cfg.RateLimitPerMinute, err = strconv.Atoi(get("RATE_LIMIT_PER_MINUTE", "300")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	origins := get("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(strings.TrimSuffix(o, "/")); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	return cfg, nil
}

// SecretGetter reads a named secret.
type SecretGetter interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// ApplySecrets overrides secret values from the given store. Lookup failures
// keep the environment value.
func (c *Config) ApplySecrets(ctx context.Context, sm SecretGetter) {
	for name, target := range map[string]*string{
		"curation/ADMIN_API_KEY":      &c.AdminAPIKey,
		"curation/SERVICE_AUTH_TOKEN": &c.ServiceToken,
	} {
		v, err := sm.GetSecret(ctx, name)
		if err != nil {
			zap.L().Warn("secrets manager lookup failed, keeping env value", zap.String("secret", name), zap.Error(err))
			continue
		}
		if v != "" {
			*target = v
		}
	}
}

// LoadSecrets applies Secrets Manager overrides when AWS_USE_SECRETS is set.
func (c *Config) LoadSecrets(ctx context.Context) {
	if !c.UseSecretsManager {
		return
	}
	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		zap.L().Warn("aws config unavailable, skipping secrets", zap.Error(err))
		return
	}
	c.ApplySecrets(ctx, awspkg.NewCurationSecrets(awsCfg))
}

// Validate checks required values and production safety rules.
func (c *Config) Validate() error {
	if c.APIGatewayURL == "" {
		return fmt.Errorf("API_GATEWAY_URL is required")
	}
	if c.AdminAPIKey == "" {
		return fmt.Errorf("ADMIN_API_KEY is required")
	}
	if c.IsProduction() && c.DevAuthToken != "" {
		return fmt.Errorf("DEV_AUTH_TOKEN must not be set in production")
	}
	if c.BulkConcurrency < 1 {
		return fmt.Errorf("BULK_CONCURRENCY must be at least 1")
	}
	if c.RateLimitPerMinute < 1 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be at least 1")
	}
	// a locked transition can make up to three upstream calls
	if c.CurationLockTTL <= 3*c.UpstreamTimeout {
		return fmt.Errorf("CURATION_LOCK_TTL (%s) must be longer than three UPSTREAM_TIMEOUT (%s)", c.CurationLockTTL, c.UpstreamTimeout)
	}
	return nil
}
