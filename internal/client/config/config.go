// Package config содержит конфигурацию клиента Revornix.
package config

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	pkgconfig "revornix/pkg/config"
	"revornix/pkg/logger"
)

const (
	LogLoadingConfig    = "loading client configuration"
	LogConfigLoaded     = "client configuration loaded"
	ErrFailedLoadConfig = "failed to load client configuration"
	ErrInvalidConfig    = "invalid client configuration"

	serviceName = "revornix-client"
)

// Config полная конфигурация клиента.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Auth    AuthConfig    `yaml:"auth"`
	Refresh RefreshConfig `yaml:"refresh"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
	Sentry  SentryConfig  `yaml:"sentry"`
}

// Load читает конфигурацию из окружения и, если он есть, из envPath.
func Load(ctx context.Context, envPath string) (*Config, error) {
	log := logger.Log(ctx)
	log.Info(ctx, LogLoadingConfig)

	cfg, err := pkgconfig.Load[Config](ctx, serviceName, envPath)
	if err != nil {
		log.Error(ctx, ErrFailedLoadConfig, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrFailedLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		log.Error(ctx, ErrInvalidConfig, zap.Error(err))
		return nil, err
	}

	log.Info(ctx, LogConfigLoaded,
		zap.String("base_url", cfg.HTTP.BaseURL),
		zap.Duration("http_timeout", cfg.HTTP.Timeout),
		zap.String("refresh_path", cfg.Auth.RefreshPath),
		zap.Int("refresh_max_attempts", cfg.Refresh.MaxAttempts),
		zap.Int("max_replays", cfg.Refresh.MaxReplays),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("log_level", cfg.Logging.Level),
		zap.Bool("sentry_enabled", cfg.Sentry.Enabled()))

	return cfg, nil
}

// Validate проверяет значения, которые не выражаются тегами.
func (c *Config) Validate() error {
	if c.HTTP.BaseURL == "" {
		return fmt.Errorf("%s: empty base url", ErrInvalidConfig)
	}
	if c.Refresh.MaxAttempts < 1 {
		return fmt.Errorf("%s: refresh max attempts must be positive, got %d", ErrInvalidConfig, c.Refresh.MaxAttempts)
	}
	if c.Refresh.MaxReplays < 1 {
		return fmt.Errorf("%s: max replays must be positive, got %d", ErrInvalidConfig, c.Refresh.MaxReplays)
	}
	switch c.Store.Driver {
	case StoreDriverMemory, StoreDriverRedis:
	default:
		return fmt.Errorf("%s: unknown store driver %q", ErrInvalidConfig, c.Store.Driver)
	}
	return nil
}
