package devserver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	pkgconfig "revornix/pkg/config"
	"revornix/pkg/logger"
)

// Константы для конфигурации.
const (
	LogLoadingConfig    = "loading devserver configuration"
	LogConfigLoaded     = "devserver configuration loaded"
	ErrFailedLoadConfig = "failed to load devserver configuration"
	ErrInvalidConfig    = "invalid devserver configuration"

	serviceName = "revornix-devserver"
)

// Config конфигурация сервера разработки.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	JWT      JWTConfig      `yaml:"jwt"`
	Demo     DemoUserConfig `yaml:"demo"`
	Logging  LoggingConfig  `yaml:"logging"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
}

// HTTPConfig настройки HTTP сервера.
type HTTPConfig struct {
	Host         string        `yaml:"host" env:"REVORNIX_DEVSERVER_HTTP_HOST" env-default:"127.0.0.1"`
	Port         int           `yaml:"port" env:"REVORNIX_DEVSERVER_HTTP_PORT" env-default:"8001"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"REVORNIX_DEVSERVER_HTTP_READ_TIMEOUT" env-default:"5s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"REVORNIX_DEVSERVER_HTTP_WRITE_TIMEOUT" env-default:"10s"`
	TraceHeader  string        `yaml:"trace_header" env:"REVORNIX_DEVSERVER_TRACE_HEADER" env-default:"X-Request-Id"`
}

// GetAddress возвращает адрес HTTP сервера.
func (c *HTTPConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JWTConfig настройки выдачи токенов.
type JWTConfig struct {
	SecretKey       string        `yaml:"secret_key" env:"REVORNIX_DEVSERVER_JWT_SECRET_KEY" env-default:"revornix-devserver-secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"REVORNIX_DEVSERVER_JWT_ACCESS_TOKEN_TTL" env-default:"1m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REVORNIX_DEVSERVER_JWT_REFRESH_TOKEN_TTL" env-default:"24h"`
	BCryptCost      int           `yaml:"bcrypt_cost" env:"REVORNIX_DEVSERVER_BCRYPT_COST" env-default:"10"`
}

// DemoUserConfig пользователь, создаваемый при старте. Пустой email отключает его.
type DemoUserConfig struct {
	Email    string `yaml:"email" env:"REVORNIX_DEVSERVER_DEMO_EMAIL" env-default:"demo@revornix.com"`
	Username string `yaml:"username" env:"REVORNIX_DEVSERVER_DEMO_USERNAME" env-default:"demo"`
	Password string `yaml:"password" env:"REVORNIX_DEVSERVER_DEMO_PASSWORD" env-default:"demo-password"`
}

// LoggingConfig настройки логирования.
type LoggingConfig struct {
	Level string `yaml:"level" env:"REVORNIX_DEVSERVER_LOGGER_LEVEL" env-default:"info"`
	Mode  string `yaml:"mode" env:"REVORNIX_DEVSERVER_LOGGER_MODE" env-default:"development"`
}

// GetEnvironment переводит режим в logger.Environment.
func (c *LoggingConfig) GetEnvironment() logger.Environment {
	if c.Mode == "production" {
		return logger.Production
	}
	return logger.Development
}

// ShutdownConfig настройки остановки.
type ShutdownConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"REVORNIX_DEVSERVER_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

// LoadConfig читает конфигурацию из окружения и, если он есть, из envPath.
func LoadConfig(ctx context.Context, envPath string) (*Config, error) {
	log := logger.Log(ctx)
	log.Info(ctx, LogLoadingConfig)

	cfg, err := pkgconfig.Load[Config](ctx, serviceName, envPath)
	if err != nil {
		log.Error(ctx, ErrFailedLoadConfig, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrFailedLoadConfig, err)
	}
	if cfg.JWT.SecretKey == "" {
		return nil, fmt.Errorf("%s: empty jwt secret", ErrInvalidConfig)
	}
	if cfg.JWT.AccessTokenTTL <= 0 || cfg.JWT.RefreshTokenTTL <= 0 {
		return nil, fmt.Errorf("%s: token ttl must be positive", ErrInvalidConfig)
	}

	log.Info(ctx, LogConfigLoaded,
		zap.String("address", cfg.HTTP.GetAddress()),
		zap.Duration("access_token_ttl", cfg.JWT.AccessTokenTTL),
		zap.Duration("refresh_token_ttl", cfg.JWT.RefreshTokenTTL),
		zap.String("demo_user", cfg.Demo.Email),
		zap.String("log_level", cfg.Logging.Level))

	return cfg, nil
}
