package config

// SentryConfig настройки отправки терминальных сбоев сессии в Sentry.
type SentryConfig struct {
	DSN         string `yaml:"dsn" env:"REVORNIX_SENTRY_DSN" env-default:""`
	Environment string `yaml:"environment" env:"REVORNIX_SENTRY_ENVIRONMENT" env-default:"development"`
}

// Enabled сообщает, задан ли DSN.
func (c *SentryConfig) Enabled() bool {
	return c.DSN != ""
}
