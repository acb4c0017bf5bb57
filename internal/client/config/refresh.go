package config

import "time"

// RefreshConfig настройки координатора обновления токенов.
type RefreshConfig struct {
	// MaxAttempts общее число попыток refresh до терминального сбоя.
	MaxAttempts int `yaml:"max_attempts" env:"REVORNIX_REFRESH_MAX_ATTEMPTS" env-default:"3"`
	// Backoff пауза перед повторной попыткой; 0 означает немедленный повтор.
	Backoff       time.Duration `yaml:"backoff" env:"REVORNIX_REFRESH_BACKOFF" env-default:"0s"`
	MaxBackoff    time.Duration `yaml:"max_backoff" env:"REVORNIX_REFRESH_MAX_BACKOFF" env-default:"1s"`
	BackoffFactor float64       `yaml:"backoff_factor" env:"REVORNIX_REFRESH_BACKOFF_FACTOR" env-default:"2"`
	// MaxReplays сколько раз один запрос может быть молча переотправлен после refresh.
	MaxReplays int `yaml:"max_replays" env:"REVORNIX_REFRESH_MAX_REPLAYS" env-default:"1"`
}
