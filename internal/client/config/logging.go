package config

import "revornix/pkg/logger"

// LoggingConfig настройки логирования.
type LoggingConfig struct {
	Level string `yaml:"level" env:"REVORNIX_LOGGER_LEVEL" env-default:"info"`
	Mode  string `yaml:"mode" env:"REVORNIX_LOGGER_MODE" env-default:"development"`
}

// GetEnvironment переводит режим в logger.Environment.
func (c *LoggingConfig) GetEnvironment() logger.Environment {
	if c.Mode == "production" {
		return logger.Production
	}
	return logger.Development
}
