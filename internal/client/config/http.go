package config

import (
	"strings"
	"time"
)

// HTTPConfig настройки исходящих HTTP вызовов.
type HTTPConfig struct {
	BaseURL     string        `yaml:"base_url" env:"REVORNIX_API_BASE_URL" env-default:"http://localhost:8001"`
	Timeout     time.Duration `yaml:"timeout" env:"REVORNIX_HTTP_TIMEOUT" env-default:"30s"`
	TraceHeader string        `yaml:"trace_header" env:"REVORNIX_HTTP_TRACE_HEADER" env-default:"X-Request-Id"`
	UserAgent   string        `yaml:"user_agent" env:"REVORNIX_HTTP_USER_AGENT" env-default:"revornix-client/1.0"`
}

// GetBaseURL возвращает BaseURL без завершающего слэша.
func (c *HTTPConfig) GetBaseURL() string {
	return strings.TrimRight(c.BaseURL, "/")
}
