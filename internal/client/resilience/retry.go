// Package resilience содержит ограниченный повтор операций с экспоненциальной паузой.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"revornix/internal/client/config"
	"revornix/pkg/logger"
)

// RetryConfig содержит настройки повтора.
type RetryConfig struct {
	// MaxAttempts максимальное количество попыток, включая первую.
	MaxAttempts int
	// InitialBackoff пауза перед второй попыткой; 0 означает немедленный повтор.
	InitialBackoff time.Duration
	// MaxBackoff верхняя граница паузы.
	MaxBackoff time.Duration
	// BackoffFactor множитель экспоненциального роста паузы.
	BackoffFactor float64
	// ShouldRetry решает, стоит ли повторять после данной ошибки.
	ShouldRetry func(error) bool
}

// DefaultRetryConfig три немедленные попытки.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 0,
		MaxBackoff:     time.Second,
		BackoffFactor:  2.0,
		ShouldRetry:    defaultShouldRetry,
	}
}

// RetryConfigFromRefresh строит RetryConfig из конфигурации refresh.
func RetryConfigFromRefresh(cfg config.RefreshConfig) RetryConfig {
	rc := DefaultRetryConfig()
	rc.MaxAttempts = cfg.MaxAttempts
	rc.InitialBackoff = cfg.Backoff
	if cfg.MaxBackoff > 0 {
		rc.MaxBackoff = cfg.MaxBackoff
	}
	if cfg.BackoffFactor >= 1 {
		rc.BackoffFactor = cfg.BackoffFactor
	}
	return rc
}

// Ошибки механизма повтора.
var (
	// ErrContextCanceled контекст отменен во время паузы между попытками.
	ErrContextCanceled = errors.New("context was canceled during retry")
	// ErrPermanent оборачивает ошибку, которую повторять бессмысленно.
	ErrPermanent = errors.New("permanent failure")
)

// Permanent помечает ошибку как не подлежащую повтору.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

func defaultShouldRetry(err error) bool {
	return !errors.Is(err, ErrPermanent) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// Константы для логирования.
const (
	LogRetryOperation   = "retry operation"
	LogRetryAttempt     = "retry attempt"
	LogRetrySuccess     = "retry succeeded"
	LogRetryMaxAttempts = "retry max attempts reached"
)

// Retry выполняет функцию с повторными попытками.
type Retry struct {
	name   string
	config RetryConfig
}

// NewRetry создает механизм повтора.
func NewRetry(name string, cfg RetryConfig) *Retry {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = defaultShouldRetry
	}
	return &Retry{name: name, config: cfg}
}

// MaxAttempts возвращает предел попыток.
func (r *Retry) MaxAttempts() int {
	return r.config.MaxAttempts
}

// Execute вызывает operation, пока она не завершится успешно, не вернет
// неповторяемую ошибку или не исчерпает MaxAttempts. operation получает номер попытки с 1.
func (r *Retry) Execute(ctx context.Context, operation func(attempt int) error) error {
	log := logger.Log(ctx).With(zap.String("retry", r.name))
	log.Debug(ctx, LogRetryOperation)

	var err error
	backoff := r.config.InitialBackoff

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err = operation(attempt)

		if err == nil || !r.config.ShouldRetry(err) {
			if attempt > 1 && err == nil {
				log.Info(ctx, LogRetrySuccess, zap.Int("attempts", attempt))
			}
			return err
		}

		if attempt >= r.config.MaxAttempts {
			log.Warn(ctx, LogRetryMaxAttempts,
				zap.Int("attempts", attempt),
				zap.Error(err))
			return err
		}

		log.Info(ctx, LogRetryAttempt,
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		if backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%w: %w", ErrContextCanceled, ctx.Err())
			}

			backoff = time.Duration(float64(backoff) * r.config.BackoffFactor)
			if backoff > r.config.MaxBackoff {
				backoff = r.config.MaxBackoff
			}
		}
	}

	return err
}
