// Package shutdown предоставляет корректное завершение приложения:
// ожидание SIGINT/SIGTERM или отмены контекста и запуск хуков с общим таймаутом.
package shutdown

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"revornix/pkg/logger"
)

// Hook освобождает один ресурс при завершении.
type Hook func(context.Context) error

const (
	LogShutdownStarted  = "shutdown started"
	LogShutdownHookFail = "shutdown hook failed"
	LogShutdownTimeout  = "shutdown timed out"
)

// Wait блокируется до сигнала SIGINT/SIGTERM или отмены ctx, затем параллельно
// выполняет хуки в пределах timeout. Возвращает объединенную ошибку хуков.
func Wait(ctx context.Context, timeout time.Duration, hooks ...Hook) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	return Run(context.WithoutCancel(ctx), timeout, hooks...)
}

// Run выполняет хуки немедленно.
func Run(ctx context.Context, timeout time.Duration, hooks ...Hook) error {
	log := logger.Log(ctx)
	log.Info(ctx, LogShutdownStarted, zap.Int("hooks", len(hooks)), zap.Duration("timeout", timeout))

	hookCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, hook := range hooks {
		wg.Add(1)
		go func(fn Hook) {
			defer wg.Done()
			if err := fn(hookCtx); err != nil {
				log.Warn(ctx, LogShutdownHookFail, zap.Error(err))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(hook)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-hookCtx.Done():
		log.Warn(ctx, LogShutdownTimeout)
		mu.Lock()
		errs = append(errs, hookCtx.Err())
		mu.Unlock()
	}

	mu.Lock()
	defer mu.Unlock()
	return errors.Join(errs...)
}
