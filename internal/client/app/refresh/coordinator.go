// Package refresh координирует единственный refresh токенов для любого числа
// одновременно получивших 401 запросов.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"revornix/internal/client/domain"
	"revornix/internal/client/ports/credentials"
	refreshport "revornix/internal/client/ports/refresh"
	"revornix/internal/client/ports/session"
	"revornix/internal/client/resilience"
	"revornix/pkg/logger"
)

// Константы для логирования.
const (
	LogWaiterQueued       = "request parked until token refresh completes"
	LogRefreshStarted     = "token refresh started"
	LogRefreshSucceeded   = "token refresh succeeded"
	LogRefreshAttemptFail = "token refresh attempt failed"
	LogAlreadyRotated     = "credentials already rotated, resuming immediately"
	LogSessionTerminal    = "refresh exhausted, session expired"
	LogRejectedTerminal   = "session already expired, rejecting request"
	LogSessionReset       = "coordinator reset after new login"
	LogSessionInvalidated = "session invalidated, pending refresh result will be dropped"
	LogRefreshAbandoned   = "refresh result dropped after logout"

	ErrReadCredentials  = "failed to read credentials"
	ErrStoreCredentials = "failed to store refreshed credentials"
	ErrClearCredentials = "failed to clear credentials"
)

// Причины терминального сбоя.
const (
	ReasonNoRefreshCredential = "no refresh credential"
	ReasonAttemptsExhausted   = "refresh attempts exhausted"
)

// Continuation отложенное возобновление одного заблокированного запроса.
// err == nil означает, что новые учетные данные сохранены и запрос можно переотправить;
// domain.ErrSessionExpired означает терминальный сбой.
type Continuation func(err error)

// Coordinator владеет тройкой (inFlight, attempts, waiters) под одним мьютексом.
// epoch растет при каждом выходе: refresh, начатый в другой эпохе, не пишет в хранилище.
//
// Чтение хранилища в rotatedLocked и запись в refreshOnce выполняются под mu.
// Для Redis это сетевой вызов внутри критической секции, и Snapshot с OnUnauthorized
// ждут его завершения.
type Coordinator struct {
	store     credentials.Store
	refresher refreshport.Refresher
	notifier  session.Notifier
	resetter  session.Resetter
	retry     *resilience.Retry

	mu       sync.Mutex
	state    State
	inFlight bool
	attempts int
	waiters  []Continuation
	epoch    uint64
}

// NewCoordinator создает координатор. Попытки refresh ограничены retryCfg.MaxAttempts;
// повторяется любая ошибка, кроме отсутствия refresh токена.
func NewCoordinator(
	store credentials.Store,
	refresher refreshport.Refresher,
	notifier session.Notifier,
	resetter session.Resetter,
	retryCfg resilience.RetryConfig,
) *Coordinator {
	retryCfg.ShouldRetry = func(err error) bool {
		return !errors.Is(err, resilience.ErrPermanent)
	}
	return &Coordinator{
		store:     store,
		refresher: refresher,
		notifier:  notifier,
		resetter:  resetter,
		retry:     resilience.NewRetry("token-refresh", retryCfg),
		state:     StateIdle,
	}
}

// Snapshot возвращает текущее состояние.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		State:    c.state,
		InFlight: c.inFlight,
		Attempts: c.attempts,
		Waiters:  len(c.waiters),
	}
}

// OnUnauthorized ставит продолжение в очередь и запускает refresh, если он еще не идет.
// failedAccess токен, с которым запрос получил 401: если хранилище уже содержит
// другой токен и refresh не идет, продолжение запускается сразу без нового refresh.
func (c *Coordinator) OnUnauthorized(ctx context.Context, failedAccess string, cont Continuation) {
	log := logger.Log(ctx)

	c.mu.Lock()

	if c.state == StateTerminal {
		c.mu.Unlock()
		log.Debug(ctx, LogRejectedTerminal)
		cont(domain.ErrSessionExpired)
		return
	}

	if c.inFlight {
		c.waiters = append(c.waiters, cont)
		queued := len(c.waiters)
		c.mu.Unlock()
		log.Debug(ctx, LogWaiterQueued, zap.Int("waiters", queued))
		return
	}

	if c.rotatedLocked(ctx, failedAccess) {
		c.mu.Unlock()
		log.Debug(ctx, LogAlreadyRotated)
		cont(nil)
		return
	}

	c.waiters = append(c.waiters, cont)
	c.inFlight = true
	c.state = StateRefreshing
	epoch := c.epoch
	c.mu.Unlock()

	log.Info(ctx, LogRefreshStarted)
	go c.runRefresh(context.WithoutCancel(ctx), epoch)
}

// rotatedLocked сообщает, что токен в хранилище уже отличается от отвергнутого.
// Вызывается под мьютексом, пока inFlight == false: успешный refresh записывает
// хранилище до сброса inFlight, поэтому устаревший 401 здесь всегда виден.
func (c *Coordinator) rotatedLocked(ctx context.Context, failedAccess string) bool {
	if failedAccess == "" {
		return false
	}
	creds, err := c.store.Get(ctx)
	if err != nil {
		logger.Log(ctx).Warn(ctx, ErrReadCredentials, zap.Error(err))
		return false
	}
	return creds.HasAccess() && creds.Access != failedAccess
}

// Reset возвращает координатор из терминального состояния в Idle.
func (c *Coordinator) Reset(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateTerminal {
		return
	}
	c.state = StateIdle
	c.attempts = 0
	logger.Log(ctx).Info(ctx, LogSessionReset)
}

// Invalidate завершает текущую эпоху сессии. Вызывается при выходе до очистки хранилища:
// идущий refresh не сохранит новую пару, а его ожидающие получат domain.ErrSessionExpired.
func (c *Coordinator) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.epoch++
	inFlight := c.inFlight
	c.mu.Unlock()

	if inFlight {
		logger.Log(ctx).Info(ctx, LogSessionInvalidated)
	}
}

func (c *Coordinator) runRefresh(ctx context.Context, epoch uint64) {
	log := logger.Log(ctx)

	err := c.retry.Execute(ctx, func(attempt int) error {
		err := c.refreshOnce(ctx, epoch)
		if err == nil || errors.Is(err, resilience.ErrPermanent) {
			return err
		}

		c.mu.Lock()
		c.attempts++
		failures := c.attempts
		c.mu.Unlock()

		log.Warn(ctx, LogRefreshAttemptFail,
			zap.Int("attempt", attempt),
			zap.Int("failures", failures),
			zap.Int("max_attempts", c.retry.MaxAttempts()),
			zap.Error(err))
		return err
	})
	if errors.Is(err, domain.ErrSessionInvalidated) {
		c.abandon(ctx)
		return
	}
	if err != nil {
		reason := ReasonAttemptsExhausted
		if errors.Is(err, domain.ErrNoRefreshCredential) {
			reason = ReasonNoRefreshCredential
		}
		c.terminate(ctx, reason, err)
		return
	}

	c.drain(ctx)
}

// refreshOnce одна попытка: перечитать refresh токен, вызвать endpoint, сохранить пару.
// Пара сохраняется, только если эпоха не сменилась с начала refresh.
func (c *Coordinator) refreshOnce(ctx context.Context, epoch uint64) error {
	if !c.sameEpoch(epoch) {
		return resilience.Permanent(domain.ErrSessionInvalidated)
	}

	creds, err := c.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrReadCredentials, err)
	}
	if !creds.HasRefresh() {
		return resilience.Permanent(domain.ErrNoRefreshCredential)
	}

	fresh, err := c.refresher.Refresh(ctx, creds.Refresh)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrRefreshFailed, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		return resilience.Permanent(domain.ErrSessionInvalidated)
	}
	if err := c.store.Set(ctx, *fresh); err != nil {
		return fmt.Errorf("%s: %w", ErrStoreCredentials, err)
	}
	return nil
}

func (c *Coordinator) sameEpoch(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch == epoch
}

// abandon возвращает координатор в Idle без уведомления пользователя: хранилище уже
// очищено выходом. Ожидающие получают domain.ErrSessionExpired.
func (c *Coordinator) abandon(ctx context.Context) {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.inFlight = false
	c.attempts = 0
	c.state = StateIdle
	c.mu.Unlock()

	logger.Log(ctx).Info(ctx, LogRefreshAbandoned, zap.Int("waiters", len(waiters)))

	for _, cont := range waiters {
		cont(domain.ErrSessionExpired)
	}
}

// drain переводит Refreshing -> Draining -> Idle и запускает каждое продолжение ровно раз в порядке FIFO.
func (c *Coordinator) drain(ctx context.Context) {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.inFlight = false
	c.attempts = 0
	c.state = StateDraining
	c.mu.Unlock()

	logger.Log(ctx).Info(ctx, LogRefreshSucceeded, zap.Int("waiters", len(waiters)))

	for _, cont := range waiters {
		cont(nil)
	}

	c.mu.Lock()
	if c.state == StateDraining {
		c.state = StateIdle
	}
	c.mu.Unlock()
}

// terminate очищает хранилище, один раз уведомляет пользователя и сбрасывает сессию,
// затем завершает всех ожидающих ошибкой domain.ErrSessionExpired.
func (c *Coordinator) terminate(ctx context.Context, reason string, cause error) {
	log := logger.Log(ctx)

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.inFlight = false
	c.state = StateTerminal
	attempts := c.attempts
	c.mu.Unlock()

	log.Error(ctx, LogSessionTerminal,
		zap.String("reason", reason),
		zap.Int("attempts", attempts),
		zap.Int("waiters", len(waiters)),
		zap.Error(cause))

	if err := c.store.Clear(ctx); err != nil {
		log.Error(ctx, ErrClearCredentials, zap.Error(err))
	}

	if c.notifier != nil {
		c.notifier.SessionExpired(ctx, session.Event{
			Reason:   reason,
			Attempts: attempts,
			Waiters:  len(waiters),
			Err:      cause,
		})
	}
	if c.resetter != nil {
		c.resetter.ResetSession(ctx)
	}

	for _, cont := range waiters {
		cont(domain.ErrSessionExpired)
	}
}
