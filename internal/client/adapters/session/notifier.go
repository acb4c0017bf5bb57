// Package session содержит участников терминального сбоя сессии:
// уведомления пользователю и в наблюдаемость, сброс состояния клиента.
package session

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"revornix/internal/client/ports/session"
	"revornix/pkg/logger"
)

// Константы для логирования.
const (
	LogSessionExpired   = "session expired, user must log in again"
	ErrWriteUserMessage = "failed to write session expired message"

	// UserMessage текст, который видит пользователь.
	UserMessage = "Your session has expired. Please log in again."
)

// LogNotifier пишет терминальный сбой в структурированный лог.
type LogNotifier struct{}

var _ session.Notifier = LogNotifier{}

// SessionExpired реализует session.Notifier.
func (LogNotifier) SessionExpired(ctx context.Context, event session.Event) {
	logger.Log(ctx).Warn(ctx, LogSessionExpired,
		zap.String("reason", event.Reason),
		zap.Int("attempts", event.Attempts),
		zap.Int("waiters", event.Waiters),
		zap.Error(event.Err))
}

// ConsoleNotifier показывает пользователю сообщение об истекшей сессии.
type ConsoleNotifier struct {
	w io.Writer
}

// NewConsoleNotifier создает уведомитель, пишущий в w (обычно os.Stderr).
func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

// SessionExpired реализует session.Notifier.
func (n *ConsoleNotifier) SessionExpired(ctx context.Context, _ session.Event) {
	if _, err := fmt.Fprintln(n.w, UserMessage); err != nil {
		logger.Log(ctx).Error(ctx, ErrWriteUserMessage, zap.Error(err))
	}
}

// Notifiers рассылает событие всем уведомителям по порядку; nil элементы пропускаются.
type Notifiers []session.Notifier

// SessionExpired реализует session.Notifier.
func (ns Notifiers) SessionExpired(ctx context.Context, event session.Event) {
	for _, n := range ns {
		if n != nil {
			n.SessionExpired(ctx, event)
		}
	}
}

// ResetFunc адаптирует функцию к session.Resetter.
type ResetFunc func(ctx context.Context)

// ResetSession реализует session.Resetter.
func (f ResetFunc) ResetSession(ctx context.Context) {
	if f != nil {
		f(ctx)
	}
}
