package session

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"revornix/internal/client/config"
	"revornix/internal/client/ports/session"
	"revornix/pkg/logger"
)

const (
	sentryMessage      = "session expired"
	sentryFlushTimeout = 2 * time.Second

	ErrInitSentry = "failed to initialize sentry client"
)

// NewSentryHub создает отдельный hub для клиента. При пустом DSN возвращает nil, nil.
func NewSentryHub(cfg *config.SentryConfig) (*sentry.Hub, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrInitSentry, err)
	}
	return sentry.NewHub(client, sentry.NewScope()), nil
}

// SentryNotifier отправляет терминальный сбой сессии в Sentry как warning.
type SentryNotifier struct {
	hub *sentry.Hub
}

var _ session.Notifier = (*SentryNotifier)(nil)

// NewSentryNotifier создает уведомитель поверх hub.
func NewSentryNotifier(hub *sentry.Hub) *SentryNotifier {
	return &SentryNotifier{hub: hub}
}

// SessionExpired реализует session.Notifier.
func (n *SentryNotifier) SessionExpired(ctx context.Context, event session.Event) {
	n.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelWarning)
		scope.SetTag("reason", event.Reason)
		if id, ok := logger.GetRequestID(ctx); ok {
			scope.SetTag(logger.RequestID, id)
		}

		details := sentry.Context{
			"attempts": event.Attempts,
			"waiters":  event.Waiters,
		}
		if event.Err != nil {
			details["error"] = event.Err.Error()
		}
		scope.SetContext("session", details)

		n.hub.CaptureMessage(sentryMessage)
	})
}

// Flush дожидается отправки накопленных событий.
func (n *SentryNotifier) Flush() bool {
	return n.hub.Flush(sentryFlushTimeout)
}
