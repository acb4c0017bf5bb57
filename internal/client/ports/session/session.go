// Package session определяет внешних участников терминального сбоя сессии.
package session

import "context"

// Event описание терминального сбоя.
type Event struct {
	Reason   string
	Attempts int
	Waiters  int
	Err      error
}

// Notifier показывает пользователю сигнал "сессия истекла".
type Notifier interface {
	SessionExpired(ctx context.Context, event Event)
}

// Resetter переводит клиент в неаутентифицированное состояние (перезагрузка, редирект на логин).
type Resetter interface {
	ResetSession(ctx context.Context)
}
