// Package transport определяет интерфейс одного сетевого вызова.
package transport

import (
	"context"

	"revornix/internal/client/domain"
)

// Call один сетевой вызов: дескриптор плюс токен доступа на момент отправки.
type Call struct {
	Descriptor  domain.RequestDescriptor
	AccessToken string
	TraceID     string
}

// Transport выполняет вызов без какой-либо логики refresh.
// Ошибка до получения ответа возвращается как *domain.NormalizedError с Code == 0.
// Любой полученный ответ (включая 4xx/5xx) возвращается как *domain.Response без ошибки.
type Transport interface {
	Do(ctx context.Context, call Call) (*domain.Response, error)
}
