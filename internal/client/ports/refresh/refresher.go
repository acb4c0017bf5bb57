// Package refresh определяет интерфейс вызова refresh endpoint.
package refresh

import (
	"context"

	"revornix/internal/client/domain"
)

// Refresher обменивает refresh токен на новую пару.
// Реализация не должна проходить через перехват 401 диспетчера.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*domain.Credentials, error)
}
