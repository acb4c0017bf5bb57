// Package credentials определяет интерфейс хранилища учетных данных.
package credentials

import (
	"context"

	"revornix/internal/client/domain"
)

// Store хранит пару токенов. Семантика last-write-wins, без логики истечения.
type Store interface {
	// Get возвращает nil, nil, если учетных данных нет.
	Get(ctx context.Context) (*domain.Credentials, error)

	Set(ctx context.Context, creds domain.Credentials) error

	Clear(ctx context.Context) error
}
