// Package refresher реализует refresh.Refresher поверх транспорта.
// Вызов помечается IsRefresh и идет мимо диспетчера, поэтому его 401 никогда не ставится в очередь.
package refresher

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"revornix/internal/client/config"
	"revornix/internal/client/domain"
	refreshport "revornix/internal/client/ports/refresh"
	"revornix/internal/client/ports/transport"
	"revornix/pkg/logger"
)

// Константы для логирования.
const (
	LogCallingRefresh  = "calling refresh endpoint"
	LogRefreshRejected = "refresh endpoint rejected token"
	LogTokensRotated   = "token pair rotated"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HTTPRefresher обменивает refresh токен через POST на refresh endpoint.
type HTTPRefresher struct {
	transport transport.Transport
	path      string
}

var _ refreshport.Refresher = (*HTTPRefresher)(nil)

// New создает refresher для пути из конфигурации.
func New(t transport.Transport, cfg *config.AuthConfig) *HTTPRefresher {
	return &HTTPRefresher{transport: t, path: cfg.RefreshPath}
}

// Refresh выполняет один вызов. Любой не-2xx статус возвращается как *domain.NormalizedError.
func (r *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (*domain.Credentials, error) {
	traceID := logger.GenerateRequestID()
	ctx = logger.NewTraceIDContext(ctx, traceID)
	log := logger.Log(ctx).With(zap.String("path", r.path))

	log.Debug(ctx, LogCallingRefresh)

	resp, err := r.transport.Do(ctx, transport.Call{
		Descriptor: domain.RequestDescriptor{
			Method:    http.MethodPost,
			Target:    r.path,
			Payload:   refreshRequest{RefreshToken: refreshToken},
			IsRefresh: true,
		},
		TraceID: traceID,
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := domain.ErrorMessage(resp)
		log.Warn(ctx, LogRefreshRejected, zap.Int("status", resp.StatusCode), zap.String("message", msg))
		return nil, domain.NewStatusError(resp.StatusCode, msg)
	}

	creds, err := domain.DecodeCredentials(resp)
	if err != nil {
		return nil, err
	}
	log.Debug(ctx, LogTokensRotated)
	return creds, nil
}
