// Package dispatcher единственная точка входа для авторизованных вызовов API.
// Запрос, получивший 401, паркуется до завершения общего refresh и затем переотправляется.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"revornix/internal/client/app/refresh"
	"revornix/internal/client/config"
	"revornix/internal/client/domain"
	"revornix/internal/client/ports/credentials"
	"revornix/internal/client/ports/transport"
	"revornix/pkg/logger"
)

// Константы для логирования.
const (
	LogDispatch          = "dispatching request"
	LogParked            = "request parked on 401"
	LogResumed           = "parked request resumed"
	LogReplaysExhausted  = "401 after replay, giving up"
	LogParkAbandoned     = "caller context done while parked"
	LogRequestFailed     = "request failed"
	ErrReadCredentials   = "failed to read credentials"
	ErrBufferPayload     = "failed to buffer request payload"
	ErrSessionTerminated = "session expired while request was parked"
)

// DefaultMaxReplays число повторов, если конфигурация его не задает.
const DefaultMaxReplays = 1

// UnauthorizedHandler принимает запросы, получившие 401.
type UnauthorizedHandler interface {
	OnUnauthorized(ctx context.Context, failedAccess string, cont refresh.Continuation)
}

// Dispatcher отправляет дескрипторы через транспорт и прозрачно переживает истечение токена.
type Dispatcher struct {
	transport  transport.Transport
	store      credentials.Store
	handler    UnauthorizedHandler
	maxReplays int
}

// New создает диспетчер. cfg.MaxReplays ограничивает число молчаливых повторов одного запроса;
// значение меньше 1 заменяется на DefaultMaxReplays.
func New(t transport.Transport, store credentials.Store, handler UnauthorizedHandler, cfg config.RefreshConfig) *Dispatcher {
	maxReplays := cfg.MaxReplays
	if maxReplays < 1 {
		maxReplays = DefaultMaxReplays
	}
	return &Dispatcher{
		transport:  t,
		store:      store,
		handler:    handler,
		maxReplays: maxReplays,
	}
}

// Dispatch выполняет вызов. Успех возвращает *domain.Response со статусом 2xx,
// любая ошибка возвращается как *domain.NormalizedError.
func (d *Dispatcher) Dispatch(ctx context.Context, desc domain.RequestDescriptor) (*domain.Response, error) {
	log := logger.Log(ctx).With(
		zap.String("method", desc.NormalizedMethod()),
		zap.String("target", desc.Target))

	desc, err := bufferPayload(desc)
	if err != nil {
		log.Error(ctx, ErrBufferPayload, zap.Error(err))
		return nil, &domain.NormalizedError{
			Message: err.Error(),
			Code:    domain.CodeTransport,
			Err:     fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err),
		}
	}

	for replay := 0; ; replay++ {
		resp, access, err := d.send(ctx, desc)
		if err != nil {
			log.Warn(ctx, LogRequestFailed, zap.Error(err))
			return nil, domain.AsNormalized(err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		if resp.StatusCode != http.StatusUnauthorized || !desc.Intercepts401() {
			return nil, statusError(resp)
		}

		if replay >= d.maxReplays {
			log.Warn(ctx, LogReplaysExhausted, zap.Int("replays", replay))
			return nil, statusError(resp)
		}

		log.Debug(ctx, LogParked, zap.Int("replay", replay))
		if err := d.park(ctx, access); err != nil {
			return nil, err
		}
		log.Debug(ctx, LogResumed)
	}
}

// send выполняет один сетевой вызов со свежим trace id и текущим токеном доступа.
func (d *Dispatcher) send(ctx context.Context, desc domain.RequestDescriptor) (*domain.Response, string, error) {
	var access string
	if !desc.Public {
		creds, err := d.store.Get(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", ErrReadCredentials, err)
		}
		if creds.HasAccess() {
			access = creds.Access
		}
	}

	traceID := logger.GenerateRequestID()
	ctx = logger.NewTraceIDContext(ctx, traceID)
	logger.Log(ctx).Debug(ctx, LogDispatch,
		zap.String("method", desc.NormalizedMethod()),
		zap.String("target", desc.Target),
		zap.Bool("authorized", access != ""))

	resp, err := d.transport.Do(ctx, transport.Call{
		Descriptor:  desc,
		AccessToken: access,
		TraceID:     traceID,
	})
	return resp, access, err
}

// park ставит запрос в очередь координатора и ждет продолжения или отмены ctx.
// Отмена не отзывает продолжение из очереди: оно сработает вхолостую.
func (d *Dispatcher) park(ctx context.Context, failedAccess string) error {
	resumed := make(chan error, 1)
	d.handler.OnUnauthorized(ctx, failedAccess, func(err error) {
		resumed <- err
	})

	select {
	case err := <-resumed:
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrSessionExpired) {
			logger.Log(ctx).Warn(ctx, ErrSessionTerminated)
			return domain.NewSessionExpiredError()
		}
		return domain.AsNormalized(err)
	case <-ctx.Done():
		logger.Log(ctx).Debug(ctx, LogParkAbandoned, zap.Error(ctx.Err()))
		return &domain.NormalizedError{
			Message: ctx.Err().Error(),
			Code:    domain.CodeTransport,
			Err:     ctx.Err(),
		}
	}
}

// bufferPayload читает потоковое тело в память, чтобы его можно было отправить повторно.
func bufferPayload(desc domain.RequestDescriptor) (domain.RequestDescriptor, error) {
	reader, ok := desc.Payload.(io.Reader)
	if !ok {
		return desc, nil
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return desc, err
	}
	desc.Payload = domain.RawBody{Data: data, ContentType: desc.ContentType}
	return desc, nil
}

func statusError(resp *domain.Response) *domain.NormalizedError {
	return domain.NewStatusError(resp.StatusCode, domain.ErrorMessage(resp))
}
