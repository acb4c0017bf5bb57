// Package client собирает конвейер авторизованных запросов из конфигурации:
// хранилище, транспорт, координатор refresh, диспетчер и сервис аутентификации.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"go.uber.org/zap"

	credadapters "revornix/internal/client/adapters/credentials"
	"revornix/internal/client/adapters/httptransport"
	"revornix/internal/client/adapters/refresher"
	sessionadapters "revornix/internal/client/adapters/session"
	"revornix/internal/client/app/auth"
	"revornix/internal/client/app/dispatcher"
	"revornix/internal/client/app/refresh"
	"revornix/internal/client/config"
	"revornix/internal/client/ports/credentials"
	"revornix/internal/client/ports/session"
	"revornix/internal/client/resilience"
	"revornix/pkg/logger"
)

// Константы для логирования.
const (
	LogClientReady      = "client pipeline ready"
	LogClosingStore     = "closing credential store"
	ErrCreateStore      = "failed to create credential store"
	ErrCreateSentry     = "failed to create sentry hub"
	ErrUnknownDriver    = "unknown store driver"
	ErrCloseClientParts = "failed to close client"
)

type options struct {
	httpClient *http.Client
	store      credentials.Store
	notifiers  []session.Notifier
	resetter   session.Resetter
	userOutput io.Writer
}

// Option настраивает сборку клиента.
type Option func(*options)

// WithHTTPClient подменяет http.Client транспорта.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithStore подменяет хранилище из конфигурации.
func WithStore(s credentials.Store) Option {
	return func(o *options) { o.store = s }
}

// WithNotifier добавляет получателя события "сессия истекла".
func WithNotifier(n session.Notifier) Option {
	return func(o *options) { o.notifiers = append(o.notifiers, n) }
}

// WithResetter задает действие сброса сессии (по умолчанию ничего не делает).
func WithResetter(r session.Resetter) Option {
	return func(o *options) { o.resetter = r }
}

// WithUserOutput задает, куда выводится сообщение для пользователя (по умолчанию os.Stderr).
func WithUserOutput(w io.Writer) Option {
	return func(o *options) { o.userOutput = w }
}

// Client собранный конвейер.
type Client struct {
	Dispatcher  *dispatcher.Dispatcher
	Auth        *auth.Service
	Coordinator *refresh.Coordinator
	Store       credentials.Store

	sentry  *sessionadapters.SentryNotifier
	closers []func() error
}

// New собирает клиент по конфигурации.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	o := options{userOutput: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{}

	store := o.store
	if store == nil {
		var err error
		store, err = c.newStore(ctx, &cfg.Store)
		if err != nil {
			return nil, err
		}
	}
	c.Store = store

	notifiers := sessionadapters.Notifiers{
		sessionadapters.LogNotifier{},
		sessionadapters.NewConsoleNotifier(o.userOutput),
	}
	hub, err := sessionadapters.NewSentryHub(&cfg.Sentry)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("%s: %w", ErrCreateSentry, err)
	}
	if hub != nil {
		c.sentry = sessionadapters.NewSentryNotifier(hub)
		notifiers = append(notifiers, c.sentry)
	}
	notifiers = append(notifiers, o.notifiers...)

	resetter := o.resetter
	if resetter == nil {
		resetter = sessionadapters.ResetFunc(nil)
	}

	tr := httptransport.New(&cfg.HTTP, o.httpClient)
	c.Coordinator = refresh.NewCoordinator(
		store,
		refresher.New(tr, &cfg.Auth),
		notifiers,
		resetter,
		resilience.RetryConfigFromRefresh(cfg.Refresh),
	)
	c.Dispatcher = dispatcher.New(tr, store, c.Coordinator, cfg.Refresh)
	c.Auth = auth.NewService(c.Dispatcher, tr, store, c.Coordinator, cfg.Auth)

	logger.Log(ctx).Info(ctx, LogClientReady,
		zap.String("base_url", cfg.HTTP.GetBaseURL()),
		zap.String("store_driver", cfg.Store.Driver),
		zap.Bool("sentry", hub != nil))

	return c, nil
}

func (c *Client) newStore(ctx context.Context, cfg *config.StoreConfig) (credentials.Store, error) {
	switch cfg.Driver {
	case config.StoreDriverMemory:
		return credadapters.NewMemoryStore(), nil
	case config.StoreDriverRedis:
		store, err := credadapters.NewRedisStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrCreateStore, err)
		}
		c.closers = append(c.closers, func() error {
			logger.Log(ctx).Info(ctx, LogClosingStore)
			return store.Close()
		})
		return store, nil
	default:
		return nil, fmt.Errorf("%s: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// Close сбрасывает события Sentry и закрывает хранилище.
func (c *Client) Close() error {
	if c.sentry != nil {
		c.sentry.Flush()
	}

	var errs []error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", ErrCloseClientParts, err)
	}
	return nil
}
