// Package devserver эмулирует backend Revornix для разработки и сквозных тестов клиента:
// логин, регистрация, ротация refresh токенов и защищенные ресурсы.
package devserver

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"revornix/pkg/logger"
)

// Маршруты сервера.
const (
	RouteLogin       = "/user/login"
	RouteRegister    = "/user/create"
	RouteRefresh     = "/user/token/update"
	RouteLogout      = "/user/logout"
	RouteMine        = "/user/mine"
	RouteSearch      = "/document/search"
	RouteExpire      = "/dev/expire-access"
	RouteFailRefresh = "/dev/fail-refresh"
)

// Константы для логирования.
const (
	LogDemoUserCreated = "demo user created"
	LogStopping        = "stopping devserver"
	ErrCreateDemoUser  = "failed to create demo user"
	ErrorRouteNotFound = "route not found"
)

// Server HTTP сервер разработки.
type Server struct {
	app    *fiber.App
	users  *UserRegistry
	tokens *TokenIssuer

	failures     atomic.Int32
	refreshCalls atomic.Int32
}

// New создает сервер и, если настроен, демо пользователя.
func New(ctx context.Context, cfg *Config) (*Server, error) {
	s := &Server{
		users:  NewUserRegistry(cfg.JWT.BCryptCost),
		tokens: NewTokenIssuer(cfg.JWT),
	}

	if cfg.Demo.Email != "" {
		user, err := s.users.Register(ctx, cfg.Demo.Email, cfg.Demo.Username, cfg.Demo.Password)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrCreateDemoUser, err)
		}
		logger.Log(ctx).Info(ctx, LogDemoUserCreated,
			zap.String("email", user.Email),
			zap.String("user_id", user.ID))
	}

	s.app = fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	})
	s.routes(cfg.HTTP.TraceHeader)

	return s, nil
}

func (s *Server) routes(traceHeader string) {
	s.app.Use(newRequestIDMiddleware(traceHeader))
	s.app.Use(newLoggerMiddleware())
	s.app.Use(newRecoveryMiddleware())

	s.app.Post(RouteLogin, s.login)
	s.app.Post(RouteRegister, s.register)
	s.app.Post(RouteRefresh, s.refresh)
	s.app.Post(RouteLogout, s.logout)
	s.app.Get(RouteSearch, s.searchDocuments)

	s.app.Post(RouteExpire, s.expireAccess)
	s.app.Post(RouteFailRefresh, s.failRefresh)

	auth := newAuthMiddleware(s.tokens)
	s.app.Get(RouteMine, auth, s.mine)

	s.app.Use(func(c fiber.Ctx) error {
		return respondError(c, fiber.StatusNotFound, ErrorRouteNotFound)
	})
}

// Listen слушает addr до вызова Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Serve обслуживает уже открытый listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown останавливает сервер, дожидаясь активных запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log(ctx).Info(ctx, LogStopping)
	return s.app.ShutdownWithContext(ctx)
}

// ExpireAccessTokens делает все выданные токены доступа просроченными.
func (s *Server) ExpireAccessTokens(ctx context.Context) {
	s.tokens.ExpireAccessTokens(ctx)
}

// FailNextRefreshes заставляет следующие n вызовов refresh отвечать 503.
func (s *Server) FailNextRefreshes(n int) {
	s.failures.Store(int32(n))
}

// RefreshCalls возвращает число обращений к refresh endpoint.
func (s *Server) RefreshCalls() int {
	return int(s.refreshCalls.Load())
}

func (s *Server) consumeInjectedFailure() bool {
	for {
		n := s.failures.Load()
		if n <= 0 {
			return false
		}
		if s.failures.CompareAndSwap(n, n-1) {
			return true
		}
	}
}
