// Package auth создает и уничтожает учетные данные: логин, регистрация, выход.
package auth

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"revornix/internal/client/config"
	"revornix/internal/client/domain"
	"revornix/internal/client/ports/credentials"
	"revornix/internal/client/ports/transport"
	"revornix/pkg/logger"
)

// Константы для логирования.
const (
	LogLoginSucceeded    = "logged in"
	LogRegisterSucceeded = "account registered"
	LogLoggedOut         = "logged out"
	LogRemoteLogoutFail  = "remote logout failed, clearing local credentials anyway"

	ErrLogin             = "login failed"
	ErrRegister          = "registration failed"
	ErrStoreCredentials  = "failed to store credentials"
	ErrClearCredentials  = "failed to clear credentials"
	ErrReadCredentials   = "failed to read credentials"
	ErrMissingCredential = "email and password are required"
)

// Dispatcher отправляет вызовы API.
type Dispatcher interface {
	Dispatch(ctx context.Context, desc domain.RequestDescriptor) (*domain.Response, error)
}

// Session управляет координатором refresh: Reset после нового входа,
// Invalidate при выходе, чтобы идущий refresh не вернул удаленные учетные данные.
type Session interface {
	Reset(ctx context.Context)
	Invalidate(ctx context.Context)
}

// LoginRequest тело запроса логина.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest тело запроса регистрации.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Service жизненный цикл учетных данных.
type Service struct {
	dispatcher Dispatcher
	transport  transport.Transport
	store      credentials.Store
	session    Session
	cfg        config.AuthConfig
}

// NewService создает сервис. transport используется только для выхода, чтобы
// 401 на logout не запускал refresh.
func NewService(
	d Dispatcher,
	t transport.Transport,
	store credentials.Store,
	session Session,
	cfg config.AuthConfig,
) *Service {
	return &Service{
		dispatcher: d,
		transport:  t,
		store:      store,
		session:    session,
		cfg:        cfg,
	}
}

// Login обменивает email и пароль на пару токенов и сохраняет ее.
func (s *Service) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return &domain.NormalizedError{
			Message: ErrMissingCredential,
			Code:    domain.CodeTransport,
			Err:     domain.ErrInvalidRequest,
		}
	}

	if err := s.obtain(ctx, s.cfg.LoginPath, LoginRequest{Email: email, Password: password}); err != nil {
		logger.Log(ctx).Warn(ctx, ErrLogin, zap.Error(err))
		return err
	}

	logger.Log(ctx).Info(ctx, LogLoginSucceeded)
	return nil
}

// Register создает аккаунт; сервер сразу выдает пару токенов.
func (s *Service) Register(ctx context.Context, req RegisterRequest) error {
	if req.Email == "" || req.Password == "" {
		return &domain.NormalizedError{
			Message: ErrMissingCredential,
			Code:    domain.CodeTransport,
			Err:     domain.ErrInvalidRequest,
		}
	}

	if err := s.obtain(ctx, s.cfg.RegisterPath, req); err != nil {
		logger.Log(ctx).Warn(ctx, ErrRegister, zap.Error(err))
		return err
	}

	logger.Log(ctx).Info(ctx, LogRegisterSucceeded)
	return nil
}

func (s *Service) obtain(ctx context.Context, path string, payload any) error {
	resp, err := s.dispatcher.Dispatch(ctx, domain.RequestDescriptor{
		Method:  http.MethodPost,
		Target:  path,
		Payload: payload,
		Public:  true,
	})
	if err != nil {
		return err
	}

	creds, err := domain.DecodeCredentials(resp)
	if err != nil {
		return domain.AsNormalized(err)
	}

	if err := s.store.Set(ctx, *creds); err != nil {
		return fmt.Errorf("%s: %w", ErrStoreCredentials, err)
	}

	s.session.Reset(ctx)
	return nil
}

// Logout сообщает серверу о выходе, если есть что отзывать, и всегда очищает хранилище.
// Ошибка сервера только логируется.
func (s *Service) Logout(ctx context.Context) error {
	log := logger.Log(ctx)

	s.session.Invalidate(ctx)

	creds, err := s.store.Get(ctx)
	if err != nil {
		log.Warn(ctx, ErrReadCredentials, zap.Error(err))
	}

	if creds.HasAccess() {
		s.remoteLogout(ctx, creds)
	}

	if err := s.store.Clear(ctx); err != nil {
		log.Error(ctx, ErrClearCredentials, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrClearCredentials, err)
	}

	log.Info(ctx, LogLoggedOut)
	return nil
}

func (s *Service) remoteLogout(ctx context.Context, creds *domain.Credentials) {
	traceID := logger.GenerateRequestID()
	ctx = logger.NewTraceIDContext(ctx, traceID)

	resp, err := s.transport.Do(ctx, transport.Call{
		Descriptor: domain.RequestDescriptor{
			Method:  http.MethodPost,
			Target:  s.cfg.LogoutPath,
			Payload: logoutRequest{RefreshToken: creds.Refresh},
		},
		AccessToken: creds.Access,
		TraceID:     traceID,
	})
	if err != nil {
		logger.Log(ctx).Warn(ctx, LogRemoteLogoutFail, zap.Error(err))
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Log(ctx).Warn(ctx, LogRemoteLogoutFail,
			zap.Int("status", resp.StatusCode),
			zap.String("message", domain.ErrorMessage(resp)))
	}
}

// Authenticated сообщает, сохранен ли токен доступа.
func (s *Service) Authenticated(ctx context.Context) (bool, error) {
	creds, err := s.store.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: %w", ErrReadCredentials, err)
	}
	return creds.HasAccess(), nil
}
