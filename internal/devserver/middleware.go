package devserver

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"revornix/pkg/logger"
)

// Константы для логирования.
const (
	LogRequestStarted   = "request started"
	LogRequestCompleted = "request completed"
	LogRequestFailed    = "request failed"
	LogServerPanic      = "server panic"
	LogPanicResponse    = "failed to send error response after panic"

	ErrorNoAuthHeader       = "no authorization header provided"
	ErrorInvalidTokenFormat = "invalid token format"
	ErrorTokenExpired       = "token expired"
	ErrorInvalidToken       = "invalid token"
	ErrorInternal           = "internal server error"

	localsContext   = "request_context"
	localsPrincipal = "principal"
	bearerPrefix    = "Bearer "
)

// requestContext возвращает контекст запроса с request_id, положенный middleware.
func requestContext(c fiber.Ctx) context.Context {
	if ctx, ok := c.Locals(localsContext).(context.Context); ok {
		return ctx
	}
	return context.Background()
}

func principalFrom(c fiber.Ctx) (*Principal, bool) {
	p, ok := c.Locals(localsPrincipal).(*Principal)
	return p, ok
}

// newRequestIDMiddleware берет идентификатор вызова клиента из traceHeader или генерирует новый.
func newRequestIDMiddleware(traceHeader string) fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Get(traceHeader)
		ctx := logger.NewRequestIDContext(context.Background(), id)
		if id == "" {
			id, _ = logger.GetRequestID(ctx)
		}
		c.Set(traceHeader, id)
		c.Locals(localsContext, ctx)
		return c.Next()
	}
}

// newLoggerMiddleware логирует каждый запрос.
func newLoggerMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		ctx := requestContext(c)
		start := time.Now()

		log := logger.Log(ctx).With(
			zap.String("path", c.Path()),
			zap.String("method", c.Method()),
			zap.String("ip", c.IP()),
		)
		log.Debug(ctx, LogRequestStarted)

		err := c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		}
		if err != nil {
			log.Error(ctx, LogRequestFailed, append(fields, zap.Error(err))...)
			return fmt.Errorf("request processing error: %w", err)
		}

		log.Info(ctx, LogRequestCompleted, fields...)
		return nil
	}
}

// newRecoveryMiddleware превращает панику обработчика в 500.
func newRecoveryMiddleware() fiber.Handler {
	return func(c fiber.Ctx) (err error) {
		ctx := requestContext(c)

		defer func() {
			if r := recover(); r != nil {
				logger.Log(ctx).Error(ctx, LogServerPanic,
					zap.String("error", fmt.Sprintf("%v", r)),
					zap.String("stack", string(debug.Stack())))

				if sendErr := respondError(c, fiber.StatusInternalServerError, ErrorInternal); sendErr != nil {
					logger.Log(ctx).Error(ctx, LogPanicResponse, zap.Error(sendErr))
				}
				err = nil
			}
		}()

		return c.Next()
	}
}

// newAuthMiddleware проверяет Bearer токен и кладет Principal в Locals.
func newAuthMiddleware(tokens *TokenIssuer) fiber.Handler {
	return func(c fiber.Ctx) error {
		ctx := requestContext(c)

		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return respondError(c, fiber.StatusUnauthorized, ErrorNoAuthHeader)
		}
		if !strings.HasPrefix(header, bearerPrefix) {
			return respondError(c, fiber.StatusUnauthorized, ErrorInvalidTokenFormat)
		}

		principal, err := tokens.Validate(ctx, strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				return respondError(c, fiber.StatusUnauthorized, ErrorTokenExpired)
			}
			return respondError(c, fiber.StatusUnauthorized, ErrorInvalidToken)
		}

		c.Locals(localsPrincipal, principal)
		return c.Next()
	}
}

// respondError отвечает телом {"message": ...}.
func respondError(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"message": message})
}
