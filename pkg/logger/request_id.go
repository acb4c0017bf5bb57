package logger

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type requestIDKeyType struct{}

type traceIDKeyType struct{}

var (
	requestIDKey = requestIDKeyType{}
	traceIDKey   = traceIDKeyType{}
)

// NewRequestIDContext создает контекст с идентификатором запроса.
// Пустой идентификатор заменяется сгенерированным.
func NewRequestIDContext(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = GenerateRequestID()
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID извлекает идентификатор запроса из контекста.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// GenerateRequestID генерирует новый идентификатор (UUID v4).
func GenerateRequestID() string {
	return uuid.New().String()
}

// NewTraceIDContext сохраняет идентификатор отдельного сетевого вызова.
// В отличие от request_id он свой у каждой попытки, включая повторы после refresh.
func NewTraceIDContext(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		traceID = GenerateRequestID()
	}
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID извлекает идентификатор сетевого вызова.
func GetTraceID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(traceIDKey).(string)
	return id, ok
}

// WithRequestID возвращает копию логгера с полем request_id, если оно есть в контексте.
func (l *Logger) WithRequestID(ctx context.Context) *Logger {
	if id, ok := GetRequestID(ctx); ok {
		return l.With(zap.String(RequestID, id))
	}
	return l
}
