package domain

import (
	"errors"
	"fmt"
)

// Сентинельные ошибки конвейера.
var (
	// ErrTransport запрос не дошел до сервера (сеть, DNS, TLS).
	ErrTransport = errors.New("transport failure")
	// ErrSessionExpired refresh исчерпал попытки или refresh токена нет.
	ErrSessionExpired = errors.New("session expired")
	// ErrNoRefreshCredential в хранилище нет refresh токена.
	ErrNoRefreshCredential = errors.New("no refresh credential")
	// ErrSessionInvalidated пользователь вышел, пока шел refresh.
	ErrSessionInvalidated = errors.New("session invalidated by logout")
	// ErrRefreshFailed одна попытка refresh завершилась неудачей.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrInvalidRequest дескриптор запроса не удалось собрать в HTTP запрос.
	ErrInvalidRequest = errors.New("invalid request")
)

// CodeTransport код NormalizedError, когда ответа от сервера не было.
const CodeTransport = 0

// NormalizedError единственная форма ошибки, которую видит вызывающий код.
// Code == 0 означает, что запрос не дошел до сервера, Code > 0 это HTTP статус.
type NormalizedError struct {
	Message string
	Code    int
	Err     error
}

// Error реализует error.
func (e *NormalizedError) Error() string {
	if e.Code == CodeTransport {
		return e.Message
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// Unwrap позволяет errors.Is/As видеть причину.
func (e *NormalizedError) Unwrap() error {
	return e.Err
}

// OK всегда false: значение ошибки не бывает успешным.
func (e *NormalizedError) OK() bool {
	return false
}

// HTTPStatus возвращает HTTP статус или 0.
func (e *NormalizedError) HTTPStatus() int {
	return e.Code
}

// NewTransportError оборачивает ошибку транспорта.
func NewTransportError(err error) *NormalizedError {
	return &NormalizedError{
		Message: err.Error(),
		Code:    CodeTransport,
		Err:     fmt.Errorf("%w: %w", ErrTransport, err),
	}
}

// NewStatusError создает ошибку по HTTP статусу.
func NewStatusError(status int, message string) *NormalizedError {
	return &NormalizedError{Message: message, Code: status}
}

// NewSessionExpiredError создает ошибку для запросов, брошенных терминальным сбоем.
func NewSessionExpiredError() *NormalizedError {
	return &NormalizedError{
		Message: ErrSessionExpired.Error(),
		Code:    401,
		Err:     ErrSessionExpired,
	}
}

// AsNormalized приводит произвольную ошибку к NormalizedError.
// Ошибки, не несущие HTTP статуса, считаются транспортными.
func AsNormalized(err error) *NormalizedError {
	if err == nil {
		return nil
	}
	var ne *NormalizedError
	if errors.As(err, &ne) {
		return ne
	}
	return NewTransportError(err)
}

// StatusOf возвращает HTTP статус ошибки или 0.
func StatusOf(err error) int {
	var ne *NormalizedError
	if errors.As(err, &ne) {
		return ne.Code
	}
	return CodeTransport
}
