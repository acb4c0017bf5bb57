package domain

import (
	"net/http"
	"strings"
)

// RequestDescriptor описывает один логический вызов API.
// Повторная отправка того же дескриптора после refresh должна быть безопасной.
type RequestDescriptor struct {
	Method string
	// Target путь относительно BaseURL или абсолютный URL.
	Target string
	// Payload кодируется в тело для изменяющих методов и в query для читающих.
	// []byte, io.Reader и RawBody отправляются как есть.
	Payload any
	// ContentType переопределяет Content-Type для сырых тел.
	ContentType string
	// Header дополнительные заголовки вызова.
	Header http.Header
	// IsRefresh помечает вызов refresh endpoint: его 401 никогда не ставится в очередь.
	IsRefresh bool
	// Public вызов без токена доступа (логин, регистрация); 401 возвращается вызывающему как есть.
	Public bool
}

// RawBody тело, которое отправляется без JSON кодирования (файлы, multipart).
type RawBody struct {
	Data        []byte
	ContentType string
}

// NormalizedMethod возвращает метод в верхнем регистре, GET по умолчанию.
func (d RequestDescriptor) NormalizedMethod() string {
	if d.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(d.Method)
}

// EncodesInQuery сообщает, кодируется ли Payload в строку запроса.
func (d RequestDescriptor) EncodesInQuery() bool {
	switch d.NormalizedMethod() {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// Intercepts401 сообщает, должен ли 401 этого вызова запускать refresh.
func (d RequestDescriptor) Intercepts401() bool {
	return !d.IsRefresh && !d.Public
}
