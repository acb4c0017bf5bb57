// Package domain содержит типы конвейера авторизованных запросов.
package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidTokenResponse ответ логина, регистрации или refresh не содержит пары токенов.
var ErrInvalidTokenResponse = errors.New("invalid token response")

// Credentials пара непрозрачных токенов. Access и Refresh всегда
// выдаются и инвалидируются вместе.
type Credentials struct {
	Access  string `json:"access_token"`
	Refresh string `json:"refresh_token"`
}

// HasAccess сообщает, есть ли токен доступа.
func (c *Credentials) HasAccess() bool {
	return c != nil && c.Access != ""
}

// HasRefresh сообщает, есть ли refresh токен.
func (c *Credentials) HasRefresh() bool {
	return c != nil && c.Refresh != ""
}

// DecodeCredentials разбирает пару токенов из JSON ответа {access_token, refresh_token}.
// Обе части обязательны.
func DecodeCredentials(r *Response) (*Credentials, error) {
	var creds Credentials
	if err := r.Decode(&creds); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTokenResponse, err)
	}
	if !creds.HasAccess() || !creds.HasRefresh() {
		return nil, fmt.Errorf("%w: missing token", ErrInvalidTokenResponse)
	}
	return &creds, nil
}
