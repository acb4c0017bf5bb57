package domain

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

const errDecodeResponse = "failed to decode response body"

// Response успешный ответ сервера.
// Для JSON ответов Data содержит разобранную структуру, для остальных Text хранит сырой текст.
type Response struct {
	StatusCode  int
	ContentType string
	Header      http.Header
	Body        []byte
	Data        any
	Text        string
}

// IsJSON сообщает, объявлен ли ответ как JSON.
func (r *Response) IsJSON() bool {
	return IsJSONContentType(r.ContentType)
}

// Decode разбирает JSON тело в v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("%s: empty body", errDecodeResponse)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%s: %w", errDecodeResponse, err)
	}
	return nil
}

// IsJSONContentType проверяет media type, включая суффикс +json.
func IsJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// Поля JSON тела ошибки в порядке предпочтения.
var errorMessageFields = []string{"message", "detail", "error", "msg"}

// ErrorMessage извлекает человекочитаемое сообщение из неуспешного ответа:
// сначала известное JSON поле, затем сырое тело (в том числе JSON без такого поля), затем текст статуса.
func ErrorMessage(r *Response) string {
	if obj, ok := r.Data.(map[string]any); ok {
		for _, field := range errorMessageFields {
			if msg := messageFromValue(obj[field]); msg != "" {
				return msg
			}
		}
	}

	if text := strings.TrimSpace(r.Text); text != "" {
		return text
	}
	if text := strings.TrimSpace(string(r.Body)); text != "" {
		return text
	}

	if status := http.StatusText(r.StatusCode); status != "" {
		return status
	}
	return fmt.Sprintf("HTTP %d", r.StatusCode)
}

// messageFromValue поддерживает строку и список ошибок валидации вида [{"msg": "..."}].
func messageFromValue(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if m, ok := item.(map[string]any); ok {
				if msg := messageFromValue(m["msg"]); msg != "" {
					parts = append(parts, msg)
				}
				continue
			}
			if msg := messageFromValue(item); msg != "" {
				parts = append(parts, msg)
			}
		}
		return strings.Join(parts, "; ")
	default:
		return ""
	}
}
