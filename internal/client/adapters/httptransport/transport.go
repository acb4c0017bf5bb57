// Package httptransport реализует transport.Transport поверх net/http.
package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"revornix/internal/client/config"
	"revornix/internal/client/domain"
	"revornix/internal/client/ports/transport"
	"revornix/pkg/logger"
)

// Имена заголовков и media types.
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderUserAgent     = "User-Agent"

	BearerPrefix    = "Bearer "
	ContentTypeJSON = "application/json"
)

// Константы для логирования.
const (
	LogSendingRequest    = "sending request"
	LogResponseReceived  = "response received"
	LogTransportFailure  = "request did not reach the server"
	ErrBuildRequest      = "failed to build request"
	ErrEncodePayload     = "failed to encode payload"
	ErrReadResponseBody  = "failed to read response body"
	ErrDecodeJSONPayload = "failed to decode JSON response"
)

// Transport выполняет HTTP вызовы относительно BaseURL.
type Transport struct {
	client      *http.Client
	baseURL     string
	traceHeader string
	userAgent   string
}

var _ transport.Transport = (*Transport)(nil)

// New создает транспорт. client может быть nil, тогда создается http.Client с таймаутом из cfg.
func New(cfg *config.HTTPConfig, client *http.Client) *Transport {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	traceHeader := cfg.TraceHeader
	if traceHeader == "" {
		traceHeader = "X-Request-Id"
	}
	return &Transport{
		client:      client,
		baseURL:     cfg.GetBaseURL(),
		traceHeader: traceHeader,
		userAgent:   cfg.UserAgent,
	}
}

// TraceHeader возвращает имя заголовка идентификатора вызова.
func (t *Transport) TraceHeader() string {
	return t.traceHeader
}

// Do выполняет вызов. Ответ с любым статусом возвращается без ошибки.
func (t *Transport) Do(ctx context.Context, call transport.Call) (*domain.Response, error) {
	desc := call.Descriptor
	method := desc.NormalizedMethod()

	log := logger.Log(ctx).With(
		zap.String("method", method),
		zap.String("target", desc.Target),
		zap.Bool("refresh_call", desc.IsRefresh),
	)

	req, err := t.buildRequest(ctx, call)
	if err != nil {
		log.Error(ctx, ErrBuildRequest, zap.Error(err))
		return nil, &domain.NormalizedError{
			Message: err.Error(),
			Code:    domain.CodeTransport,
			Err:     fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err),
		}
	}

	log.Debug(ctx, LogSendingRequest, zap.String("url", req.URL.String()))
	start := time.Now()

	resp, err := t.client.Do(req)
	if err != nil {
		log.Warn(ctx, LogTransportFailure, zap.Error(err))
		return nil, domain.NewTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// Сервер уже ответил статусом, поэтому код ошибки не 0.
		log.Warn(ctx, ErrReadResponseBody, zap.Int("status", resp.StatusCode), zap.Error(err))
		return nil, &domain.NormalizedError{
			Message: fmt.Sprintf("%s: %v", ErrReadResponseBody, err),
			Code:    resp.StatusCode,
			Err:     fmt.Errorf("%s: %w", ErrReadResponseBody, err),
		}
	}

	out := &domain.Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get(HeaderContentType),
		Header:      resp.Header,
		Body:        body,
	}
	parseBody(ctx, log, out)

	log.Debug(ctx, LogResponseReceived,
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	return out, nil
}

// parseBody раскладывает тело по типу содержимого. Некорректный JSON отдается как текст.
func parseBody(ctx context.Context, log *logger.Logger, resp *domain.Response) {
	if len(resp.Body) == 0 {
		return
	}
	if resp.IsJSON() {
		var data any
		dec := json.NewDecoder(bytes.NewReader(resp.Body))
		dec.UseNumber()
		err := dec.Decode(&data)
		if err == nil {
			resp.Data = data
			return
		}
		log.Debug(ctx, ErrDecodeJSONPayload, zap.Error(err))
	}
	resp.Text = string(resp.Body)
}

func (t *Transport) buildRequest(ctx context.Context, call transport.Call) (*http.Request, error) {
	desc := call.Descriptor
	method := desc.NormalizedMethod()

	target, err := t.resolve(desc.Target)
	if err != nil {
		return nil, err
	}

	var (
		body        io.Reader
		contentType = ContentTypeJSON
	)

	if desc.EncodesInQuery() {
		values, err := EncodeQuery(desc.Payload)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrEncodePayload, err)
		}
		if len(values) > 0 {
			q := target.Query()
			for k, vs := range values {
				for _, v := range vs {
					q.Add(k, v)
				}
			}
			target.RawQuery = q.Encode()
		}
	} else {
		body, contentType, err = encodeBody(desc.Payload)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrEncodePayload, err)
		}
	}
	if desc.ContentType != "" {
		contentType = desc.ContentType
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}

	for k, vs := range desc.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set(HeaderContentType, contentType)
	}
	if req.Header.Get(HeaderAccept) == "" {
		req.Header.Set(HeaderAccept, ContentTypeJSON)
	}
	if t.userAgent != "" {
		req.Header.Set(HeaderUserAgent, t.userAgent)
	}
	if call.TraceID != "" {
		req.Header.Set(t.traceHeader, call.TraceID)
	}
	if call.AccessToken != "" {
		req.Header.Set(HeaderAuthorization, BearerPrefix+call.AccessToken)
	}

	return req, nil
}

func (t *Transport) resolve(target string) (*url.URL, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return url.Parse(target)
	}
	if target != "" && !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	return url.Parse(t.baseURL + target)
}

// encodeBody возвращает тело и Content-Type. Пустой Content-Type означает,
// что заголовок не выставляется (сырые и бинарные тела).
func encodeBody(payload any) (io.Reader, string, error) {
	switch p := payload.(type) {
	case nil:
		return nil, ContentTypeJSON, nil
	case domain.RawBody:
		return bytes.NewReader(p.Data), p.ContentType, nil
	case *domain.RawBody:
		return bytes.NewReader(p.Data), p.ContentType, nil
	case []byte:
		return bytes.NewReader(p), "", nil
	case io.Reader:
		return p, "", nil
	case json.RawMessage:
		return bytes.NewReader(p), ContentTypeJSON, nil
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), ContentTypeJSON, nil
	}
}
