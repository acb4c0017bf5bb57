package dispatcher

import (
	"context"
	"net/http"

	"revornix/internal/client/domain"
)

// Get отправляет GET; query кодируется в строку запроса.
func (d *Dispatcher) Get(ctx context.Context, target string, query any) (*domain.Response, error) {
	return d.Dispatch(ctx, domain.RequestDescriptor{Method: http.MethodGet, Target: target, Payload: query})
}

// Post отправляет POST с JSON телом.
func (d *Dispatcher) Post(ctx context.Context, target string, body any) (*domain.Response, error) {
	return d.Dispatch(ctx, domain.RequestDescriptor{Method: http.MethodPost, Target: target, Payload: body})
}

// Put отправляет PUT с JSON телом.
func (d *Dispatcher) Put(ctx context.Context, target string, body any) (*domain.Response, error) {
	return d.Dispatch(ctx, domain.RequestDescriptor{Method: http.MethodPut, Target: target, Payload: body})
}

// Patch отправляет PATCH с JSON телом.
func (d *Dispatcher) Patch(ctx context.Context, target string, body any) (*domain.Response, error) {
	return d.Dispatch(ctx, domain.RequestDescriptor{Method: http.MethodPatch, Target: target, Payload: body})
}

// Delete отправляет DELETE; body может быть nil.
func (d *Dispatcher) Delete(ctx context.Context, target string, body any) (*domain.Response, error) {
	return d.Dispatch(ctx, domain.RequestDescriptor{Method: http.MethodDelete, Target: target, Payload: body})
}

// Upload отправляет сырое тело (файл, multipart) без JSON кодирования.
func (d *Dispatcher) Upload(ctx context.Context, target string, data []byte, contentType string) (*domain.Response, error) {
	return d.Dispatch(ctx, domain.RequestDescriptor{
		Method:  http.MethodPost,
		Target:  target,
		Payload: domain.RawBody{Data: data, ContentType: contentType},
	})
}

// DecodeInto разбирает JSON тело успешного ответа в значение типа T.
func DecodeInto[T any](resp *domain.Response, err error) (T, error) {
	var out T
	if err != nil {
		return out, err
	}
	if err := resp.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
