package refresh_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"revornix/internal/client/domain"
	"revornix/internal/client/ports/session"
)

type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) Refresh(ctx context.Context, refreshToken string) (*domain.Credentials, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Credentials), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SessionExpired(ctx context.Context, event session.Event) {
	m.Called(ctx, event)
}

type mockResetter struct {
	mock.Mock
}

func (m *mockResetter) ResetSession(ctx context.Context) {
	m.Called(ctx)
}

// recorder собирает результаты продолжений в порядке их вызова.
type recorder struct {
	mu      sync.Mutex
	order   []int
	results []error
	done    chan struct{}
}

func newRecorder(n int) *recorder {
	return &recorder{done: make(chan struct{}, n)}
}

func (r *recorder) continuation(id int) func(error) {
	return func(err error) {
		r.mu.Lock()
		r.order = append(r.order, id)
		r.results = append(r.results, err)
		r.mu.Unlock()
		r.done <- struct{}{}
	}
}

func (r *recorder) wait(t *testing.T, n int) {
	t.Helper()

	for range n {
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("continuations did not complete: got %d of %d", r.count(), n)
		}
	}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

func (r *recorder) snapshot() ([]int, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.order...), append([]error(nil), r.results...)
}

func requireNoMoreCalls(t *testing.T, r *recorder) {
	t.Helper()

	select {
	case <-r.done:
		require.Fail(t, "continuation resumed more than once")
	case <-time.After(50 * time.Millisecond):
	}
}
