package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	adapters "revornix/internal/client/adapters/credentials"
	"revornix/internal/client/adapters/httptransport"
	"revornix/internal/client/app/auth"
	"revornix/internal/client/app/refresh"
	"revornix/internal/client/config"
	"revornix/internal/client/domain"
	"revornix/internal/client/resilience"
)

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, desc domain.RequestDescriptor) (*domain.Response, error) {
	args := m.Called(ctx, desc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Response), args.Error(1)
}

type mockSession struct {
	mock.Mock
}

func (m *mockSession) Reset(ctx context.Context) {
	m.Called(ctx)
}

func (m *mockSession) Invalidate(ctx context.Context) {
	m.Called(ctx)
}

var authCfg = config.AuthConfig{
	LoginPath:    "/user/login",
	RegisterPath: "/user/create",
	RefreshPath:  "/user/token/update",
	LogoutPath:   "/user/logout",
}

func tokenResponse(t *testing.T, access, refresh string) *domain.Response {
	t.Helper()

	body, err := json.Marshal(map[string]string{"access_token": access, "refresh_token": refresh})
	require.NoError(t, err)
	return &domain.Response{StatusCode: http.StatusOK, ContentType: "application/json", Body: body}
}

type fixture struct {
	dispatcher  *mockDispatcher
	session     *mockSession
	store       *adapters.MemoryStore
	logoutCalls *atomic.Int32
	logoutAuth  *atomic.Value
	svc         *auth.Service
}

func newFixture(t *testing.T, logoutStatus int) *fixture {
	t.Helper()

	f := &fixture{
		dispatcher:  new(mockDispatcher),
		session:     new(mockSession),
		store:       adapters.NewMemoryStore(),
		logoutCalls: new(atomic.Int32),
		logoutAuth:  new(atomic.Value),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.logoutCalls.Add(1)
		f.logoutAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(logoutStatus)
	}))
	t.Cleanup(srv.Close)

	tr := httptransport.New(&config.HTTPConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}, nil)
	f.svc = auth.NewService(f.dispatcher, tr, f.store, f.session, authCfg)
	return f
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("stores credentials and resets session", func(t *testing.T) {
		f := newFixture(t, http.StatusOK)
		f.dispatcher.On("Dispatch", ctx, mock.MatchedBy(func(d domain.RequestDescriptor) bool {
			req, ok := d.Payload.(auth.LoginRequest)
			return d.Public && d.Target == "/user/login" && d.Method == http.MethodPost &&
				ok && req.Email == "demo@revornix.com"
		})).Return(tokenResponse(t, "access-1", "refresh-1"), nil).Once()
		f.session.On("Reset", ctx).Once()

		require.NoError(t, f.svc.Login(ctx, "demo@revornix.com", "secret"))

		stored, err := f.store.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.Credentials{Access: "access-1", Refresh: "refresh-1"}, *stored)

		ok, err := f.svc.Authenticated(ctx)
		require.NoError(t, err)
		assert.True(t, ok)

		f.dispatcher.AssertExpectations(t)
		f.session.AssertExpectations(t)
	})

	t.Run("wrong password leaves store untouched", func(t *testing.T) {
		f := newFixture(t, http.StatusOK)
		f.dispatcher.On("Dispatch", ctx, mock.Anything).
			Return(nil, domain.NewStatusError(http.StatusUnauthorized, "wrong password")).Once()

		err := f.svc.Login(ctx, "demo@revornix.com", "nope")
		assert.Equal(t, http.StatusUnauthorized, domain.StatusOf(err))

		stored, getErr := f.store.Get(ctx)
		require.NoError(t, getErr)
		assert.Nil(t, stored)
		f.session.AssertNotCalled(t, "Reset", mock.Anything)
	})

	t.Run("incomplete token pair is rejected", func(t *testing.T) {
		f := newFixture(t, http.StatusOK)
		f.dispatcher.On("Dispatch", ctx, mock.Anything).
			Return(tokenResponse(t, "access-1", ""), nil).Once()

		err := f.svc.Login(ctx, "demo@revornix.com", "secret")
		assert.ErrorIs(t, err, domain.ErrInvalidTokenResponse)
		f.session.AssertNotCalled(t, "Reset", mock.Anything)
	})

	t.Run("empty credentials are rejected without a call", func(t *testing.T) {
		f := newFixture(t, http.StatusOK)

		err := f.svc.Login(ctx, "", "secret")
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, http.StatusOK)

	req := auth.RegisterRequest{Email: "new@revornix.com", Username: "new", Password: "secret"}
	f.dispatcher.On("Dispatch", ctx, mock.MatchedBy(func(d domain.RequestDescriptor) bool {
		return d.Public && d.Target == "/user/create" && d.Payload == req
	})).Return(tokenResponse(t, "access-9", "refresh-9"), nil).Once()
	f.session.On("Reset", ctx).Once()

	require.NoError(t, f.svc.Register(ctx, req))

	stored, err := f.store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-9", stored.Access)
	f.session.AssertExpectations(t)
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("revokes remotely and clears store", func(t *testing.T) {
		f := newFixture(t, http.StatusOK)
		require.NoError(t, f.store.Set(ctx, domain.Credentials{Access: "access-1", Refresh: "refresh-1"}))
		f.session.On("Invalidate", ctx).Once()

		require.NoError(t, f.svc.Logout(ctx))
		f.session.AssertExpectations(t)

		assert.EqualValues(t, 1, f.logoutCalls.Load())
		assert.Equal(t, "Bearer access-1", f.logoutAuth.Load())

		ok, err := f.svc.Authenticated(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("remote rejection still clears store", func(t *testing.T) {
		f := newFixture(t, http.StatusUnauthorized)
		require.NoError(t, f.store.Set(ctx, domain.Credentials{Access: "access-1", Refresh: "refresh-1"}))
		f.session.On("Invalidate", ctx).Once()

		require.NoError(t, f.svc.Logout(ctx))

		stored, err := f.store.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, stored)
		f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})

	t.Run("nothing stored skips remote call", func(t *testing.T) {
		f := newFixture(t, http.StatusOK)
		f.session.On("Invalidate", ctx).Once()

		require.NoError(t, f.svc.Logout(ctx))
		assert.Zero(t, f.logoutCalls.Load())
	})
}

type gatedRefresher struct {
	started chan struct{}
	gate    chan struct{}
}

func (r *gatedRefresher) Refresh(context.Context, string) (*domain.Credentials, error) {
	r.started <- struct{}{}
	<-r.gate
	return &domain.Credentials{Access: "access-2", Refresh: "refresh-2"}, nil
}

func TestService_LogoutDuringRefreshKeepsStoreEmpty(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	store := adapters.NewMemoryStore()
	require.NoError(t, store.Set(ctx, domain.Credentials{Access: "access-1", Refresh: "refresh-1"}))

	refresher := &gatedRefresher{started: make(chan struct{}, 1), gate: make(chan struct{})}
	coord := refresh.NewCoordinator(store, refresher, nil, nil, resilience.DefaultRetryConfig())
	tr := httptransport.New(&config.HTTPConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}, nil)
	svc := auth.NewService(new(mockDispatcher), tr, store, coord, authCfg)

	resumed := make(chan error, 1)
	coord.OnUnauthorized(ctx, "access-1", func(err error) { resumed <- err })

	select {
	case <-refresher.started:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not start")
	}

	require.NoError(t, svc.Logout(ctx))
	close(refresher.gate)

	select {
	case err := <-resumed:
		assert.ErrorIs(t, err, domain.ErrSessionExpired)
	case <-time.After(2 * time.Second):
		t.Fatal("parked request was not resumed")
	}

	stored, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored)

	ok, err := svc.Authenticated(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_AuthenticatedStoreFailure(t *testing.T) {
	svc := auth.NewService(new(mockDispatcher), nil, failingStore{}, new(mockSession), authCfg)

	ok, err := svc.Authenticated(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), auth.ErrReadCredentials)
}

type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Get(context.Context) (*domain.Credentials, error) { return nil, errStoreDown }
func (failingStore) Set(context.Context, domain.Credentials) error    { return errStoreDown }
func (failingStore) Clear(context.Context) error                      { return errStoreDown }
