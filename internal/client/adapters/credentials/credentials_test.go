package credentials_test

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapters "revornix/internal/client/adapters/credentials"
	"revornix/internal/client/config"
	"revornix/internal/client/domain"
	"revornix/internal/client/ports/credentials"
)

const testPrefix = "test:"

func mockRedisServer(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return s
}

func storeConfig(t *testing.T, addr string) *config.StoreConfig {
	t.Helper()

	host, portStr, _ := strings.Cut(addr, ":")
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return &config.StoreConfig{
		Driver:    config.StoreDriverRedis,
		KeyPrefix: testPrefix,
		Redis: config.RedisConfig{
			Host:           host,
			Port:           port,
			ConnectTimeout: time.Second,
			ReadTimeout:    time.Second,
			WriteTimeout:   time.Second,
			PoolSize:       2,
		},
	}
}

func newRedisStore(t *testing.T) (*adapters.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	s := mockRedisServer(t)
	store, err := adapters.NewRedisStore(context.Background(), storeConfig(t, s.Addr()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store, s
}

// storeContract общие проверки для всех реализаций Store.
func storeContract(t *testing.T, store credentials.Store) {
	ctx := context.Background()

	creds, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds, "empty store returns nil credentials")

	require.NoError(t, store.Set(ctx, domain.Credentials{Access: "tok1", Refresh: "ref1"}))
	creds, err = store.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, domain.Credentials{Access: "tok1", Refresh: "ref1"}, *creds)

	require.NoError(t, store.Set(ctx, domain.Credentials{Access: "tok2", Refresh: "ref2"}))
	creds, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok2", creds.Access, "last write wins")
	assert.Equal(t, "ref2", creds.Refresh)

	require.NoError(t, store.Clear(ctx))
	creds, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)

	require.NoError(t, store.Clear(ctx), "clearing an empty store is not an error")
}

func TestMemoryStore(t *testing.T) {
	t.Run("contract", func(t *testing.T) {
		storeContract(t, adapters.NewMemoryStore())
	})

	t.Run("returned credentials are copies", func(t *testing.T) {
		ctx := context.Background()
		store := adapters.NewMemoryStore()
		require.NoError(t, store.Set(ctx, domain.Credentials{Access: "a", Refresh: "r"}))

		creds, err := store.Get(ctx)
		require.NoError(t, err)
		creds.Access = "mutated"

		again, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "a", again.Access)
	})

	t.Run("concurrent access", func(t *testing.T) {
		ctx := context.Background()
		store := adapters.NewMemoryStore()

		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if i%2 == 0 {
					_ = store.Set(ctx, domain.Credentials{Access: strconv.Itoa(i), Refresh: "r"})
					return
				}
				_, _ = store.Get(ctx)
			}(i)
		}
		wg.Wait()

		creds, err := store.Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, creds)
		assert.Equal(t, "r", creds.Refresh)
	})
}

func TestRedisStore(t *testing.T) {
	t.Run("contract", func(t *testing.T) {
		store, _ := newRedisStore(t)
		storeContract(t, store)
	})

	t.Run("persists two string keys without ttl", func(t *testing.T) {
		store, s := newRedisStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, domain.Credentials{Access: "tok", Refresh: "ref"}))

		access, err := s.Get(testPrefix + adapters.AccessTokenKey)
		require.NoError(t, err)
		refresh, err := s.Get(testPrefix + adapters.RefreshTokenKey)
		require.NoError(t, err)

		assert.Equal(t, "tok", access)
		assert.Equal(t, "ref", refresh)
		assert.Equal(t, time.Duration(0), s.TTL(testPrefix+adapters.AccessTokenKey))
		assert.Len(t, s.Keys(), 2)
	})

	t.Run("reads credentials written by another process", func(t *testing.T) {
		store, s := newRedisStore(t)

		require.NoError(t, s.Set(testPrefix+adapters.AccessTokenKey, "external"))

		creds, err := store.Get(context.Background())
		require.NoError(t, err)
		require.NotNil(t, creds)
		assert.Equal(t, "external", creds.Access)
		assert.False(t, creds.HasRefresh())
	})

	t.Run("set without refresh removes stale refresh key", func(t *testing.T) {
		store, s := newRedisStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, domain.Credentials{Access: "a", Refresh: "r"}))
		require.NoError(t, store.Set(ctx, domain.Credentials{Access: "b"}))

		assert.False(t, s.Exists(testPrefix+adapters.RefreshTokenKey))
	})

	t.Run("returns error when redis is down", func(t *testing.T) {
		store, s := newRedisStore(t)
		s.Close()

		_, err := store.Get(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), adapters.ErrorFailedToGet)

		err = store.Set(context.Background(), domain.Credentials{Access: "a"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), adapters.ErrorFailedToSet)
	})
}

func TestNewRedisStore_ConnectionFailure(t *testing.T) {
	cfg := &config.StoreConfig{
		KeyPrefix: testPrefix,
		Redis: config.RedisConfig{
			Host:           "127.0.0.1",
			Port:           1,
			ConnectTimeout: 100 * time.Millisecond,
			ReadTimeout:    100 * time.Millisecond,
			WriteTimeout:   100 * time.Millisecond,
		},
	}

	store, err := adapters.NewRedisStore(context.Background(), cfg)

	require.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), adapters.ErrorFailedToConnect)
}
