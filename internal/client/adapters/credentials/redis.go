package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"revornix/internal/client/config"
	"revornix/internal/client/domain"
	"revornix/internal/client/ports/credentials"
	"revornix/pkg/logger"
)

// Константы для логирования.
const (
	LogMethodGet   = "get"
	LogMethodSet   = "set"
	LogMethodClear = "clear"

	ErrorFailedToConnect = "failed to connect to redis"
	ErrorFailedToGet     = "failed to read credentials from redis"
	ErrorFailedToSet     = "failed to write credentials to redis"
	ErrorFailedToClear   = "failed to clear credentials in redis"
	ErrorFailedToClose   = "failed to close redis connection"
)

// Имена ключей. Полный ключ = префикс + имя.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// RedisStore хранит пару токенов как два строковых ключа без TTL.
type RedisStore struct {
	client     *redis.Client
	accessKey  string
	refreshKey string
}

var _ credentials.Store = (*RedisStore)(nil)

// NewRedisStore подключается к Redis и проверяет соединение.
func NewRedisStore(ctx context.Context, cfg *config.StoreConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.GetAddress(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.ConnectTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", ErrorFailedToConnect, err)
	}

	return NewRedisStoreWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisStoreWithClient оборачивает готовый клиент.
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{
		client:     client,
		accessKey:  keyPrefix + AccessTokenKey,
		refreshKey: keyPrefix + RefreshTokenKey,
	}
}

// Get читает оба ключа одним MGET. Учетных данных нет, только если отсутствуют оба ключа.
func (s *RedisStore) Get(ctx context.Context) (*domain.Credentials, error) {
	log := logger.Log(ctx).With(zap.String("method", LogMethodGet))

	values, err := s.client.MGet(ctx, s.accessKey, s.refreshKey).Result()
	if err != nil {
		log.Error(ctx, ErrorFailedToGet, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrorFailedToGet, err)
	}

	access, _ := values[0].(string)
	refresh, _ := values[1].(string)
	if access == "" && refresh == "" {
		return nil, nil
	}

	return &domain.Credentials{Access: access, Refresh: refresh}, nil
}

// Set записывает оба ключа в одной транзакции MULTI/EXEC.
func (s *RedisStore) Set(ctx context.Context, creds domain.Credentials) error {
	log := logger.Log(ctx).With(zap.String("method", LogMethodSet))

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.accessKey, creds.Access, 0)
		if creds.Refresh == "" {
			pipe.Del(ctx, s.refreshKey)
			return nil
		}
		pipe.Set(ctx, s.refreshKey, creds.Refresh, 0)
		return nil
	})
	if err != nil {
		log.Error(ctx, ErrorFailedToSet, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToSet, err)
	}

	return nil
}

// Clear удаляет оба ключа.
func (s *RedisStore) Clear(ctx context.Context) error {
	log := logger.Log(ctx).With(zap.String("method", LogMethodClear))

	if err := s.client.Del(ctx, s.accessKey, s.refreshKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
		log.Error(ctx, ErrorFailedToClear, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToClear, err)
	}

	return nil
}

// Close закрывает соединение с Redis.
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("%s: %w", ErrorFailedToClose, err)
	}
	return nil
}
