package config

import (
	"fmt"
	"time"
)

// Драйверы хранилища учетных данных.
const (
	StoreDriverMemory = "memory"
	StoreDriverRedis  = "redis"
)

// StoreConfig выбор и настройки хранилища учетных данных.
type StoreConfig struct {
	Driver    string      `yaml:"driver" env:"REVORNIX_STORE_DRIVER" env-default:"memory"`
	KeyPrefix string      `yaml:"key_prefix" env:"REVORNIX_STORE_KEY_PREFIX" env-default:"revornix:"`
	Redis     RedisConfig `yaml:"redis"`
}

// RedisConfig настройки подключения к Redis.
type RedisConfig struct {
	Host           string        `yaml:"host" env:"REVORNIX_REDIS_HOST" env-default:"localhost"`
	Port           int           `yaml:"port" env:"REVORNIX_REDIS_PORT" env-default:"6379"`
	Password       string        `yaml:"password" env:"REVORNIX_REDIS_PASSWORD" env-default:""`
	DB             int           `yaml:"db" env:"REVORNIX_REDIS_DB" env-default:"0"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"REVORNIX_REDIS_CONNECT_TIMEOUT" env-default:"5s"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"REVORNIX_REDIS_READ_TIMEOUT" env-default:"3s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"REVORNIX_REDIS_WRITE_TIMEOUT" env-default:"3s"`
	PoolSize       int           `yaml:"pool_size" env:"REVORNIX_REDIS_POOL_SIZE" env-default:"4"`
}

// GetAddress возвращает адрес Redis в формате host:port.
func (c *RedisConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
