package config

import "time"

const (
	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
)

type StoreConfig interface {
	GetStoreBackend() string
	GetSweepInterval() time.Duration
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetStoreBackend() string {
	if GetEnv("SESSION_STORE", StoreBackendMemory) == StoreBackendRedis {
		return StoreBackendRedis
	}
	return StoreBackendMemory
}

// GetSweepInterval of zero disables the background sweep of the memory store.
func (Store) GetSweepInterval() time.Duration {
	seconds := GetEnvInt("SESSION_SWEEP_INTERVAL_SECONDS", 60)
	if seconds < 0 {
		seconds = 0
	}
	return time.Duration(seconds) * time.Second
}

func (Store) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Store) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Store) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}

func (Store) GetRedisKeyPrefix() string {
	return GetEnv("REDIS_KEY_PREFIX", "mergington:")
}
