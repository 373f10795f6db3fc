package cache

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

// Backends accepted by NewStore.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Store is a CacheStore that holds resources.
type Store interface {
	ports.CacheStore
	io.Closer
}

// NewStore creates the cache selected by backend. The "none" backend
// returns a nil store, which disables caching.
func NewStore(ctx context.Context, backend, redisURL string) (Store, error) {
	switch backend {
	case BackendNone, "":
		return nil, nil
	case BackendMemory:
		log.Info().Msg("using in-memory translation cache")
		return NewMemoryStore(10 * time.Minute), nil
	case BackendRedis:
		if redisURL == "" {
			return nil, fmt.Errorf("redis_url is required for the redis cache backend")
		}
		store, err := NewRedisStore(ctx, redisURL, DefaultKeyPrefix)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown cache backend: %s (valid options: none, memory, redis)", backend)
}
