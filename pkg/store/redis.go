package store

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"

	"chat-widget-demo/engine/pkg/config"
	"chat-widget-demo/engine/pkg/logger"
)

var ctx = context.Background()

// RedisStore backs the durable store with Redis so separate widget host
// processes share one per-origin keyspace. Read errors are collapsed into
// "absent": the engine fails open into fresh state on any unreadable record.
type RedisStore struct {
	client *redis.Client
	prefix string
	log    *logger.Logger
}

// NewRedisStore connects using the configured Redis address. The prefix
// namespaces this origin's keys within a shared Redis instance.
func NewRedisStore(prefix string, log *logger.Logger) *RedisStore {
	cfg := config.Get()
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return &RedisStore{client: client, prefix: prefix, log: log}
}

// NewRedisStoreWithClient wraps an existing client (testing)
func NewRedisStoreWithClient(client *redis.Client, prefix string, log *logger.Logger) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, log: log}
}

func (s *RedisStore) Get(key string) ([]byte, bool) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		s.log.Warn("redis get failed, treating key as absent", "key", key, "error", err.Error())
		return nil, false
	}
	return value, true
}

func (s *RedisStore) Set(key string, value []byte) error {
	// No expiration at the store level: lifecycle is owned by the session
	// manager and the sweeper, not the storage backend.
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}

func (s *RedisStore) Delete(key string) {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		s.log.Warn("redis delete failed", "key", key, "error", err.Error())
	}
}

func (s *RedisStore) Keys(prefix string) []string {
	full, err := s.client.Keys(ctx, s.prefix+prefix+"*").Result()
	if err != nil {
		s.log.Warn("redis keys scan failed", "prefix", prefix, "error", err.Error())
		return nil
	}
	keys := make([]string, 0, len(full))
	for _, k := range full {
		keys = append(keys, strings.TrimPrefix(k, s.prefix))
	}
	return keys
}

// Ping verifies connectivity, used by health checks
func (s *RedisStore) Ping() error {
	return s.client.Ping(ctx).Err()
}
