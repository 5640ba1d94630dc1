package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a durable store backed by a redis hash, for deployments where
// several client processes share one session (kiosk setups, test rigs).
// The Store port is synchronous, so every call runs under a short internal
// timeout; a redis failure degrades to a miss rather than an error.
type Redis struct {
	rdb  *redis.Client
	key  string
	log  *slog.Logger
	wait time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Key is the hash holding the storage area, one field per storage key.
	Key string
}

func NewRedis(cfg RedisConfig, log *slog.Logger) *Redis {
	if cfg.Key == "" {
		cfg.Key = "lockerroom:session"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Redis{rdb: rdb, key: cfg.Key, log: log, wait: 2 * time.Second}
}

func (s *Redis) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Redis) Close() error {
	return s.rdb.Close()
}

func (s *Redis) Get(key string) (string, bool) {
	ctx, cancel := s.opCtx()
	defer cancel()

	v, err := s.rdb.HGet(ctx, s.key, key).Result()

	if err != nil {
		if err != redis.Nil {
			s.log.Warn("storage redis get failed", "key", key, "err", err)
		}

		return "", false
	}

	return v, true
}

func (s *Redis) Set(key, value string) {
	ctx, cancel := s.opCtx()
	defer cancel()

	err := s.rdb.HSet(ctx, s.key, key, value).Err()

	if err != nil {
		s.log.Warn("storage redis set failed", "key", key, "err", err)
	}
}

func (s *Redis) Remove(key string) {
	ctx, cancel := s.opCtx()
	defer cancel()

	err := s.rdb.HDel(ctx, s.key, key).Err()

	if err != nil {
		s.log.Warn("storage redis remove failed", "key", key, "err", err)
	}
}

func (s *Redis) Keys() []string {
	ctx, cancel := s.opCtx()
	defer cancel()

	keys, err := s.rdb.HKeys(ctx, s.key).Result()

	if err != nil {
		s.log.Warn("storage redis keys failed", "err", err)
		return nil
	}

	return keys
}

func (s *Redis) Clear() {
	ctx, cancel := s.opCtx()
	defer cancel()

	err := s.rdb.Del(ctx, s.key).Err()

	if err != nil {
		s.log.Warn("storage redis clear failed", "err", err)
	}
}

func (s *Redis) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.wait)
}
