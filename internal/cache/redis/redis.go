// Package redis is a cache.Cache backend shared between processes.
// All keys are namespaced with a prefix so Clear never touches foreign data.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const scanCount = 500

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Cache struct {
	rdb    *goredis.Client
	prefix string
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Cache {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewWithClient(rdb, cfg.Prefix, logger)
}

func NewWithClient(rdb *goredis.Client, prefix string, logger *zap.Logger) *Cache {
	if prefix == "" {
		prefix = "yatube"
	}
	return &Cache{rdb: rdb, prefix: prefix + ":", logger: logger}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis GET %q: %w", key, err)
	}
	return b, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %q: %w", key, err)
	}
	return nil
}

// Clear удаляет все ключи с префиксом через SCAN, без FLUSHDB.
func (c *Cache) Clear(ctx context.Context) error {
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.prefix+"*", scanCount).Result()
		if err != nil {
			return fmt.Errorf("redis SCAN: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("redis DEL: %w", err)
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Debug("redis: ключи кэша удалены", zap.String("prefix", c.prefix), zap.Int64("deleted", deleted))
	return nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}
