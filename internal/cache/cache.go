// Package cache memoizes fully rendered HTTP responses.
//
// ResponseCache sits in front of a Cache backend: a hit returns the stored bytes
// verbatim, a miss runs the render function once and stores its output for the
// configured TTL. Two concurrent misses on the same key may both render; the last
// write wins.
package cache

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Cache - хранилище отрендеренных ответов. Реализации должны быть безопасны
// для конкурентного использования.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Clear удаляет все записи независимо от ключа.
	Clear(ctx context.Context) error
}

type RenderFunc func(ctx context.Context) ([]byte, error)

type ResponseCache struct {
	backend Cache
	ttl     time.Duration
	logger  *zap.Logger
}

func NewResponseCache(backend Cache, ttl time.Duration, logger *zap.Logger) *ResponseCache {
	return &ResponseCache{backend: backend, ttl: ttl, logger: logger}
}

func (c *ResponseCache) TTL() time.Duration {
	return c.ttl
}

// GetOrRender возвращает сохраненный ответ или рендерит и сохраняет новый.
// Ошибка рендера возвращается как есть и ничего не кэшируется. Ошибки backend
// только логируются: запрос обслуживается без кэша.
func (c *ResponseCache) GetOrRender(ctx context.Context, key string, render RenderFunc) ([]byte, error) {
	body, ok, err := c.backend.Get(ctx, key)
	switch {
	case err != nil:
		c.logger.Warn("ошибка чтения кэша", zap.String("key", key), zap.Error(err))
	case ok:
		c.logger.Debug("cache hit", zap.String("key", key))
		return body, nil
	}

	c.logger.Debug("cache miss", zap.String("key", key))
	body, err = render(ctx)
	if err != nil {
		return nil, err
	}
	if c.ttl <= 0 {
		return body, nil
	}
	if err := c.backend.Set(ctx, key, body, c.ttl); err != nil {
		c.logger.Warn("ошибка записи в кэш", zap.String("key", key), zap.Error(err))
	}
	return body, nil
}

func (c *ResponseCache) Clear(ctx context.Context) error {
	if err := c.backend.Clear(ctx); err != nil {
		return err
	}
	c.logger.Info("кэш ответов очищен")
	return nil
}

// Key строит ключ из префикса, пути и строки запроса, поэтому разные маршруты
// и разные страницы одного маршрута не пересекаются.
func Key(prefix string, u *url.URL) string {
	return prefix + ":" + u.EscapedPath() + "?" + u.RawQuery
}
