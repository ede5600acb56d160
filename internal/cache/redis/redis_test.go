package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

func TestRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("пропуск интеграционного теста в режиме -short")
	}

	ctx := context.Background()
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Не удалось запустить контейнер Redis: %v", err)
	}
	defer redisC.Terminate(ctx)

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)
	addr := host + ":" + port.Port()

	c := New(Config{Addr: addr, Prefix: "test"}, zaptest.NewLogger(t))
	defer c.Close()
	require.NoError(t, c.Ping(ctx))

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "index:/?", []byte("<html>"), time.Minute))

		got, ok, err := c.Get(ctx, "index:/?")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("<html>"), got)
	})

	t.Run("miss", func(t *testing.T) {
		got, ok, err := c.Get(ctx, "absent")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("expiry", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "short", []byte("x"), time.Second))
		assert.Eventually(t, func() bool {
			_, ok, err := c.Get(ctx, "short")
			return err == nil && !ok
		}, 5*time.Second, 100*time.Millisecond)
	})

	t.Run("Clear removes only prefixed keys", func(t *testing.T) {
		raw := goredis.NewClient(&goredis.Options{Addr: addr})
		defer raw.Close()
		require.NoError(t, raw.Set(ctx, "foreign", "keep", 0).Err())

		for _, k := range []string{"a", "b", "c"} {
			require.NoError(t, c.Set(ctx, k, []byte(k), time.Minute))
		}

		require.NoError(t, c.Clear(ctx))

		for _, k := range []string{"a", "b", "c"} {
			_, ok, err := c.Get(ctx, k)
			require.NoError(t, err)
			assert.False(t, ok, "ключ %q должен быть удален", k)
		}
		v, err := raw.Get(ctx, "foreign").Result()
		require.NoError(t, err)
		assert.Equal(t, "keep", v)
	})
}
