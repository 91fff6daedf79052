package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/cocina-stock-api/pkg/config"
)

func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("integración con Redis omitida en modo -short")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestRedisIdempotency_Ciclo(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()
	client, err := Connect(ctx, url)
	require.NoError(t, err)
	s := NewRedisIdempotencyStore(client, config.RedisConfig{KeyPrefix: "test:", IdempotencyTTL: time.Hour})
	t.Cleanup(func() { _ = s.Close() })

	_, started, err := s.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, started)

	cached, started, err := s.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, started)
	assert.Nil(t, cached)

	require.NoError(t, s.Complete(ctx, "k1", []byte(`{"reference":"RECIPE-x"}`)))
	cached, started, err = s.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, started)
	assert.JSONEq(t, `{"reference":"RECIPE-x"}`, string(cached))

	ttl, err := client.TTL(ctx, "test:k1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Minute)

	_, _, _ = s.Begin(ctx, "k2")
	require.NoError(t, s.Release(ctx, "k2"))
	_, started, err = s.Begin(ctx, "k2")
	require.NoError(t, err)
	assert.True(t, started)
}
