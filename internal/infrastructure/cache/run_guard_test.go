package cache

import (
	"context"
	"testing"
	"time"

	"github.com/madrasa/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInMemoryRunGuard_Claim(t *testing.T) {
	ctx := context.Background()
	guard := NewInMemoryRunGuard()
	now := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	guard.now = func() time.Time { return now }

	t.Run("first claim wins", func(t *testing.T) {
		ok, err := guard.Claim(ctx, "monthly_dues:t1:2024-12-01", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = guard.Claim(ctx, "monthly_dues:t1:2024-12-01", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("keys are independent", func(t *testing.T) {
		ok, err := guard.Claim(ctx, "monthly_dues:t2:2024-12-01", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("expired claim can be taken again", func(t *testing.T) {
		now = now.Add(2 * time.Hour)
		ok, err := guard.Claim(ctx, "monthly_dues:t1:2024-12-01", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1, guard.Size())
	})

	t.Run("release frees the key", func(t *testing.T) {
		require.NoError(t, guard.Release(ctx, "monthly_dues:t1:2024-12-01"))
		ok, err := guard.Claim(ctx, "monthly_dues:t1:2024-12-01", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestFactory_FallsBackWithoutRedis(t *testing.T) {
	cfg := config.RedisConfig{Host: "127.0.0.1", Port: 1}

	t.Run("fallback allowed", func(t *testing.T) {
		backend, err := NewFactory(cfg, WithLogger(zap.NewNop())).Build(context.Background())
		require.NoError(t, err)
		defer backend.Close()

		assert.Nil(t, backend.Client)
		assert.IsType(t, &InMemoryRunGuard{}, backend.RunGuard)
		assert.NoError(t, backend.Ping(context.Background()))
	})

	t.Run("fallback disabled", func(t *testing.T) {
		_, err := NewFactory(cfg, WithInMemoryFallback(false)).Build(context.Background())
		assert.Error(t, err)
	})
}
