package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/infrastructure/auth"
	"github.com/madrasa/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend bundles the shared-state components. Client is nil when the
// in-memory fallback is in use.
type Backend struct {
	Client    *redis.Client
	RunGuard  shared.RunGuard
	Blacklist auth.TokenBlacklist
}

// Close releases the Redis connection, if any
func (b *Backend) Close() error {
	if b.Client == nil {
		return nil
	}
	return b.Client.Close()
}

// Ping checks the Redis connection. The in-memory fallback is always healthy.
func (b *Backend) Ping(ctx context.Context) error {
	if b.Client == nil {
		return nil
	}
	return b.Client.Ping(ctx).Err()
}

// Factory connects to Redis and builds the backend
type Factory struct {
	cfg                   config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// process-local state. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new Factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:                   cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewClient opens a Redis client and pings it
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// Build connects to Redis, falling back to in-memory state when allowed
func (f *Factory) Build(ctx context.Context) (*Backend, error) {
	client, err := NewClient(ctx, f.cfg)
	if err == nil {
		f.logger.Info("Using Redis for job locks and token blacklist", zap.String("addr", f.cfg.Addr()))
		return &Backend{
			Client:    client,
			RunGuard:  NewRedisRunGuard(client),
			Blacklist: auth.NewRedisTokenBlacklist(client),
		}, nil
	}
	if !f.allowInMemoryFallback {
		return nil, err
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory job locks and token blacklist. "+
		"Jobs may run on more than one instance.",
		zap.Error(err),
	)
	return &Backend{
		RunGuard:  NewInMemoryRunGuard(),
		Blacklist: auth.NewInMemoryTokenBlacklist(),
	}, nil
}
