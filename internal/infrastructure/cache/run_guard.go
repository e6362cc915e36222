// Package cache provides the Redis-backed job locks and token blacklist
// shared by every server instance.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const runGuardPrefix = "madrasa:run:"

// RedisRunGuard claims job keys with SET NX so that only one instance runs
// a job for a given tenant and day
type RedisRunGuard struct {
	client    redis.Cmdable
	keyPrefix string
}

// NewRedisRunGuard creates a guard on an existing client
func NewRedisRunGuard(client redis.Cmdable) *RedisRunGuard {
	return &RedisRunGuard{client: client, keyPrefix: runGuardPrefix}
}

// Claim sets the key if it does not exist. It returns false when another
// run already holds it.
func (g *RedisRunGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.keyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	return ok, nil
}

// Release drops a claim, allowing the job to run again
func (g *RedisRunGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release %s: %w", key, err)
	}
	return nil
}

var _ shared.RunGuard = (*RedisRunGuard)(nil)

// InMemoryRunGuard is a single-process guard for tests and deployments
// without Redis
type InMemoryRunGuard struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewInMemoryRunGuard creates an empty guard
func NewInMemoryRunGuard() *InMemoryRunGuard {
	return &InMemoryRunGuard{entries: make(map[string]time.Time), now: time.Now}
}

// Claim grants the key unless an unexpired claim exists
func (g *InMemoryRunGuard) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if expires, ok := g.entries[key]; ok && now.Before(expires) {
		return false, nil
	}
	g.entries[key] = now.Add(ttl)
	g.sweep(now)
	return true, nil
}

// Release drops a claim
func (g *InMemoryRunGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, key)
	return nil
}

// Size returns the number of live claims
func (g *InMemoryRunGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sweep(g.now())
	return len(g.entries)
}

func (g *InMemoryRunGuard) sweep(now time.Time) {
	for k, expires := range g.entries {
		if !now.Before(expires) {
			delete(g.entries, k)
		}
	}
}

var _ shared.RunGuard = (*InMemoryRunGuard)(nil)
