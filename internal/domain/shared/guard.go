package shared

import (
	"context"
	"time"
)

// RunGuard claims a key so that a job runs once across instances.
// Claim returns false when the key is already held.
type RunGuard interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RunReleaser is implemented by guards that can drop a claim before its
// TTL runs out
type RunReleaser interface {
	Release(ctx context.Context, key string) error
}

// NoopRunGuard grants every claim
type NoopRunGuard struct{}

// Claim always succeeds
func (NoopRunGuard) Claim(context.Context, string, time.Duration) (bool, error) { return true, nil }
