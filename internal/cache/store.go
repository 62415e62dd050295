// Package cache holds short-lived derived data (the special-day calendar)
// and the lock that keeps lifecycle sweeps from overlapping. Redis backs
// both when configured; the memory implementations serve a single process.
package cache

import (
	"context"
	"time"
)

type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Locker hands out expiring, token-guarded locks. Release only removes a lock
// still held under the same token.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}
