package repository

import (
	"context"
	"time"
)

// Locker grants exclusive ownership of a key across processes.
type Locker interface {
	// TryLock returns a token for Unlock, or domain.ErrLockHeld.
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Refresh extends a held lock. It returns domain.ErrLockHeld when the
	// token no longer owns key.
	Refresh(ctx context.Context, key, token string, ttl time.Duration) error
	Unlock(ctx context.Context, key, token string) error
}
