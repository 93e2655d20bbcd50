package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/ports/repository"
)

var _ repository.Locker = (*Locker)(nil)

// Locker is a single-process lock table with expiring entries.
type Locker struct {
	mu    sync.Mutex
	now   func() time.Time
	locks map[string]heldLock
}

type heldLock struct {
	token   string
	expires time.Time
}

func NewLocker(now func() time.Time) *Locker {
	if now == nil {
		now = time.Now
	}
	return &Locker{now: now, locks: make(map[string]heldLock)}
}

func (l *Locker) TryLock(_ context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if h, ok := l.locks[key]; ok && now.Before(h.expires) {
		return "", domain.ErrLockHeld
	}
	token := uuid.NewString()
	l.locks[key] = heldLock{token: token, expires: now.Add(ttl)}
	return token, nil
}

func (l *Locker) Refresh(_ context.Context, key, token string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.locks[key]
	if !ok || h.token != token || !l.now().Before(h.expires) {
		return domain.ErrLockHeld
	}
	h.expires = l.now().Add(ttl)
	l.locks[key] = h
	return nil
}

func (l *Locker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.locks[key]; ok && h.token == token {
		delete(l.locks, key)
	}
	return nil
}
