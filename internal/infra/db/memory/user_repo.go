// Package memory keeps every repository port in-process. It backs the demo
// binary and the use-case tests.
package memory

import (
	"context"
	"sync"
	"time"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

type UserRepo struct {
	mu    sync.Mutex
	users map[string]model.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]model.User)}
}

func (r *UserRepo) Save(_ context.Context, _ repository.Tx, u *model.User) error {
	if u == nil || u.ID == "" {
		return domain.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	r.users[u.ID] = cp
	return nil
}

func (r *UserRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepo) ReserveDaily(_ context.Context, _ repository.Tx, userID, day string, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if u.LastReset != day {
		u.DailyUsed = 0
		u.LastReset = day
	}
	if limit >= 0 && u.DailyUsed >= limit {
		r.users[userID] = u
		return u.DailyUsed, domain.ErrQuotaExceeded
	}
	u.DailyUsed++
	r.users[userID] = u
	return u.DailyUsed, nil
}

func (r *UserRepo) RefundDaily(_ context.Context, _ repository.Tx, userID, day string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if u.LastReset == day && u.DailyUsed > 0 {
		u.DailyUsed--
		r.users[userID] = u
	}
	return u.DailyUsed, nil
}
