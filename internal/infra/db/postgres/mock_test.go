//go:build !integration

package postgres

import (
	"context"
	"time"

	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/repository"
	red "social-content-ai/internal/infra/redis"
)

// mockInnerResultRepo mocks the database repository that the result decorator wraps.
type mockInnerResultRepo struct {
	SaveFunc       func(ctx context.Context, tx repository.Tx, r *model.GenerationResult) error
	FindByIDFunc   func(ctx context.Context, tx repository.Tx, id string) (*model.GenerationResult, error)
	FindByReqFunc  func(ctx context.Context, tx repository.Tx, userID, requestID string) (*model.GenerationResult, error)
	ListByUserFunc func(ctx context.Context, tx repository.Tx, userID string, skip, limit int) ([]*model.GenerationResult, error)
}

func (m *mockInnerResultRepo) Save(ctx context.Context, tx repository.Tx, r *model.GenerationResult) error {
	return m.SaveFunc(ctx, tx, r)
}
func (m *mockInnerResultRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.GenerationResult, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerResultRepo) FindByRequest(ctx context.Context, tx repository.Tx, userID, requestID string) (*model.GenerationResult, error) {
	return m.FindByReqFunc(ctx, tx, userID, requestID)
}
func (m *mockInnerResultRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, skip, limit int) ([]*model.GenerationResult, error) {
	return m.ListByUserFunc(ctx, tx, userID, skip, limit)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
