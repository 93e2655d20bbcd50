package redis

import (
	"context"
	"time"

	"social-content-ai/internal/domain/ports/repository"
)

var _ repository.IdempotencyStore = (*IdempotencyStore)(nil)

const idempotencyPrefix = "idem:"

// IdempotencyStore remembers request ids with SETNX so every process sharing
// the Redis instance sees the same window.
type IdempotencyStore struct {
	c *Client
}

func NewIdempotencyStore(c *Client) *IdempotencyStore {
	return &IdempotencyStore{c: c}
}

func (s *IdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.c.cli.SetNX(ctx, idempotencyPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) (bool, error) {
	n, err := s.c.cli.Del(ctx, idempotencyPrefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
