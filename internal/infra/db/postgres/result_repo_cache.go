package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/repository"
	"social-content-ai/internal/infra/metrics"
	red "social-content-ai/internal/infra/redis"
)

var _ repository.ResultRepository = (*resultRepoCacheDecorator)(nil)

// resultRepoCacheDecorator caches point lookups. Results never change after
// Save, so entries are never invalidated, only expired.
type resultRepoCacheDecorator struct {
	inner  repository.ResultRepository
	cache  red.RedisClient
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewResultRepoCacheDecorator(inner repository.ResultRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.ResultRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &resultRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func resultKey(id string) string { return fmt.Sprintf("result:id:%s", id) }

func (d *resultRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, r *model.GenerationResult) error {
	if err := d.inner.Save(ctx, tx, r); err != nil {
		return err
	}
	// Inside a transaction the row may still roll back; only warm on the plain path.
	if tx == repository.NoTX {
		d.put(ctx, r)
	}
	return nil
}

func (d *resultRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.GenerationResult, error) {
	val, err := d.cache.Get(ctx, resultKey(id))
	if err == nil {
		var res model.GenerationResult
		if json.Unmarshal([]byte(val), &res) == nil {
			metrics.IncCacheRequest("result", "hit")
			return &res, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		d.logger.Warn().Err(err).Str("result_id", id).Msg("result cache read failed")
	}

	metrics.IncCacheRequest("result", "miss")
	res, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	d.put(ctx, res)
	return res, nil
}

// FindByRequest goes to the store; a replay must see the durable row.
func (d *resultRepoCacheDecorator) FindByRequest(ctx context.Context, tx repository.Tx, userID, requestID string) (*model.GenerationResult, error) {
	return d.inner.FindByRequest(ctx, tx, userID, requestID)
}

// ListByUser is not cached; pages shift with every new result.
func (d *resultRepoCacheDecorator) ListByUser(ctx context.Context, tx repository.Tx, userID string, skip, limit int) ([]*model.GenerationResult, error) {
	metrics.IncCacheRequest("result_list", "bypass")
	return d.inner.ListByUser(ctx, tx, userID, skip, limit)
}

func (d *resultRepoCacheDecorator) put(ctx context.Context, r *model.GenerationResult) {
	b, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, resultKey(r.ID), b, d.ttl); err != nil {
		d.logger.Warn().Err(err).Str("result_id", r.ID).Msg("result cache write failed")
	}
}
