package repository

import (
	"context"
	"time"

	"social-content-ai/internal/domain/model"
)

type UsageRepository interface {
	// Append is idempotent per request id for successful entries: a second
	// success for the same request returns domain.ErrAlreadyExists. Failed
	// entries are always appended.
	Append(ctx context.Context, tx Tx, e *model.UsageEntry) error
	SummaryForDay(ctx context.Context, tx Tx, userID, day string) (*model.UsageSummary, error)
}

type ProviderCacheRepository interface {
	Upsert(ctx context.Context, tx Tx, d model.ProviderDescription, at time.Time) error
	List(ctx context.Context, tx Tx) ([]model.ProviderDescription, error)
}

// IdempotencyStore remembers request ids for a bounded window.
type IdempotencyStore interface {
	// Claim returns true the first time key is seen within ttl.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release forgets key and reports whether it was still held.
	Release(ctx context.Context, key string) (bool, error)
}
