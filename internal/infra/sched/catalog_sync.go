package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"social-content-ai/internal/domain/ports/repository"
)

// CatalogSource writes the current provider descriptions to the cache.
type CatalogSource interface {
	SyncCache(ctx context.Context, repo repository.ProviderCacheRepository, now time.Time)
}

// CatalogSyncWorker periodically refreshes the providers collection so that
// providers marked unavailable at runtime show up for other processes.
type CatalogSyncWorker struct {
	interval time.Duration
	source   CatalogSource
	cache    repository.ProviderCacheRepository
	now      func() time.Time
	log      *zerolog.Logger
}

func NewCatalogSyncWorker(interval time.Duration, source CatalogSource, cache repository.ProviderCacheRepository, logger *zerolog.Logger) *CatalogSyncWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	l := logger.With().Str("component", "CatalogSyncWorker").Logger()
	return &CatalogSyncWorker{
		interval: interval,
		source:   source,
		cache:    cache,
		now:      time.Now,
		log:      &l,
	}
}

func (w *CatalogSyncWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting catalog sync worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping catalog sync worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *CatalogSyncWorker) tick(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	w.source.SyncCache(runCtx, w.cache, w.now().UTC())
}
