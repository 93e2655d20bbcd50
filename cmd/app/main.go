package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"social-content-ai/internal/application"
	"social-content-ai/internal/config"
	"social-content-ai/internal/domain/ports/repository"
	"social-content-ai/internal/infra/adapters/ai"
	"social-content-ai/internal/infra/api"
	"social-content-ai/internal/infra/api/apiv1"
	"social-content-ai/internal/infra/db/memory"
	pg "social-content-ai/internal/infra/db/postgres"
	"social-content-ai/internal/infra/logging"
	"social-content-ai/internal/infra/metrics"
	red "social-content-ai/internal/infra/redis"
	"social-content-ai/internal/infra/sched"
	"social-content-ai/internal/infra/worker"
	"social-content-ai/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

// stores groups every persistence port the process needs.
type stores struct {
	users     repository.UserRepository
	results   repository.ResultRepository
	jobs      repository.BatchJobRepository
	usage     repository.UsageRepository
	providers repository.ProviderCacheRepository
	idem      repository.IdempotencyStore
	locker    repository.Locker
	limiter   apiv1.SubmitLimiter
	close     func()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st *stores
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode: in-memory stores, nothing is persisted")
		st = memoryStores()
	} else {
		st, err = durableStores(ctx, cfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("stores")
		}
	}
	defer st.close()

	if n, err := usecase.SeedUsers(ctx, st.users, cfg.SeedUsers, time.Now()); err != nil {
		logger.Fatal().Err(err).Msg("seed users")
	} else if n > 0 {
		logger.Info().Int("users", n).Msg("seeded users")
	}

	// ---- Providers ----
	settings := make(map[string]ai.Settings, len(cfg.Providers))
	for id, p := range cfg.Providers {
		settings[id] = ai.Settings{Credential: p.Credential, Model: p.Model, BaseURL: p.BaseURL}
	}
	clients, err := ai.BuildProviders(ctx, logging.Component(logger, "providers"), nil, settings)
	if err != nil {
		logger.Fatal().Err(err).Msg("providers")
	}
	registry := ai.NewRegistry(logging.Component(logger, "registry"), ai.NewLimited(cfg.Engine.MaxConcurrency, clients...)...)
	registry.SyncCache(ctx, st.providers, time.Now().UTC())
	catalogSync := sched.NewCatalogSyncWorker(cfg.Engine.CatalogSyncInterval, registry, st.providers, logger)
	go func() { _ = catalogSync.Run(ctx) }()

	// ---- Use cases ----
	quota := usecase.NewQuotaLedger(st.users, st.usage, st.idem, cfg.TierLimits(),
		logging.Component(logger, "quota"), usecase.WithIdempotencyWindow(cfg.Idempotency.Window))
	engine := usecase.NewGenerationUseCase(registry, usecase.MustPromptAssembler(), quota, st.results, usecase.EngineConfig{
		PerCallDeadline:  cfg.PerCallDeadline(),
		MaxAttempts:      cfg.Engine.Retry.MaxAttempts,
		Backoff:          cfg.Backoff(),
		StoreRetries:     cfg.Engine.StoreRetries,
		DefaultMaxTokens: cfg.Engine.DefaultMaxTokens,
	}, logging.Component(logger, "engine"))
	batches := usecase.NewBatchUseCase(st.jobs, engine, usecase.BatchConfig{
		PerCallEstimate: time.Duration(cfg.Batch.SecondsPerCall) * time.Second,
		PersistEvery:    cfg.Batch.PersistEvery,
	}, logging.Component(logger, "batch"))
	orch := application.NewOrchestrator(engine, batches, quota, registry)

	// ---- Batch workers ----
	pool := worker.NewPool(cfg.Batch.Workers, logging.Component(logger, "pool"))
	pool.Start(ctx)
	processor := worker.NewBatchProcessor(st.jobs, batches, st.locker, worker.BatchProcessorConfig{
		PollInterval:    cfg.Batch.PollInterval,
		LockTTL:         cfg.Batch.LockTTL,
		RecoverInterval: cfg.Batch.RecoverInterval,
	}, logging.Component(logger, "batch_processor"))
	go processor.Start(ctx, pool)

	// ---- HTTP ----
	v1 := apiv1.NewServer(orch, st.limiter, cfg.API.SubmitRatePerMinute, cfg.Runtime.Dev, logging.Component(logger, "api"))
	if err := api.Serve(ctx, cfg.API.Port, api.NewRouter(v1, cfg.API.RequestTimeout, logger), logger); err != nil {
		logger.Error().Err(err).Msg("http server")
	}

	logger.Info().Msg("shutdown requested, draining batch workers")
	stop()
	pool.Stop()
}

func memoryStores() *stores {
	return &stores{
		users:     memory.NewUserRepo(),
		results:   memory.NewResultRepo(),
		jobs:      memory.NewBatchJobRepo(),
		usage:     memory.NewUsageRepo(),
		providers: memory.NewProviderCacheRepo(),
		idem:      memory.NewIdempotencyStore(nil),
		locker:    memory.NewLocker(nil),
		close:     func() {},
	}
}

func durableStores(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*stores, error) {
	pool, err := pg.NewPgxPool(ctx, cfg.Store.DatabaseURI, cfg.Store.MaxConns)
	if err != nil {
		return nil, err
	}
	go pg.ReportPoolStats(ctx, pool, 15*time.Second, logging.Component(logger, "postgres"))

	rc, err := red.NewClient(ctx, cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &stores{
		users:     pg.NewUserRepo(pool),
		results:   pg.NewResultRepoCacheDecorator(pg.NewResultRepo(pool), rc, cfg.Redis.CacheTTL, logging.Component(logger, "result_cache")),
		jobs:      pg.NewBatchJobRepo(pool),
		usage:     pg.NewUsageRepo(pool),
		providers: pg.NewProviderCacheRepo(pool),
		idem:      red.NewIdempotencyStore(rc),
		locker:    red.NewLocker(rc),
		limiter:   red.NewRateLimiter(rc),
		close: func() {
			_ = rc.Close()
			pool.Close()
		},
	}, nil
}
