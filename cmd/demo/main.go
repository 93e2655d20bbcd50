// Command demo runs one generation and one batch against offline echo
// providers with in-memory stores. It needs no credentials or databases.
package main

import (
	"context"
	"log"
	"time"

	"github.com/rs/zerolog"

	"social-content-ai/internal/application"
	"social-content-ai/internal/config"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/infra/adapters/ai"
	"social-content-ai/internal/infra/db/memory"
	"social-content-ai/internal/infra/logging"
	"social-content-ai/internal/infra/worker"
	"social-content-ai/internal/usecase"
)

const demoUser = "demo-user"

func main() {
	logger := logging.New(config.LogConfig{Level: "info"}, true)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	users := memory.NewUserRepo()
	jobs := memory.NewBatchJobRepo()
	if _, err := usecase.SeedUsers(ctx, users, map[string]string{demoUser: string(model.TierPremium)}, time.Now()); err != nil {
		log.Fatalf("seed: %v", err)
	}

	registry := ai.NewRegistry(logger,
		ai.NewEchoAdapter("echo", 20*time.Millisecond),
		ai.NewEchoAdapter("mirror", 40*time.Millisecond),
	)
	quota := usecase.NewQuotaLedger(users, memory.NewUsageRepo(), memory.NewIdempotencyStore(nil), nil, logger)
	engine := usecase.NewGenerationUseCase(registry, usecase.MustPromptAssembler(), quota, memory.NewResultRepo(), usecase.DefaultEngineConfig(), logger)
	batches := usecase.NewBatchUseCase(jobs, engine, usecase.BatchConfig{PerCallEstimate: time.Second, PersistEvery: 1}, logger)
	orch := application.NewOrchestrator(engine, batches, quota, registry)

	res, err := orch.Generate(ctx, model.GenerationRequest{
		UserID:      demoUser,
		Category:    model.CategoryProduct,
		Platform:    model.PlatformInstagram,
		Description: "Hand-poured soy candle with cedar and smoked vanilla notes",
		Providers:   []string{"echo", "mirror"},
	})
	if err != nil {
		log.Fatalf("generate: %v", err)
	}
	log.Printf("generation %s via %v\n%s", res.ID, res.ProvidersUsed, res.Merged.Combined)

	pool := worker.NewPool(2, logger)
	pool.Start(ctx)
	defer pool.Stop()
	processor := worker.NewBatchProcessor(jobs, batches, memory.NewLocker(nil), worker.BatchProcessorConfig{
		PollInterval: 100 * time.Millisecond,
		LockTTL:      10 * time.Second,
	}, logger)
	go processor.Start(ctx, pool)

	job, err := orch.SubmitBatch(ctx, model.BatchRequest{
		UserID:    demoUser,
		Name:      "autumn drop",
		Category:  model.CategoryPromotion,
		Platform:  model.PlatformTikTok,
		Items:     []string{"Pumpkin spice candle", "Maple wood wick set", "Flannel gift box"},
		Providers: []string{"echo"},
	})
	if err != nil {
		log.Fatalf("submit batch: %v", err)
	}
	waitForBatch(ctx, orch, job.ID, logger)

	usage, err := orch.Usage(ctx, demoUser, "")
	if err != nil {
		log.Fatalf("usage: %v", err)
	}
	log.Printf("usage today: %d requests, %d succeeded, %d tokens", usage.Requests, usage.Succeeded, usage.TokensTotal)
}

func waitForBatch(ctx context.Context, orch *application.Orchestrator, id string, logger *zerolog.Logger) {
	t := time.NewTicker(200 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Fatalf("batch %s did not finish: %v", id, ctx.Err())
		case <-t.C:
			job, err := orch.GetBatch(ctx, demoUser, id)
			if err != nil {
				log.Fatalf("get batch: %v", err)
			}
			logger.Info().Str("batch_id", id).Str("status", string(job.Status)).Int("progress", job.Progress()).Msg("batch progress")
			if job.Status.Terminal() {
				return
			}
		}
	}
}
