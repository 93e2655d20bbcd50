package main

import (
	"context"
	"log"
	"time"

	"social-content-ai/internal/config"
	"social-content-ai/internal/infra/db/postgres"
	"social-content-ai/internal/infra/redis"
	"social-content-ai/internal/usecase"
)

// This script is for setting up a clean, predictable database state
// for manual end-to-end testing.
func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	// --- Connect to Postgres ---
	pool, err := postgres.NewPgxPool(ctx, cfg.Store.DatabaseURI, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	// --- Connect to Redis ---
	redisClient, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	// 1. Idempotency claims, locks and cached results all live in Redis.
	log.Println("[1/3] Wiping Redis...")
	if err := redisClient.FlushDB(ctx); err != nil {
		log.Fatalf("failed to flush redis: %v", err)
	}

	log.Println("[2/3] Wiping all existing database data...")
	_, err = pool.Exec(ctx, `
		TRUNCATE
			users, generation_results, batch_jobs, usage_ledger, providers
		RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	log.Println("[3/3] Seeding users...")
	n, err := usecase.SeedUsers(ctx, postgres.NewUserRepo(pool), cfg.SeedUsers, time.Now())
	if err != nil {
		log.Fatalf("failed to seed users: %v", err)
	}
	log.Printf("seeded %d users", n)

	log.Println("--- E2E Environment Setup Complete ---")
}
