// Command seed creates the users listed under seed_users in the config file.
// Existing users are left untouched, so it is safe to run repeatedly.
package main

import (
	"context"
	"log"
	"time"

	"social-content-ai/internal/config"
	pg "social-content-ai/internal/infra/db/postgres"
	"social-content-ai/internal/usecase"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if len(cfg.SeedUsers) == 0 {
		log.Println("no seed_users configured, nothing to do")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Store.DatabaseURI, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	n, err := usecase.SeedUsers(ctx, pg.NewUserRepo(pool), cfg.SeedUsers, time.Now())
	if err != nil {
		log.Fatalf("seed users: %v", err)
	}
	log.Printf("seeded %d of %d users", n, len(cfg.SeedUsers))
}
