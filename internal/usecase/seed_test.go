package usecase

import (
	"context"
	"testing"
	"time"

	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/repository"
	"social-content-ai/internal/infra/db/memory"
)

func TestSeedUsers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	users := memory.NewUserRepo()
	_ = users.Save(ctx, repository.NoTX, &model.User{ID: "existing", Tier: model.TierFree, DailyUsed: 4, LastReset: "2025-03-01"})

	n, err := SeedUsers(ctx, users, map[string]string{"existing": "premium", "alice": "premium", "bob": "nonsense"}, now)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 created, got %d, %v", n, err)
	}
	u, _ := users.FindByID(ctx, repository.NoTX, "existing")
	if u.Tier != model.TierFree || u.DailyUsed != 4 {
		t.Fatalf("existing user must be untouched, got %+v", u)
	}
	a, _ := users.FindByID(ctx, repository.NoTX, "alice")
	b, _ := users.FindByID(ctx, repository.NoTX, "bob")
	if a.Tier != model.TierPremium || b.Tier != model.TierFree || a.LastReset != "2025-03-01" {
		t.Fatalf("unexpected seeded users %+v %+v", a, b)
	}

	if n, _ := SeedUsers(ctx, users, map[string]string{"alice": "free"}, now); n != 0 {
		t.Fatalf("seeding is idempotent, got %d", n)
	}
}
