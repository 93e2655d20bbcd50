//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/repository"
)

func TestUserRepo_ReserveDaily(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewUserRepo(testPool)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.Save(ctx, repository.NoTX, &model.User{ID: "u1", Tier: model.TierFree, DailyUsed: 9, LastReset: "2025-03-01", CreatedAt: now}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	t.Run("last slot then exhausted", func(t *testing.T) {
		used, err := repo.ReserveDaily(ctx, repository.NoTX, "u1", "2025-03-01", 10)
		if err != nil || used != 10 {
			t.Fatalf("expected 10, nil; got %d, %v", used, err)
		}
		if _, err := repo.ReserveDaily(ctx, repository.NoTX, "u1", "2025-03-01", 10); !errors.Is(err, domain.ErrQuotaExceeded) {
			t.Fatalf("expected ErrQuotaExceeded, got %v", err)
		}
	})

	t.Run("new day resets before counting", func(t *testing.T) {
		used, err := repo.ReserveDaily(ctx, repository.NoTX, "u1", "2025-03-02", 10)
		if err != nil || used != 1 {
			t.Fatalf("expected 1 after rollover, got %d, %v", used, err)
		}
	})

	t.Run("refund only on the same day", func(t *testing.T) {
		used, err := repo.RefundDaily(ctx, repository.NoTX, "u1", "2025-03-01")
		if err != nil || used != 1 {
			t.Fatalf("stale refund must not change the counter, got %d, %v", used, err)
		}
		used, err = repo.RefundDaily(ctx, repository.NoTX, "u1", "2025-03-02")
		if err != nil || used != 0 {
			t.Fatalf("expected 0, got %d, %v", used, err)
		}
		used, _ = repo.RefundDaily(ctx, repository.NoTX, "u1", "2025-03-02")
		if used != 0 {
			t.Fatalf("refund must floor at 0, got %d", used)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if _, err := repo.ReserveDaily(ctx, repository.NoTX, "ghost", "2025-03-01", 10); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("concurrent reservations never exceed the limit", func(t *testing.T) {
		if err := repo.Save(ctx, repository.NoTX, &model.User{ID: "u2", Tier: model.TierFree, LastReset: "2025-03-01", CreatedAt: now}); err != nil {
			t.Fatal(err)
		}
		var ok int32
		var wg sync.WaitGroup
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.ReserveDaily(ctx, repository.NoTX, "u2", "2025-03-01", 10); err == nil {
					atomic.AddInt32(&ok, 1)
				}
			}()
		}
		wg.Wait()
		if ok != 10 {
			t.Fatalf("expected exactly 10 admissions, got %d", ok)
		}
	})
}

func TestResultRepo(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewResultRepo(testPool)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		r := &model.GenerationResult{
			ID:            fmt.Sprintf("r%d", i),
			UserID:        "u1",
			ProviderOrder: []string{"openai"},
			Outputs:       map[string]model.ProviderOutput{"openai": {Text: "hi", Attempts: 1}},
			Merged:        model.MergedOutput{Caption: "hi", Hashtags: []string{"#a"}},
			ProvidersUsed: []string{"openai"},
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Save(ctx, repository.NoTX, r); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	t.Run("results are immutable", func(t *testing.T) {
		err := repo.Save(ctx, repository.NoTX, &model.GenerationResult{ID: "r0", UserID: "u1", CreatedAt: base})
		if !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("FindByID round-trips the document", func(t *testing.T) {
		got, err := repo.FindByID(ctx, repository.NoTX, "r2")
		if err != nil {
			t.Fatal(err)
		}
		if got.Outputs["openai"].Text != "hi" || got.Merged.Hashtags[0] != "#a" {
			t.Fatalf("unexpected document %+v", got)
		}
		if _, err := repo.FindByID(ctx, repository.NoTX, "missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("FindByRequest is scoped to the user", func(t *testing.T) {
		r := &model.GenerationResult{ID: "rq1", UserID: "u1", CreatedAt: base}
		r.Request.RequestID = "req-9"
		if err := repo.Save(ctx, repository.NoTX, r); err != nil {
			t.Fatal(err)
		}
		got, err := repo.FindByRequest(ctx, repository.NoTX, "u1", "req-9")
		if err != nil || got.ID != "rq1" {
			t.Fatalf("expected rq1, got %v %v", got, err)
		}
		if _, err := repo.FindByRequest(ctx, repository.NoTX, "u2", "req-9"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		dup := &model.GenerationResult{ID: "rq2", UserID: "u1", CreatedAt: base}
		dup.Request.RequestID = "req-9"
		if err := repo.Save(ctx, repository.NoTX, dup); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("ListByUser is newest first and paged", func(t *testing.T) {
		page, err := repo.ListByUser(ctx, repository.NoTX, "u1", 1, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(page) != 2 || page[0].ID != "r3" || page[1].ID != "r2" {
			t.Fatalf("unexpected page %v", ids(page))
		}
	})
}

func ids(rs []*model.GenerationResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestBatchJobRepo_Lifecycle(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewBatchJobRepo(testPool)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	req := model.BatchRequest{
		UserID: "u1", Name: "spring", Category: model.CategoryProduct, Platform: model.PlatformInstagram,
		Items: []string{"a", "b", "c"}, Providers: []string{"openai", "gemini"},
	}
	job := model.NewBatchJob("b1", req, now, 5*time.Second)
	if err := repo.Create(ctx, repository.NoTX, job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	later := model.NewBatchJob("b2", req, now.Add(time.Second), 5*time.Second)
	if err := repo.Create(ctx, repository.NoTX, later); err != nil {
		t.Fatalf("Create: %v", err)
	}

	claimed, err := repo.ClaimPending(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("ClaimPending: %v", err)
	}
	if claimed.ID != "b1" || claimed.Status != model.BatchProcessing || claimed.StartedAt == nil {
		t.Fatalf("expected oldest job claimed as PROCESSING, got %+v", claimed)
	}
	if claimed.Items[2] != "c" || len(claimed.ResultIDs) != 3 {
		t.Fatalf("params not restored: %+v", claimed)
	}

	claimed.RecordSuccess(0, "r0")
	claimed.RecordFailure(1)
	if err := repo.SaveProgress(ctx, repository.NoTX, claimed); err != nil {
		t.Fatalf("SaveProgress: %v", err)
	}
	got, _ := repo.FindByID(ctx, repository.NoTX, "b1")
	if got.Cursor() != 2 || got.ResultIDs[0] == nil || *got.ResultIDs[0] != "r0" || got.ResultIDs[1] != nil {
		t.Fatalf("progress not persisted: %+v", got)
	}

	ok, err := repo.TransitionStatus(ctx, repository.NoTX, "b1", []model.BatchStatus{model.BatchPending}, model.BatchCancelled, now)
	if err != nil || ok {
		t.Fatalf("guard must reject PROCESSING->CANCELLED from [PENDING], got %v, %v", ok, err)
	}
	ok, err = repo.TransitionStatus(ctx, repository.NoTX, "b1", []model.BatchStatus{model.BatchProcessing}, model.BatchPartiallyCompleted, now.Add(2*time.Minute))
	if err != nil || !ok {
		t.Fatalf("expected terminal transition, got %v, %v", ok, err)
	}
	got, _ = repo.FindByID(ctx, repository.NoTX, "b1")
	if got.FinishedAt == nil {
		t.Fatal("finished_at must be set on a terminal status")
	}
	if err := repo.SaveProgress(ctx, repository.NoTX, got); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("progress after a terminal status must fail, got %v", err)
	}

	pending, err := repo.ListByStatus(ctx, repository.NoTX, model.BatchPending, 10)
	if err != nil || len(pending) != 1 || pending[0].ID != "b2" {
		t.Fatalf("expected b2 pending, got %v, %v", pending, err)
	}
	if _, err := repo.ClaimPending(ctx, now); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.ClaimPending(ctx, now); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on an empty queue, got %v", err)
	}
}

func TestUsageRepo(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewUsageRepo(testPool)
	day := time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)

	entries := []*model.UsageEntry{
		{ID: "e1", RequestID: "req-1", UserID: "u1", Timestamp: day, ProvidersUsed: []string{"openai"}, Success: true, TokensTotal: 120},
		{ID: "e2", RequestID: "req-2", UserID: "u1", Timestamp: day, Success: false},
		{ID: "e3", RequestID: "req-3", UserID: "u1", Timestamp: day.Add(2 * time.Minute), Success: true, TokensTotal: 50},
	}
	for _, e := range entries {
		if err := repo.Append(ctx, repository.NoTX, e); err != nil {
			t.Fatalf("Append %s: %v", e.ID, err)
		}
	}
	dup := *entries[0]
	dup.ID = "e4"
	if err := repo.Append(ctx, repository.NoTX, &dup); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for a repeated request id, got %v", err)
	}
	retry := &model.UsageEntry{ID: "e5", RequestID: "req-2", UserID: "u1", Timestamp: day, Success: false}
	if err := repo.Append(ctx, repository.NoTX, retry); err != nil {
		t.Fatalf("expected a repeated failure to be recorded, got %v", err)
	}

	s, err := repo.SummaryForDay(ctx, repository.NoTX, "u1", "2025-03-01")
	if err != nil {
		t.Fatal(err)
	}
	if s.Requests != 3 || s.Succeeded != 1 || s.TokensTotal != 120 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestProviderCacheRepo(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewProviderCacheRepo(testPool)
	at := time.Now().UTC()

	d := model.ProviderDescription{ID: "openai", DisplayName: "OpenAI", Model: "gpt-4o-mini", Available: true}
	if err := repo.Upsert(ctx, repository.NoTX, d, at); err != nil {
		t.Fatal(err)
	}
	d.Available = false
	if err := repo.Upsert(ctx, repository.NoTX, d, at.Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	list, err := repo.List(ctx, repository.NoTX)
	if err != nil || len(list) != 1 || list[0].Available {
		t.Fatalf("expected one updated row, got %+v, %v", list, err)
	}
}
