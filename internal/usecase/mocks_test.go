// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/adapter"
	"social-content-ai/internal/domain/ports/repository"
	ai "social-content-ai/internal/infra/adapters/ai"
	"social-content-ai/internal/infra/db/memory"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// fakeProvider is a function-field ProviderClient. call counts from 1.
type fakeProvider struct {
	id        string
	available bool
	calls     atomic.Int32
	gen       func(ctx context.Context, call int, p adapter.PromptSpec) (adapter.Completion, error)
}

func newFake(id string, gen func(ctx context.Context, call int, p adapter.PromptSpec) (adapter.Completion, error)) *fakeProvider {
	return &fakeProvider{id: id, available: true, gen: gen}
}

func okText(text string) func(context.Context, int, adapter.PromptSpec) (adapter.Completion, error) {
	return func(context.Context, int, adapter.PromptSpec) (adapter.Completion, error) {
		return adapter.Completion{Text: text, TokensIn: 10, TokensOut: 20}, nil
	}
}

func (f *fakeProvider) ID() string { return f.id }
func (f *fakeProvider) Describe() model.ProviderDescription {
	return model.ProviderDescription{ID: f.id, Model: f.id + "-test", Available: f.available}
}
func (f *fakeProvider) Generate(ctx context.Context, p adapter.PromptSpec, _ int) (adapter.Completion, error) {
	n := int(f.calls.Add(1))
	return f.gen(ctx, n, p)
}

// flakyResults fails the first `failures` saves.
type flakyResults struct {
	repository.ResultRepository
	mu       sync.Mutex
	failures int
}

func (f *flakyResults) Save(ctx context.Context, tx repository.Tx, r *model.GenerationResult) error {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return errors.New("connection reset")
	}
	f.mu.Unlock()
	return f.ResultRepository.Save(ctx, tx, r)
}

type harness struct {
	users    *memory.UserRepo
	results  *memory.ResultRepo
	usage    *memory.UsageRepo
	jobs     *memory.BatchJobRepo
	registry *ai.Registry
	ledger   *quotaLedger
	engine   *generationUC
	batch    *batchUC
	now      time.Time
}

func fastEngineConfig() EngineConfig {
	return EngineConfig{
		PerCallDeadline: 2 * time.Second,
		MaxAttempts:     3,
		Backoff:         []time.Duration{10 * time.Millisecond, 40 * time.Millisecond},
		StoreRetries:    2,
	}
}

// newHarness wires the use cases over the in-memory store. resultRepo may
// wrap h.results to inject failures.
func newHarness(t *testing.T, wrap func(repository.ResultRepository) repository.ResultRepository, providers ...adapter.ProviderClient) *harness {
	t.Helper()
	h := &harness{
		users:   memory.NewUserRepo(),
		results: memory.NewResultRepo(),
		usage:   memory.NewUsageRepo(),
		jobs:    memory.NewBatchJobRepo(),
		now:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	var results repository.ResultRepository = h.results
	if wrap != nil {
		results = wrap(results)
	}
	log := newTestLogger()
	h.registry = ai.NewRegistry(log, providers...)
	clock := func() time.Time { return h.now }
	h.ledger = NewQuotaLedger(h.users, h.usage, memory.NewIdempotencyStore(clock), model.DefaultTierLimits(), log, WithClock(clock))
	h.engine = NewGenerationUseCase(h.registry, MustPromptAssembler(), h.ledger, results, fastEngineConfig(), log)
	h.batch = NewBatchUseCase(h.jobs, h.engine, BatchConfig{}, log)
	return h
}

func (h *harness) seedUser(t *testing.T, id string, tier model.Tier, used int) {
	t.Helper()
	u := &model.User{ID: id, Tier: tier, DailyUsed: used, LastReset: model.UTCDay(h.now)}
	if err := h.users.Save(context.Background(), repository.NoTX, u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func (h *harness) dailyUsed(t *testing.T, id string) int {
	t.Helper()
	u, err := h.users.FindByID(context.Background(), repository.NoTX, id)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	return u.DailyUsed
}

func request(userID string, providers ...string) model.GenerationRequest {
	return model.GenerationRequest{
		UserID:      userID,
		Category:    model.CategoryProduct,
		Platform:    model.PlatformInstagram,
		Description: "Handmade ceramic mugs, glazed in small batches",
		Providers:   providers,
		Options:     model.GenerationOptions{Length: model.LengthShort, IncludeHashtags: true},
	}
}
