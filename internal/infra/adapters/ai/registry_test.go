package ai_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/adapter"
	"social-content-ai/internal/domain/ports/repository"
	ai "social-content-ai/internal/infra/adapters/ai"
	"social-content-ai/internal/infra/db/memory"
)

type stubProvider struct {
	id        string
	available bool
	calls     atomic.Int32
	gen       func(ctx context.Context) (adapter.Completion, error)
}

func (s *stubProvider) ID() string { return s.id }
func (s *stubProvider) Describe() model.ProviderDescription {
	return model.ProviderDescription{ID: s.id, Model: s.id + "-model", Available: s.available}
}
func (s *stubProvider) Generate(ctx context.Context, _ adapter.PromptSpec, _ int) (adapter.Completion, error) {
	s.calls.Add(1)
	if s.gen != nil {
		return s.gen(ctx)
	}
	return adapter.Completion{Text: "ok"}, nil
}

func ids(cs []adapter.ProviderClient) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID()
	}
	return out
}

func TestRegistry_Resolve_SkipsUnknownAndUnavailable(t *testing.T) {
	t.Parallel()
	log := zerolog.Nop()
	reg := ai.NewRegistry(&log,
		&stubProvider{id: "openai", available: false},
		&stubProvider{id: "anthropic", available: true},
		&stubProvider{id: "gemini", available: true},
	)

	got := ids(reg.Resolve([]string{"openai", "unknown_x", "anthropic"}))
	if len(got) != 1 || got[0] != "anthropic" {
		t.Fatalf("expected [anthropic], got %v", got)
	}

	got = ids(reg.Resolve([]string{" Gemini", "anthropic", "gemini"}))
	if len(got) != 2 || got[0] != "gemini" || got[1] != "anthropic" {
		t.Fatalf("expected declared order with duplicates collapsed, got %v", got)
	}

	if len(reg.Resolve([]string{"unknown_x"})) != 0 {
		t.Fatal("expected empty resolution for unknown ids only")
	}
}

func TestRegistry_MarkUnavailable(t *testing.T) {
	t.Parallel()
	log := zerolog.Nop()
	reg := ai.NewRegistry(&log, &stubProvider{id: "gemini", available: true})

	reg.MarkUnavailable("gemini")
	if reg.Available("gemini") {
		t.Fatal("expected gemini to be unavailable")
	}
	d, err := reg.Describe("gemini")
	if err != nil || d.Available {
		t.Fatalf("expected describe to reflect availability, got %+v %v", d, err)
	}
	if _, err := reg.Describe("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistry_SyncCache(t *testing.T) {
	t.Parallel()
	log := zerolog.Nop()
	reg := ai.NewRegistry(&log,
		&stubProvider{id: "openai", available: true},
		&stubProvider{id: "gemini", available: false},
	)
	cache := memory.NewProviderCacheRepo()
	reg.SyncCache(context.Background(), cache, time.Now())

	got, _ := cache.List(context.Background(), repository.NoTX)
	if len(got) != 2 || got[0].ID != "openai" || got[1].Available {
		t.Fatalf("unexpected cache contents: %+v", got)
	}
}

func TestDescribe_HidesCredentials(t *testing.T) {
	t.Parallel()
	secret := "sk-very-secret"
	c := ai.NewAnthropicAdapter(ai.Settings{Credential: secret})
	d := c.Describe()
	if !d.Available {
		t.Fatal("expected provider with credential to be available")
	}
	for _, s := range append(append([]string{d.ID, d.DisplayName, d.Model}, d.Strengths...), d.BestFor...) {
		if s == secret {
			t.Fatal("describe leaked the credential")
		}
	}
	if ai.NewAnthropicAdapter(ai.Settings{}).Describe().Available {
		t.Fatal("expected provider without credential to be unavailable")
	}
}

func TestNewLimited_BoundsConcurrency(t *testing.T) {
	t.Parallel()
	var inFlight, peak atomic.Int32
	slow := &stubProvider{id: "openai", available: true, gen: func(ctx context.Context) (adapter.Completion, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return adapter.Completion{Text: "ok"}, nil
	}}
	limited := ai.NewLimited(2, slow)[0]

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = limited.Generate(context.Background(), adapter.PromptSpec{}, 100)
		}()
	}
	wg.Wait()
	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent calls, saw %d", peak.Load())
	}
	if slow.calls.Load() != 8 {
		t.Fatalf("expected 8 calls, got %d", slow.calls.Load())
	}
}

func TestNewLimited_CancelledWhileWaiting(t *testing.T) {
	t.Parallel()
	block := make(chan struct{})
	p := &stubProvider{id: "openai", available: true, gen: func(ctx context.Context) (adapter.Completion, error) {
		<-block
		return adapter.Completion{Text: "ok"}, nil
	}}
	limited := ai.NewLimited(1, p)[0]
	go func() { _, _ = limited.Generate(context.Background(), adapter.PromptSpec{}, 100) }()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := limited.Generate(ctx, adapter.PromptSpec{}, 100)
	close(block)
	if !domain.IsTransient(err) {
		t.Fatalf("expected a transient error while waiting for a slot, got %v", err)
	}
}
