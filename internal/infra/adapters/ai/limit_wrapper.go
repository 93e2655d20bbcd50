package ai

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/adapter"
	"social-content-ai/internal/infra/metrics"
)

// Compile-time check
var _ adapter.ProviderClient = (*limitedProvider)(nil)

// limitedProvider bounds outbound calls with a semaphore shared by every
// provider and records per-call metrics.
type limitedProvider struct {
	inner adapter.ProviderClient
	sem   *semaphore.Weighted
}

// NewLimited wraps clients so they share one process-wide bound of
// maxConcurrent in-flight calls. maxConcurrent <= 0 disables the bound.
func NewLimited(maxConcurrent int, clients ...adapter.ProviderClient) []adapter.ProviderClient {
	var sem *semaphore.Weighted
	if maxConcurrent > 0 {
		sem = semaphore.NewWeighted(int64(maxConcurrent))
	}
	out := make([]adapter.ProviderClient, 0, len(clients))
	for _, c := range clients {
		out = append(out, &limitedProvider{inner: c, sem: sem})
	}
	return out
}

func (l *limitedProvider) ID() string { return l.inner.ID() }

func (l *limitedProvider) Describe() model.ProviderDescription { return l.inner.Describe() }

func (l *limitedProvider) Generate(ctx context.Context, p adapter.PromptSpec, maxTokens int) (adapter.Completion, error) {
	if l.sem != nil {
		if err := l.sem.Acquire(ctx, 1); err != nil {
			return adapter.Completion{}, domain.NewTransient(l.inner.ID(), 0, err)
		}
		metrics.ProviderSlotAcquired()
		defer func() {
			metrics.ProviderSlotReleased()
			l.sem.Release(1)
		}()
	}

	start := time.Now()
	c, err := l.inner.Generate(ctx, p, maxTokens)
	outcome := "ok"
	if err != nil {
		outcome = string(domain.ProviderPermanent)
		if domain.IsTransient(err) {
			outcome = string(domain.ProviderTransient)
		}
	}
	metrics.ObserveProviderCall(l.inner.ID(), l.inner.Describe().Model, outcome, c.TokensIn, c.TokensOut, time.Since(start).Milliseconds())
	return c, err
}
