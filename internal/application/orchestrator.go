// Package application exposes the in-process API of the generation
// orchestrator. Transports (HTTP, schedulers, voice pipelines) call it.
package application

import (
	"context"
	"fmt"

	"social-content-ai/internal/domain/model"
)

// Orchestrator owns the provider catalog, the quota ledger and the use cases
// assembled at startup. It holds no global state.
type Orchestrator struct {
	gen       GenerationUseCaseIface
	batches   BatchUseCaseIface
	usage     UsageIface
	providers ProviderCatalog
}

func NewOrchestrator(gen GenerationUseCaseIface, batches BatchUseCaseIface, usage UsageIface, providers ProviderCatalog) *Orchestrator {
	return &Orchestrator{gen: gen, batches: batches, usage: usage, providers: providers}
}

// Generate runs one request end to end and returns the stored result.
func (o *Orchestrator) Generate(ctx context.Context, req model.GenerationRequest) (*model.GenerationResult, error) {
	return o.gen.Run(ctx, req)
}

func (o *Orchestrator) SubmitBatch(ctx context.Context, req model.BatchRequest) (*model.BatchJob, error) {
	return o.batches.Submit(ctx, req)
}

func (o *Orchestrator) GetBatch(ctx context.Context, userID, batchID string) (*model.BatchJob, error) {
	return o.batches.Get(ctx, userID, batchID)
}

func (o *Orchestrator) CancelBatch(ctx context.Context, userID, batchID string) (bool, error) {
	ok, err := o.batches.Cancel(ctx, userID, batchID)
	if err != nil {
		return false, fmt.Errorf("cancel batch %s: %w", batchID, err)
	}
	return ok, nil
}

func (o *Orchestrator) GetResult(ctx context.Context, userID, resultID string) (*model.GenerationResult, error) {
	return o.gen.Result(ctx, userID, resultID)
}

func (o *Orchestrator) ListResults(ctx context.Context, userID string, skip, limit int) ([]*model.GenerationResult, error) {
	return o.gen.History(ctx, userID, skip, limit)
}

func (o *Orchestrator) ListProviders() []model.ProviderDescription {
	return o.providers.List()
}

func (o *Orchestrator) DescribeProvider(id string) (model.ProviderDescription, error) {
	return o.providers.Describe(id)
}

// Usage aggregates a user's ledger for one UTC day; an empty day means today.
func (o *Orchestrator) Usage(ctx context.Context, userID, day string) (*model.UsageSummary, error) {
	return o.usage.Usage(ctx, userID, day)
}
