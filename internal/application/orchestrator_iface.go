package application

import (
	"context"

	"social-content-ai/internal/domain/model"
)

// ---- small interfaces to decouple the facade from concrete use cases ----

type GenerationUseCaseIface interface {
	Run(ctx context.Context, req model.GenerationRequest) (*model.GenerationResult, error)
	Result(ctx context.Context, userID, id string) (*model.GenerationResult, error)
	History(ctx context.Context, userID string, skip, limit int) ([]*model.GenerationResult, error)
}

type BatchUseCaseIface interface {
	Submit(ctx context.Context, req model.BatchRequest) (*model.BatchJob, error)
	Get(ctx context.Context, userID, id string) (*model.BatchJob, error)
	Cancel(ctx context.Context, userID, id string) (bool, error)
}

type UsageIface interface {
	Usage(ctx context.Context, userID string, day string) (*model.UsageSummary, error)
}

// ProviderCatalog is the read-only view of the provider registry.
type ProviderCatalog interface {
	List() []model.ProviderDescription
	Describe(id string) (model.ProviderDescription, error)
}
