package repository

import (
	"context"

	"social-content-ai/internal/domain/model"
)

// MaxListLimit caps ListByUser page size.
const MaxListLimit = 100

type ResultRepository interface {
	Save(ctx context.Context, tx Tx, r *model.GenerationResult) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.GenerationResult, error)
	// FindByRequest returns the result stored for a caller-supplied request
	// id. A user holds at most one result per request id.
	FindByRequest(ctx context.Context, tx Tx, userID, requestID string) (*model.GenerationResult, error)
	// ListByUser returns newest first.
	ListByUser(ctx context.Context, tx Tx, userID string, skip, limit int) ([]*model.GenerationResult, error)
}
