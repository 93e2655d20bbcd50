package repository

import (
	"context"
	"time"

	"social-content-ai/internal/domain/model"
)

type BatchJobRepository interface {
	Create(ctx context.Context, tx Tx, job *model.BatchJob) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.BatchJob, error)
	// TransitionStatus moves the job to `to` only if its current status is one
	// of from. started_at is set when entering PROCESSING and finished_at when
	// entering a terminal status. Returns false when the guard did not match.
	TransitionStatus(ctx context.Context, tx Tx, id string, from []model.BatchStatus, to model.BatchStatus, at time.Time) (bool, error)
	// ClaimPending atomically moves the oldest PENDING job to PROCESSING.
	// Returns domain.ErrNotFound when there is nothing to claim.
	ClaimPending(ctx context.Context, at time.Time) (*model.BatchJob, error)
	// SaveProgress writes counters and result ids. It never changes status.
	SaveProgress(ctx context.Context, tx Tx, job *model.BatchJob) error
	// MarkFinished sets finished_at if it is still empty.
	MarkFinished(ctx context.Context, tx Tx, id string, at time.Time) error
	ListByStatus(ctx context.Context, tx Tx, status model.BatchStatus, limit int) ([]*model.BatchJob, error)
}
