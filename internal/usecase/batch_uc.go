// File: internal/usecase/batch_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/repository"
	"social-content-ai/internal/infra/logging"
	"social-content-ai/internal/infra/metrics"
)

// Compile-time check
var _ BatchUseCase = (*batchUC)(nil)

type BatchUseCase interface {
	Submit(ctx context.Context, req model.BatchRequest) (*model.BatchJob, error)
	Get(ctx context.Context, userID, id string) (*model.BatchJob, error)
	Cancel(ctx context.Context, userID, id string) (bool, error)
	// Process runs a job that is already PROCESSING, starting at its cursor.
	// It returns ctx.Err() when stopped by shutdown; the job then stays
	// PROCESSING and is resumed later.
	Process(ctx context.Context, job *model.BatchJob) error
}

type BatchConfig struct {
	PerCallEstimate time.Duration
	PersistEvery    int
}

type batchUC struct {
	jobs   repository.BatchJobRepository
	engine GenerationUseCase
	cfg    BatchConfig
	now    func() time.Time
	log    *zerolog.Logger
}

func NewBatchUseCase(jobs repository.BatchJobRepository, engine GenerationUseCase, cfg BatchConfig, logger *zerolog.Logger) *batchUC {
	if cfg.PerCallEstimate <= 0 {
		cfg.PerCallEstimate = 5 * time.Second
	}
	if cfg.PersistEvery <= 0 {
		cfg.PersistEvery = 1
	}
	return &batchUC{jobs: jobs, engine: engine, cfg: cfg, now: time.Now, log: logger}
}

func (b *batchUC) Submit(ctx context.Context, req model.BatchRequest) (*model.BatchJob, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	job := model.NewBatchJob(uuid.NewString(), req, b.now().UTC(), b.cfg.PerCallEstimate)
	if err := b.jobs.Create(ctx, repository.NoTX, job); err != nil {
		return nil, err
	}
	b.log.Info().
		Str("batch_id", job.ID).
		Str("user_id", job.UserID).
		Int("items", job.Total).
		Time("estimated_completion", job.EstimatedCompletion).
		Msg("batch submitted")
	return job, nil
}

func (b *batchUC) Get(ctx context.Context, userID, id string) (*model.BatchJob, error) {
	job, err := b.jobs.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

// Cancel reports false when the job had already reached a terminal status.
func (b *batchUC) Cancel(ctx context.Context, userID, id string) (bool, error) {
	if _, err := b.Get(ctx, userID, id); err != nil {
		return false, err
	}
	ok, err := b.jobs.TransitionStatus(ctx, repository.NoTX, id,
		[]model.BatchStatus{model.BatchPending, model.BatchProcessing}, model.BatchCancelled, b.now().UTC())
	if err != nil {
		return false, err
	}
	if ok {
		b.log.Info().Str("batch_id", id).Str("user_id", userID).Msg("batch cancelled")
	}
	return ok, nil
}

func (b *batchUC) Process(ctx context.Context, job *model.BatchJob) error {
	ctx = logging.WithBatchID(logging.WithUserID(ctx, job.UserID), job.ID)
	log := logging.With(ctx, b.log)
	if job.Status != model.BatchProcessing {
		return fmt.Errorf("process batch %s in status %s: %w", job.ID, job.Status, domain.ErrInvalidTransition)
	}

	dirty := 0
	flush := func() {
		if dirty == 0 {
			return
		}
		if err := b.jobs.SaveProgress(context.WithoutCancel(ctx), repository.NoTX, job); err != nil {
			log.Warn().Err(err).Msg("persist batch progress failed")
			return
		}
		dirty = 0
	}

	for i := job.Cursor(); i < job.Total; i++ {
		if ctx.Err() != nil {
			flush()
			return ctx.Err()
		}
		if cancelled, err := b.cancelled(ctx, job.ID); err != nil {
			log.Warn().Err(err).Msg("read batch status failed")
		} else if cancelled {
			flush()
			b.stopCancelled(ctx, job, log)
			return nil
		}

		req := model.GenerationRequest{
			RequestID:   fmt.Sprintf("%s:%d", job.ID, i),
			BatchID:     job.ID,
			UserID:      job.UserID,
			Category:    job.Category,
			Platform:    job.Platform,
			Description: job.Items[i],
			Providers:   job.Providers,
			Options:     job.Options,
		}
		res, err := b.engine.Run(ctx, req)
		switch {
		case err != nil && errors.Is(err, domain.ErrCancelled) && ctx.Err() != nil:
			// Shutdown mid-item: the item is not counted and reruns on resume.
			flush()
			return ctx.Err()
		case err != nil:
			job.RecordFailure(i)
			metrics.IncBatchItem("failed")
			log.Warn().Err(err).Int("item", i).Msg("batch item failed")
		default:
			job.RecordSuccess(i, res.ID)
			metrics.IncBatchItem("completed")
		}
		dirty++
		if dirty >= b.cfg.PersistEvery {
			flush()
		}
	}
	flush()

	final := job.TerminalStatus()
	ok, err := b.jobs.TransitionStatus(context.WithoutCancel(ctx), repository.NoTX, job.ID,
		[]model.BatchStatus{model.BatchProcessing}, final, b.now().UTC())
	if err != nil {
		return fmt.Errorf("finish batch %s: %w", job.ID, err)
	}
	if !ok {
		// Cancelled while the last item ran.
		b.stopCancelled(ctx, job, log)
		return nil
	}
	job.Status = final
	metrics.IncBatchFinished(string(final))
	log.Info().
		Str("status", string(final)).
		Int("completed", job.Completed).
		Int("failed", job.Failed).
		Msg("batch finished")
	return nil
}

func (b *batchUC) cancelled(ctx context.Context, id string) (bool, error) {
	cur, err := b.jobs.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return false, err
	}
	return cur.Status == model.BatchCancelled, nil
}

func (b *batchUC) stopCancelled(ctx context.Context, job *model.BatchJob, log *zerolog.Logger) {
	if err := b.jobs.MarkFinished(context.WithoutCancel(ctx), repository.NoTX, job.ID, b.now().UTC()); err != nil {
		log.Warn().Err(err).Msg("persist finished_at failed")
	}
	job.Status = model.BatchCancelled
	metrics.IncBatchFinished(string(model.BatchCancelled))
	log.Info().Int("completed", job.Completed).Int("failed", job.Failed).Msg("batch stopped after cancel")
}
