package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/repository"
	red "social-content-ai/internal/infra/redis"
)

// BatchRunner executes one claimed job to completion or cancellation.
type BatchRunner interface {
	Process(ctx context.Context, job *model.BatchJob) error
}

type BatchProcessorConfig struct {
	PollInterval time.Duration
	LockTTL      time.Duration
	// RecoverInterval is how often PROCESSING jobs are re-scanned for a
	// dead owner. Defaults to LockTTL.
	RecoverInterval time.Duration
}

// BatchProcessor feeds batch jobs to the pool. It resumes jobs left
// PROCESSING by a previous run at startup and again every RecoverInterval,
// and polls for PENDING jobs in between. Every job runs under a lock keyed by
// its id so only one worker in the fleet owns it.
type BatchProcessor struct {
	jobs   repository.BatchJobRepository
	runner BatchRunner
	locker repository.Locker
	cfg    BatchProcessorConfig
	now    func() time.Time
	log    *zerolog.Logger

	owned sync.Map // batch id -> struct{}, queued or running here
}

func NewBatchProcessor(jobs repository.BatchJobRepository, runner BatchRunner, locker repository.Locker, cfg BatchProcessorConfig, logger *zerolog.Logger) *BatchProcessor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	if cfg.RecoverInterval <= 0 {
		cfg.RecoverInterval = cfg.LockTTL
	}
	return &BatchProcessor{jobs: jobs, runner: runner, locker: locker, cfg: cfg, now: time.Now, log: logger}
}

// Start blocks until ctx is done. Run it in a goroutine.
func (p *BatchProcessor) Start(ctx context.Context, pool *Pool) {
	p.log.Info().Msg("batch processor started")
	p.Recover(ctx, pool)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()
	rescan := time.NewTicker(p.cfg.RecoverInterval)
	defer rescan.Stop()
	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("batch processor stopping")
			return
		case <-rescan.C:
			// A job whose previous owner died keeps its lock until the TTL runs out.
			p.Recover(ctx, pool)
		case <-ticker.C:
			// Claim inside the worker so a claimed job always has a runner.
			for i := pool.Idle(); i > 0; i-- {
				if err := pool.Submit(p.claimOne); err != nil {
					break
				}
			}
		}
	}
}

// Recover queues every PROCESSING job not already owned by this processor;
// each resumes from its cursor.
func (p *BatchProcessor) Recover(ctx context.Context, pool *Pool) int {
	stale, err := p.jobs.ListByStatus(ctx, repository.NoTX, model.BatchProcessing, 0)
	if err != nil {
		p.log.Error().Err(err).Msg("list processing batches failed")
		return 0
	}
	n := 0
	for _, job := range stale {
		job := job
		if _, busy := p.owned.LoadOrStore(job.ID, struct{}{}); busy {
			continue
		}
		if err := pool.SubmitWait(ctx, func(ctx context.Context) error { return p.runLocked(ctx, job) }); err != nil {
			p.owned.Delete(job.ID)
			return n
		}
		n++
	}
	if n > 0 {
		p.log.Info().Int("jobs", n).Msg("resuming processing batches")
	}
	return n
}

func (p *BatchProcessor) claimOne(ctx context.Context) error {
	job, err := p.jobs.ClaimPending(ctx, p.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	return p.runLocked(ctx, job)
}

func (p *BatchProcessor) runLocked(ctx context.Context, job *model.BatchJob) error {
	p.owned.Store(job.ID, struct{}{})
	defer p.owned.Delete(job.ID)

	key := red.BatchLockKey(job.ID)
	token, err := p.locker.TryLock(ctx, key, p.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			p.log.Warn().Str("batch_id", job.ID).Dur("retry_in", p.cfg.RecoverInterval).Msg("batch owned by another worker")
			return nil
		}
		return err
	}
	defer func() {
		if err := p.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			p.log.Warn().Err(err).Str("batch_id", job.ID).Msg("batch unlock failed")
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go p.keepAlive(runCtx, cancel, key, token, job.ID)

	// The job may have moved on between listing and locking.
	cur, err := p.jobs.FindByID(runCtx, repository.NoTX, job.ID)
	if err != nil {
		return err
	}
	if cur.Status != model.BatchProcessing {
		return nil
	}
	return p.runner.Process(runCtx, cur)
}

// keepAlive refreshes the lock and stops the run when ownership is lost.
func (p *BatchProcessor) keepAlive(ctx context.Context, cancel context.CancelFunc, key, token, batchID string) {
	t := time.NewTicker(p.cfg.LockTTL / 3)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			err := p.locker.Refresh(ctx, key, token, p.cfg.LockTTL)
			if errors.Is(err, domain.ErrLockHeld) {
				p.log.Warn().Str("batch_id", batchID).Msg("batch lock lost, stopping")
				cancel()
				return
			}
			if err != nil {
				p.log.Warn().Err(err).Str("batch_id", batchID).Msg("batch lock refresh failed")
			}
		}
	}
}
