package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/repository"
)

var _ repository.BatchJobRepository = (*BatchJobRepo)(nil)

// BatchJobRepo keeps status, counters and timestamps in columns so the
// lifecycle guards run in SQL; the immutable request part lives in params.
type BatchJobRepo struct {
	pool *pgxpool.Pool
	tm   *TxManager
}

func NewBatchJobRepo(pool *pgxpool.Pool) *BatchJobRepo {
	return &BatchJobRepo{pool: pool, tm: NewTxManager(pool)}
}

// batchParams is the part of a job fixed at submission.
type batchParams struct {
	Name      string                  `json:"name"`
	Category  model.Category          `json:"category"`
	Platform  model.Platform          `json:"platform"`
	Items     []string                `json:"items"`
	Providers []string                `json:"providers"`
	Options   model.GenerationOptions `json:"options"`
}

const batchColumns = `id, user_id, status, total, completed, failed, result_ids, params,
  created_at, started_at, finished_at, estimated_completion`

func scanBatchJob(row pgx.Row) (*model.BatchJob, error) {
	var (
		j         model.BatchJob
		status    string
		resultIDs []byte
		params    []byte
	)
	if err := row.Scan(&j.ID, &j.UserID, &status, &j.Total, &j.Completed, &j.Failed, &resultIDs, &params,
		&j.CreatedAt, &j.StartedAt, &j.FinishedAt, &j.EstimatedCompletion); err != nil {
		return nil, err
	}
	j.Status = model.BatchStatus(status)
	if err := json.Unmarshal(resultIDs, &j.ResultIDs); err != nil {
		return nil, fmt.Errorf("%w: result_ids: %v", domain.ErrReadDatabaseRow, err)
	}
	var s batchParams
	if err := json.Unmarshal(params, &s); err != nil {
		return nil, fmt.Errorf("%w: params: %v", domain.ErrReadDatabaseRow, err)
	}
	j.Name, j.Category, j.Platform = s.Name, s.Category, s.Platform
	j.Items, j.Providers, j.Options = s.Items, s.Providers, s.Options
	return &j, nil
}

func (r *BatchJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.BatchJob) error {
	const q = `
INSERT INTO batch_jobs (` + batchColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7::jsonb,$8::jsonb,$9,$10,$11,$12);`
	ids, err := json.Marshal(job.ResultIDs)
	if err != nil {
		return err
	}
	params, err := json.Marshal(batchParams{
		Name: job.Name, Category: job.Category, Platform: job.Platform,
		Items: job.Items, Providers: job.Providers, Options: job.Options,
	})
	if err != nil {
		return err
	}
	_, err = execSQL(ctx, r.pool, tx, q, job.ID, job.UserID, string(job.Status), job.Total, job.Completed, job.Failed,
		string(ids), string(params), job.CreatedAt.UTC(), job.StartedAt, job.FinishedAt, job.EstimatedCompletion.UTC())
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *BatchJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.BatchJob, error) {
	q := `SELECT ` + batchColumns + ` FROM batch_jobs WHERE id=$1;`
	j, err := scanBatchJob(pickRow(ctx, r.pool, tx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return j, nil
}

func (r *BatchJobRepo) TransitionStatus(ctx context.Context, tx repository.Tx, id string, from []model.BatchStatus, to model.BatchStatus, at time.Time) (bool, error) {
	const q = `
UPDATE batch_jobs SET
  status = $3,
  started_at = CASE WHEN $5 THEN COALESCE(started_at, $4) ELSE started_at END,
  finished_at = CASE WHEN $6 THEN COALESCE(finished_at, $4) ELSE finished_at END
WHERE id = $1 AND status = ANY($2);`
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	tag, err := execSQL(ctx, r.pool, tx, q, id, allowed, string(to), at.UTC(),
		to == model.BatchProcessing, to.Terminal())
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	if _, err := r.FindByID(ctx, tx, id); err != nil {
		return false, err
	}
	return false, nil
}

// ClaimPending locks the oldest PENDING row with SKIP LOCKED so concurrent
// workers each get a different job.
func (r *BatchJobRepo) ClaimPending(ctx context.Context, at time.Time) (*model.BatchJob, error) {
	const pick = `
SELECT id FROM batch_jobs
WHERE status = 'PENDING'
ORDER BY created_at
LIMIT 1
FOR UPDATE SKIP LOCKED;`
	var claimed *model.BatchJob
	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var id string
		if err := pickRow(ctx, r.pool, tx, pick).Scan(&id); err != nil {
			return notFound(err)
		}
		ok, err := r.TransitionStatus(ctx, tx, id, []model.BatchStatus{model.BatchPending}, model.BatchProcessing, at)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		claimed, err = r.FindByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *BatchJobRepo) SaveProgress(ctx context.Context, tx repository.Tx, job *model.BatchJob) error {
	const q = `
UPDATE batch_jobs SET completed=$2, failed=$3, result_ids=$4::jsonb
WHERE id=$1 AND status IN ('PROCESSING','CANCELLED');`
	ids, err := json.Marshal(job.ResultIDs)
	if err != nil {
		return err
	}
	tag, err := execSQL(ctx, r.pool, tx, q, job.ID, job.Completed, job.Failed, string(ids))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.FindByID(ctx, tx, job.ID); err != nil {
		return err
	}
	return domain.ErrInvalidTransition
}

func (r *BatchJobRepo) MarkFinished(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	const q = `UPDATE batch_jobs SET finished_at = COALESCE(finished_at, $2) WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, at.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *BatchJobRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.BatchStatus, limit int) ([]*model.BatchJob, error) {
	q := `SELECT ` + batchColumns + ` FROM batch_jobs WHERE status=$1 ORDER BY created_at`
	args := []interface{}{string(status)}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.BatchJob
	for rows.Next() {
		j, err := scanBatchJob(rows)
		if err != nil {
			if errors.Is(err, domain.ErrReadDatabaseRow) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
