package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/repository"
)

var _ repository.ResultRepository = (*ResultRepo)(nil)

// ResultRepo stores each GenerationResult as one JSONB document. Results are
// immutable: a second Save for the same id fails.
type ResultRepo struct {
	pool *pgxpool.Pool
}

func NewResultRepo(pool *pgxpool.Pool) *ResultRepo {
	return &ResultRepo{pool: pool}
}

func (r *ResultRepo) Save(ctx context.Context, tx repository.Tx, res *model.GenerationResult) error {
	const q = `
INSERT INTO generation_results (id, user_id, batch_id, request_id, created_at, doc)
VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),$5,$6::jsonb);`
	doc, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = execSQL(ctx, r.pool, tx, q, res.ID, res.UserID, res.BatchID, res.Request.RequestID, res.CreatedAt.UTC(), string(doc))
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *ResultRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.GenerationResult, error) {
	const q = `SELECT doc FROM generation_results WHERE id=$1;`
	var doc []byte
	if err := pickRow(ctx, r.pool, tx, q, id).Scan(&doc); err != nil {
		return nil, notFound(err)
	}
	return decodeResult(doc)
}

func (r *ResultRepo) FindByRequest(ctx context.Context, tx repository.Tx, userID, requestID string) (*model.GenerationResult, error) {
	const q = `SELECT doc FROM generation_results WHERE user_id=$1 AND request_id=$2;`
	if requestID == "" {
		return nil, domain.ErrNotFound
	}
	var doc []byte
	if err := pickRow(ctx, r.pool, tx, q, userID, requestID).Scan(&doc); err != nil {
		return nil, notFound(err)
	}
	return decodeResult(doc)
}

func (r *ResultRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, skip, limit int) ([]*model.GenerationResult, error) {
	const q = `
SELECT doc FROM generation_results
WHERE user_id=$1
ORDER BY created_at DESC, id DESC
OFFSET $2 LIMIT $3;`
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > repository.MaxListLimit {
		limit = repository.MaxListLimit
	}
	rows, err := queryRows(ctx, r.pool, tx, q, userID, skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.GenerationResult, 0, limit)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		res, err := decodeResult(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func decodeResult(doc []byte) (*model.GenerationResult, error) {
	var res model.GenerationResult
	if err := json.Unmarshal(doc, &res); err != nil {
		return nil, fmt.Errorf("%w: decode result: %v", domain.ErrReadDatabaseRow, err)
	}
	return &res, nil
}
