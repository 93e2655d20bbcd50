package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/repository"
)

var (
	_ repository.UsageRepository         = (*UsageRepo)(nil)
	_ repository.ProviderCacheRepository = (*ProviderCacheRepo)(nil)
)

type UsageRepo struct {
	pool *pgxpool.Pool
}

func NewUsageRepo(pool *pgxpool.Pool) *UsageRepo {
	return &UsageRepo{pool: pool}
}

func (r *UsageRepo) Append(ctx context.Context, tx repository.Tx, e *model.UsageEntry) error {
	const q = `
INSERT INTO usage_ledger (id, request_id, user_id, ts, providers_used, success, tokens_total)
VALUES ($1,NULLIF($2,''),$3,$4,$5::jsonb,$6,$7);`
	used, err := json.Marshal(e.ProvidersUsed)
	if err != nil {
		return err
	}
	_, err = execSQL(ctx, r.pool, tx, q, e.ID, e.RequestID, e.UserID, e.Timestamp.UTC(), string(used), e.Success, e.TokensTotal)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *UsageRepo) SummaryForDay(ctx context.Context, tx repository.Tx, userID, day string) (*model.UsageSummary, error) {
	const q = `
SELECT COUNT(*), COUNT(*) FILTER (WHERE success), COALESCE(SUM(tokens_total), 0)
FROM usage_ledger
WHERE user_id=$1 AND ts >= $2 AND ts < $3;`
	start, err := time.Parse("2006-01-02", day)
	if err != nil {
		return nil, fmt.Errorf("%w: day %q", domain.ErrInvalidArgument, day)
	}
	s := &model.UsageSummary{UserID: userID, Date: day}
	var requests, succeeded, tokens int64
	if err := pickRow(ctx, r.pool, tx, q, userID, start, start.AddDate(0, 0, 1)).Scan(&requests, &succeeded, &tokens); err != nil {
		return nil, err
	}
	s.Requests, s.Succeeded, s.TokensTotal = int(requests), int(succeeded), int(tokens)
	return s, nil
}

// ProviderCacheRepo mirrors registry describe() output into the providers table.
type ProviderCacheRepo struct {
	pool *pgxpool.Pool
}

func NewProviderCacheRepo(pool *pgxpool.Pool) *ProviderCacheRepo {
	return &ProviderCacheRepo{pool: pool}
}

func (r *ProviderCacheRepo) Upsert(ctx context.Context, tx repository.Tx, d model.ProviderDescription, at time.Time) error {
	const q = `
INSERT INTO providers (id, doc, updated_at) VALUES ($1,$2::jsonb,$3)
ON CONFLICT (id) DO UPDATE SET doc=EXCLUDED.doc, updated_at=EXCLUDED.updated_at;`
	doc, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = execSQL(ctx, r.pool, tx, q, d.ID, string(doc), at.UTC())
	return err
}

func (r *ProviderCacheRepo) List(ctx context.Context, tx repository.Tx) ([]model.ProviderDescription, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT doc FROM providers ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ProviderDescription
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		var d model.ProviderDescription
		if err := json.Unmarshal(doc, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
