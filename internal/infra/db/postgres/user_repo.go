package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, tier, daily_used, last_reset, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET tier=$2, daily_used=$3, last_reset=$4;`
	_, err := execSQL(ctx, r.pool, tx, q, u.ID, string(u.Tier), u.DailyUsed, u.LastReset, u.CreatedAt.UTC())
	return err
}

func (r *UserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	const q = `SELECT id, tier, daily_used, last_reset, created_at FROM users WHERE id=$1;`
	var (
		u    model.User
		tier string
	)
	if err := pickRow(ctx, r.pool, tx, q, id).Scan(&u.ID, &tier, &u.DailyUsed, &u.LastReset, &u.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	u.Tier = model.ParseTier(tier)
	return &u, nil
}

// ReserveDaily is a single conditional UPDATE: the day rollover and the
// increment happen in the same row write, so concurrent reservations for one
// user serialize on the row lock and never exceed limit.
func (r *UserRepo) ReserveDaily(ctx context.Context, tx repository.Tx, userID, day string, limit int) (int, error) {
	const q = `
UPDATE users SET
  daily_used = CASE WHEN last_reset <> $2 THEN 1 ELSE daily_used + 1 END,
  last_reset = $2
WHERE id = $1
  AND ($3::int < 0 OR (CASE WHEN last_reset <> $2 THEN 0 ELSE daily_used END) < $3::int)
RETURNING daily_used;`
	var used int
	err := pickRow(ctx, r.pool, tx, q, userID, day, limit).Scan(&used)
	if err == nil {
		return used, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	if _, err := r.FindByID(ctx, tx, userID); err != nil {
		return 0, err
	}
	return 0, domain.ErrQuotaExceeded
}

func (r *UserRepo) RefundDaily(ctx context.Context, tx repository.Tx, userID, day string) (int, error) {
	const q = `
UPDATE users SET daily_used = GREATEST(daily_used - 1, 0)
WHERE id = $1 AND last_reset = $2
RETURNING daily_used;`
	var used int
	err := pickRow(ctx, r.pool, tx, q, userID, day).Scan(&used)
	if err == nil {
		return used, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	// The day rolled over since the reservation; nothing to give back.
	u, err := r.FindByID(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	return u.DailyUsed, nil
}
