package repository

import (
	"context"

	"social-content-ai/internal/domain/model"
)

// -----------------------------
// Users and quota
// -----------------------------

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// ReserveDaily resets daily_used when last_reset differs from day and then
	// increments it, all in one step. A negative limit never rejects.
	// Returns the new daily_used or domain.ErrQuotaExceeded.
	ReserveDaily(ctx context.Context, tx Tx, userID, day string, limit int) (int, error)
	// RefundDaily decrements daily_used (floored at 0) only when last_reset
	// still equals day.
	RefundDaily(ctx context.Context, tx Tx, userID, day string) (int, error)
}
