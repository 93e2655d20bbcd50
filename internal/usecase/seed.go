package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/repository"
)

// SeedUsers creates the users in seed (id -> tier) that do not exist yet and
// returns how many were created. Existing users are left untouched.
func SeedUsers(ctx context.Context, users repository.UserRepository, seed map[string]string, now time.Time) (int, error) {
	ids := make([]string, 0, len(seed))
	for id := range seed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	created := 0
	for _, id := range ids {
		_, err := users.FindByID(ctx, repository.NoTX, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return created, err
		}
		u := &model.User{
			ID:        id,
			Tier:      model.ParseTier(seed[id]),
			LastReset: model.UTCDay(now),
			CreatedAt: now.UTC(),
		}
		if err := users.Save(ctx, repository.NoTX, u); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
