package memory

import (
	"context"
	"sort"
	"sync"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/repository"
)

var _ repository.ResultRepository = (*ResultRepo)(nil)

type ResultRepo struct {
	mu      sync.RWMutex
	results map[string]*model.GenerationResult
}

func NewResultRepo() *ResultRepo {
	return &ResultRepo{results: make(map[string]*model.GenerationResult)}
}

// Save rejects overwrites; results are immutable once written.
func (r *ResultRepo) Save(_ context.Context, _ repository.Tx, res *model.GenerationResult) error {
	if res == nil || res.ID == "" {
		return domain.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.results[res.ID]; ok {
		return domain.ErrAlreadyExists
	}
	if rid := res.Request.RequestID; rid != "" {
		for _, cur := range r.results {
			if cur.UserID == res.UserID && cur.Request.RequestID == rid {
				return domain.ErrAlreadyExists
			}
		}
	}
	cp := *res
	r.results[res.ID] = &cp
	return nil
}

func (r *ResultRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.GenerationResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.results[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (r *ResultRepo) FindByRequest(_ context.Context, _ repository.Tx, userID, requestID string) (*model.GenerationResult, error) {
	if requestID == "" {
		return nil, domain.ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, res := range r.results {
		if res.UserID == userID && res.Request.RequestID == requestID {
			cp := *res
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *ResultRepo) ListByUser(_ context.Context, _ repository.Tx, userID string, skip, limit int) ([]*model.GenerationResult, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > repository.MaxListLimit {
		limit = repository.MaxListLimit
	}
	r.mu.RLock()
	out := make([]*model.GenerationResult, 0)
	for _, res := range r.results {
		if res.UserID == userID {
			cp := *res
			out = append(out, &cp)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if skip >= len(out) {
		return []*model.GenerationResult{}, nil
	}
	out = out[skip:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len is used by tests to assert nothing was persisted.
func (r *ResultRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.results)
}
