package memory

import (
	"context"
	"sync"
	"time"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/repository"
)

var (
	_ repository.UsageRepository         = (*UsageRepo)(nil)
	_ repository.ProviderCacheRepository = (*ProviderCacheRepo)(nil)
	_ repository.IdempotencyStore        = (*IdempotencyStore)(nil)
)

type UsageRepo struct {
	mu        sync.RWMutex
	entries   []model.UsageEntry
	byRequest map[string]struct{}
}

func NewUsageRepo() *UsageRepo {
	return &UsageRepo{byRequest: make(map[string]struct{})}
}

func (r *UsageRepo) Append(_ context.Context, _ repository.Tx, e *model.UsageEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.RequestID != "" && e.Success {
		key := e.UserID + "\x00" + e.RequestID
		if _, ok := r.byRequest[key]; ok {
			return domain.ErrAlreadyExists
		}
		r.byRequest[key] = struct{}{}
	}
	cp := *e
	cp.ProvidersUsed = append([]string(nil), e.ProvidersUsed...)
	r.entries = append(r.entries, cp)
	return nil
}

func (r *UsageRepo) SummaryForDay(_ context.Context, _ repository.Tx, userID, day string) (*model.UsageSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := &model.UsageSummary{UserID: userID, Date: day}
	for i := range r.entries {
		e := &r.entries[i]
		if e.UserID == userID && model.UTCDay(e.Timestamp) == day {
			s.Add(e)
		}
	}
	return s, nil
}

// Entries returns a copy of the ledger in append order.
func (r *UsageRepo) Entries() []model.UsageEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.UsageEntry(nil), r.entries...)
}

type ProviderCacheRepo struct {
	mu    sync.Mutex
	order []string
	descs map[string]model.ProviderDescription
}

func NewProviderCacheRepo() *ProviderCacheRepo {
	return &ProviderCacheRepo{descs: make(map[string]model.ProviderDescription)}
}

func (r *ProviderCacheRepo) Upsert(_ context.Context, _ repository.Tx, d model.ProviderDescription, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.descs[d.ID]; !ok {
		r.order = append(r.order, d.ID)
	}
	r.descs[d.ID] = d
	return nil
}

func (r *ProviderCacheRepo) List(_ context.Context, _ repository.Tx) ([]model.ProviderDescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ProviderDescription, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.descs[id])
	}
	return out, nil
}

// IdempotencyStore is the in-process counterpart of the redis store.
type IdempotencyStore struct {
	mu   sync.Mutex
	now  func() time.Time
	keys map[string]time.Time
}

func NewIdempotencyStore(now func() time.Time) *IdempotencyStore {
	if now == nil {
		now = time.Now
	}
	return &IdempotencyStore{now: now, keys: make(map[string]time.Time)}
}

func (s *IdempotencyStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if exp, ok := s.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.keys[key] = now.Add(ttl)
	return true, nil
}

func (s *IdempotencyStore) Release(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.keys[key]
	delete(s.keys, key)
	return ok && s.now().Before(exp), nil
}
