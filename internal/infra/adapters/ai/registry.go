// File: internal/infra/adapters/ai/registry.go
package ai

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/adapter"
	"social-content-ai/internal/domain/ports/repository"
	"social-content-ai/internal/infra/metrics"
)

// Registry is the process-wide provider catalog. The id->client map is fixed
// at construction; only the per-provider "down" flags change afterwards.
type Registry struct {
	order   []string
	clients map[string]adapter.ProviderClient
	down    map[string]*atomic.Bool
	log     *zerolog.Logger
}

// NewRegistry registers clients in the given order. A later client with the
// same id is ignored.
func NewRegistry(log *zerolog.Logger, clients ...adapter.ProviderClient) *Registry {
	l := log.With().Str("component", "provider-registry").Logger()
	r := &Registry{
		clients: make(map[string]adapter.ProviderClient, len(clients)),
		down:    make(map[string]*atomic.Bool, len(clients)),
		log:     &l,
	}
	for _, c := range clients {
		id := NormalizeID(c.ID())
		if _, dup := r.clients[id]; dup {
			r.log.Warn().Str("provider", id).Msg("duplicate provider registration ignored")
			continue
		}
		r.order = append(r.order, id)
		r.clients[id] = c
		r.down[id] = new(atomic.Bool)
	}
	return r
}

// Available reports whether id is registered, has a credential and has not
// been rejected by the provider since startup.
func (r *Registry) Available(id string) bool {
	c, ok := r.clients[id]
	if !ok {
		return false
	}
	return c.Describe().Available && !r.down[id].Load()
}

// Resolve maps the caller's ids to clients in declared order. Unknown and
// unavailable ids are skipped, duplicates collapse to their first position.
func (r *Registry) Resolve(ids []string) []adapter.ProviderClient {
	norm := lo.Uniq(lo.Map(ids, func(id string, _ int) string { return NormalizeID(id) }))
	return lo.FilterMap(norm, func(id string, _ int) (adapter.ProviderClient, bool) {
		if !r.Available(id) {
			return nil, false
		}
		return r.clients[id], true
	})
}

func (r *Registry) List() []model.ProviderDescription {
	return lo.Map(r.order, func(id string, _ int) model.ProviderDescription {
		return r.describe(id)
	})
}

func (r *Registry) Describe(id string) (model.ProviderDescription, error) {
	id = NormalizeID(id)
	if _, ok := r.clients[id]; !ok {
		return model.ProviderDescription{}, domain.ErrNotFound
	}
	return r.describe(id), nil
}

func (r *Registry) describe(id string) model.ProviderDescription {
	d := r.clients[id].Describe()
	d.Available = d.Available && !r.down[id].Load()
	return d
}

// MarkUnavailable takes a provider out of rotation after a credential
// rejection. It stays down until the process restarts.
func (r *Registry) MarkUnavailable(id string) {
	flag, ok := r.down[NormalizeID(id)]
	if !ok {
		return
	}
	if flag.CompareAndSwap(false, true) {
		metrics.IncProviderAuthFailure(id)
		r.log.Warn().Str("provider", id).Msg("provider rejected credentials; marked unavailable")
	}
}

// SyncCache writes every description to the provider cache. Failures are
// logged and never fatal.
func (r *Registry) SyncCache(ctx context.Context, repo repository.ProviderCacheRepository, now time.Time) {
	if repo == nil {
		return
	}
	for _, d := range r.List() {
		if err := repo.Upsert(ctx, repository.NoTX, d, now); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			r.log.Warn().Err(err).Str("provider", d.ID).Msg("provider cache upsert failed")
			metrics.IncCacheRequest("provider", "error")
			continue
		}
		metrics.IncCacheRequest("provider", "write")
	}
}
