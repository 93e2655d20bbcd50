// File: internal/usecase/generation_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/adapter"
	"social-content-ai/internal/domain/ports/repository"
	"social-content-ai/internal/infra/logging"
	"social-content-ai/internal/infra/metrics"
)

// Compile-time check
var _ GenerationUseCase = (*generationUC)(nil)

// ProviderResolver is the part of the provider registry the engine needs.
type ProviderResolver interface {
	Resolve(ids []string) []adapter.ProviderClient
	MarkUnavailable(id string)
}

type GenerationUseCase interface {
	Run(ctx context.Context, req model.GenerationRequest) (*model.GenerationResult, error)
	Result(ctx context.Context, userID, id string) (*model.GenerationResult, error)
	History(ctx context.Context, userID string, skip, limit int) ([]*model.GenerationResult, error)
}

type EngineConfig struct {
	PerCallDeadline time.Duration
	MaxAttempts     int
	Backoff         []time.Duration
	StoreRetries    int
	// DefaultMaxTokens fills requests that leave max_tokens_per_provider unset.
	DefaultMaxTokens int
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		PerCallDeadline: 30 * time.Second,
		MaxAttempts:     3,
		Backoff:         []time.Duration{500 * time.Millisecond, 2 * time.Second},
		StoreRetries:    2,
	}
}

type generationUC struct {
	providers ProviderResolver
	prompts   PromptAssembler
	quota     QuotaLedger
	results   repository.ResultRepository
	cfg       EngineConfig
	now       func() time.Time
	log       *zerolog.Logger
}

func NewGenerationUseCase(
	providers ProviderResolver,
	prompts PromptAssembler,
	quota QuotaLedger,
	results repository.ResultRepository,
	cfg EngineConfig,
	logger *zerolog.Logger,
) *generationUC {
	def := DefaultEngineConfig()
	if cfg.PerCallDeadline <= 0 {
		cfg.PerCallDeadline = def.PerCallDeadline
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if len(cfg.Backoff) == 0 {
		cfg.Backoff = def.Backoff
	}
	if cfg.StoreRetries < 0 {
		cfg.StoreRetries = 0
	}
	return &generationUC{
		providers: providers,
		prompts:   prompts,
		quota:     quota,
		results:   results,
		cfg:       cfg,
		now:       time.Now,
		log:       logger,
	}
}

func (g *generationUC) Run(ctx context.Context, req model.GenerationRequest) (*model.GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	supplied := req.RequestID != ""
	if !supplied {
		req.RequestID = NewRequestID()
	}
	if req.Options.MaxTokensPerProvider <= 0 && g.cfg.DefaultMaxTokens > 0 {
		req.Options.MaxTokensPerProvider = g.cfg.DefaultMaxTokens
	}
	ctx = logging.WithRequestID(logging.WithUserID(ctx, req.UserID), req.RequestID)
	if req.BatchID != "" {
		ctx = logging.WithBatchID(ctx, req.BatchID)
	}
	log := logging.With(ctx, g.log)

	// A request id that already produced a result is answered from the store.
	if supplied {
		if prior := g.replay(ctx, req, log); prior != nil {
			return prior, nil
		}
	}

	clients := g.providers.Resolve(req.Providers)
	if len(clients) == 0 {
		metrics.IncGeneration("no_providers")
		return nil, domain.ErrNoProvidersAvailable
	}

	res, err := g.quota.Reserve(ctx, req.UserID, req.RequestID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrQuotaExceeded):
			metrics.IncGeneration("quota_exceeded")
		case errors.Is(err, domain.ErrRequestInFlight):
			// The earlier run may have finished after the lookup above.
			if prior := g.replay(ctx, req, log); prior != nil {
				return prior, nil
			}
			metrics.IncGeneration("in_flight")
		}
		return nil, err
	}

	result, replayed, err := g.execute(ctx, req, clients)
	// Bookkeeping must finish even when the caller has gone away.
	bg := context.WithoutCancel(ctx)
	if err != nil {
		if rfErr := g.quota.Refund(bg, res); rfErr != nil {
			log.Error().Err(rfErr).Msg("quota refund failed")
		}
		if cmErr := g.quota.Commit(bg, res, nil, false, 0); cmErr != nil {
			log.Warn().Err(cmErr).Msg("usage commit failed")
		}
		metrics.IncGeneration(outcomeLabel(err))
		log.Warn().Err(err).Msg("generation failed")
		return nil, err
	}

	if replayed {
		// Another run stored this request first and carries its charge.
		if rfErr := g.quota.Refund(bg, res); rfErr != nil {
			log.Error().Err(rfErr).Msg("quota refund failed")
		}
		metrics.IncGeneration("replayed")
		return result, nil
	}

	if cmErr := g.quota.Commit(bg, res, result.ProvidersUsed, true, result.TokensTotal()); cmErr != nil {
		log.Warn().Err(cmErr).Msg("usage commit failed")
	}
	metrics.IncGeneration("ok")
	log.Info().
		Str("result_id", result.ID).
		Strs("providers_used", result.ProvidersUsed).
		Int("tokens_total", result.TokensTotal()).
		Msg("generation stored")
	return result, nil
}

// replay returns the result already stored for req's request id, or nil.
func (g *generationUC) replay(ctx context.Context, req model.GenerationRequest, log *zerolog.Logger) *model.GenerationResult {
	prior, err := g.results.FindByRequest(ctx, repository.NoTX, req.UserID, req.RequestID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Warn().Err(err).Msg("stored result lookup failed")
		}
		return nil
	}
	metrics.IncGeneration("replayed")
	log.Info().Str("result_id", prior.ID).Msg("request answered from stored result")
	return prior
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrAllProvidersFailed):
		return "all_failed"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, domain.ErrCancelled):
		return "cancelled"
	default:
		return "error"
	}
}

// execute fans out, merges and persists. It returns no result unless the
// result is durably stored. replayed reports that a concurrent run stored a
// result for the same request id first; that result is returned instead.
func (g *generationUC) execute(ctx context.Context, req model.GenerationRequest, clients []adapter.ProviderClient) (result *model.GenerationResult, replayed bool, err error) {
	base, err := g.prompts.Assemble(req)
	if err != nil {
		return nil, false, err
	}
	maxTokens := req.Options.ClampedMaxTokens()

	outcomes := make([]model.ProviderOutput, len(clients))
	var eg errgroup.Group
	for i, c := range clients {
		prompt := g.prompts.ForProvider(base, c.ID())
		eg.Go(func() error {
			outcomes[i] = g.call(ctx, c, prompt, maxTokens)
			return nil
		})
	}
	_ = eg.Wait()

	if ctx.Err() != nil {
		return nil, false, domain.ErrCancelled
	}

	order := make([]string, len(clients))
	outputs := make(map[string]model.ProviderOutput, len(clients))
	used := make([]string, 0, len(clients))
	failed := make(map[string]domain.ProviderErrorKind)
	for i, c := range clients {
		order[i] = c.ID()
		outputs[c.ID()] = outcomes[i]
		if outcomes[i].OK() {
			used = append(used, c.ID())
		} else {
			failed[c.ID()] = outcomes[i].ErrorKind
		}
	}
	if len(used) == 0 {
		return nil, false, &domain.AllProvidersFailedError{Errors: failed}
	}

	result = &model.GenerationResult{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		BatchID:       req.BatchID,
		Request:       req,
		ProviderOrder: order,
		Outputs:       outputs,
		Merged:        Merge(order, outputs, req.Options.IncludeHashtags),
		ProvidersUsed: used,
		CreatedAt:     g.now().UTC(),
	}
	stored, err := g.save(ctx, result)
	if err != nil {
		return nil, false, err
	}
	return stored, stored.ID != result.ID, nil
}

// call runs one provider with retries on transient errors. The deadline
// covers every attempt and every backoff sleep.
func (g *generationUC) call(ctx context.Context, c adapter.ProviderClient, p adapter.PromptSpec, maxTokens int) model.ProviderOutput {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.PerCallDeadline)
	defer cancel()

	var out model.ProviderOutput
	for attempt := 1; ; attempt++ {
		out.Attempts = attempt
		comp, err := c.Generate(callCtx, p, maxTokens)
		if err == nil {
			out.Text = comp.Text
			out.TokensIn += comp.TokensIn
			out.TokensOut += comp.TokensOut
			out.Error, out.ErrorKind = "", ""
			break
		}

		pe := asProviderError(callCtx, c.ID(), err)
		out.Error = pe.Error()
		out.ErrorKind = pe.Kind
		if pe.Auth() {
			g.providers.MarkUnavailable(c.ID())
		}
		if pe.Kind != domain.ProviderTransient || attempt >= g.cfg.MaxAttempts {
			break
		}
		if !sleepCtx(callCtx, g.backoff(attempt)) {
			break
		}
	}
	out.DurationMs = time.Since(start).Milliseconds()
	return out
}

func (g *generationUC) backoff(attempt int) time.Duration {
	i := attempt - 1
	if i >= len(g.cfg.Backoff) {
		i = len(g.cfg.Backoff) - 1
	}
	return g.cfg.Backoff[i]
}

// sleepCtx waits for d or until ctx is done. It reports whether the full
// wait elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < d {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func asProviderError(ctx context.Context, provider string, err error) *domain.ProviderError {
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.NewTransient(provider, 0, err)
	}
	return domain.NewPermanent(provider, 0, err)
}

// save writes r and returns the stored result. A conflict on the request id
// returns the result that won.
func (g *generationUC) save(ctx context.Context, r *model.GenerationResult) (*model.GenerationResult, error) {
	var err error
	for attempt := 0; attempt <= g.cfg.StoreRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, domain.ErrCancelled
		}
		err = g.results.Save(ctx, repository.NoTX, r)
		if err == nil {
			return r, nil
		}
		if errors.Is(err, domain.ErrAlreadyExists) {
			return g.existing(ctx, r)
		}
		if attempt < g.cfg.StoreRetries && !sleepCtx(ctx, time.Duration(attempt+1)*100*time.Millisecond) {
			return nil, domain.ErrCancelled
		}
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

// existing resolves a Save conflict: either an earlier attempt of this save
// landed, or another run owns the request id.
func (g *generationUC) existing(ctx context.Context, r *model.GenerationResult) (*model.GenerationResult, error) {
	if _, err := g.results.FindByID(ctx, repository.NoTX, r.ID); err == nil {
		return r, nil
	}
	prior, err := g.results.FindByRequest(ctx, repository.NoTX, r.UserID, r.Request.RequestID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return prior, nil
}

func (g *generationUC) Result(ctx context.Context, userID, id string) (*model.GenerationResult, error) {
	r, err := g.results.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (g *generationUC) History(ctx context.Context, userID string, skip, limit int) ([]*model.GenerationResult, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > repository.MaxListLimit {
		limit = repository.MaxListLimit
	}
	return g.results.ListByUser(ctx, repository.NoTX, userID, skip, limit)
}
