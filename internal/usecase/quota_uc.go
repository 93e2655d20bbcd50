// File: internal/usecase/quota_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/repository"
	"social-content-ai/internal/infra/metrics"
)

// Compile-time check
var _ QuotaLedger = (*quotaLedger)(nil)

const DefaultIdempotencyWindow = 10 * time.Minute

// QuotaLedger admits requests against the per-user daily limit and records
// usage. Reserve and Refund are idempotent per request id within the window;
// Commit records a success once per request id and every failed attempt.
type QuotaLedger interface {
	Reserve(ctx context.Context, userID, requestID string) (*Reservation, error)
	Refund(ctx context.Context, r *Reservation) error
	Commit(ctx context.Context, r *Reservation, providersUsed []string, success bool, tokensTotal int) error
	Usage(ctx context.Context, userID string, day string) (*model.UsageSummary, error)
}

// Reservation is the handle returned by Reserve. Charged stays true until
// Refund returns the unit.
type Reservation struct {
	UserID    string
	RequestID string
	Tier      model.Tier
	Day       string
	DailyUsed int
	Charged   bool
}

type quotaLedger struct {
	users  repository.UserRepository
	usage  repository.UsageRepository
	idem   repository.IdempotencyStore
	limits model.TierLimits
	window time.Duration
	now    func() time.Time
	log    *zerolog.Logger
}

type LedgerOption func(*quotaLedger)

// WithClock replaces time.Now; tests use it to cross midnight.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *quotaLedger) { l.now = now }
}

func WithIdempotencyWindow(d time.Duration) LedgerOption {
	return func(l *quotaLedger) {
		if d > 0 {
			l.window = d
		}
	}
}

func NewQuotaLedger(
	users repository.UserRepository,
	usage repository.UsageRepository,
	idem repository.IdempotencyStore,
	limits model.TierLimits,
	logger *zerolog.Logger,
	opts ...LedgerOption,
) *quotaLedger {
	if limits == nil {
		limits = model.DefaultTierLimits()
	}
	l := &quotaLedger{
		users:  users,
		usage:  usage,
		idem:   idem,
		limits: limits,
		window: DefaultIdempotencyWindow,
		now:    time.Now,
		log:    logger,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func reserveKey(userID, requestID string) string { return "quota:reserve:" + userID + ":" + requestID }
func commitKey(userID, requestID string) string  { return "quota:commit:" + userID + ":" + requestID }

// NewRequestID returns a time-sortable id for callers that did not supply one.
func NewRequestID() string { return ulid.Make().String() }

// Reserve takes one unit for requestID. While an earlier reservation for the
// same id is held it fails with domain.ErrRequestInFlight; the caller either
// replays the stored result or reports the conflict.
func (l *quotaLedger) Reserve(ctx context.Context, userID, requestID string) (*Reservation, error) {
	if userID == "" || requestID == "" {
		return nil, domain.ErrInvalidArgument
	}
	u, err := l.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	r := &Reservation{UserID: userID, RequestID: requestID, Tier: u.Tier, Day: model.UTCDay(l.now())}

	claimed, err := l.idem.Claim(ctx, reserveKey(userID, requestID), l.window)
	if err != nil {
		return nil, err
	}
	if !claimed {
		metrics.IncCacheRequest("idempotency", "hit")
		metrics.IncQuotaDecision(string(u.Tier), "duplicate")
		return nil, domain.ErrRequestInFlight
	}
	metrics.IncCacheRequest("idempotency", "miss")

	used, err := l.users.ReserveDaily(ctx, repository.NoTX, userID, r.Day, l.limits.DailyLimit(u.Tier))
	if err != nil {
		// Free the claim so a later retry is evaluated again.
		if _, relErr := l.idem.Release(context.WithoutCancel(ctx), reserveKey(userID, requestID)); relErr != nil {
			l.log.Warn().Err(relErr).Str("request_id", requestID).Msg("release reserve claim failed")
		}
		if errors.Is(err, domain.ErrQuotaExceeded) {
			metrics.IncQuotaDecision(string(u.Tier), "rejected")
		}
		return nil, err
	}
	metrics.IncQuotaDecision(string(u.Tier), "admitted")
	r.DailyUsed = used
	r.Charged = true
	return r, nil
}

// Refund returns the unit taken by r. Releasing the reserve claim is the
// idempotency guard: only the caller that still finds it held decrements.
func (l *quotaLedger) Refund(ctx context.Context, r *Reservation) error {
	if r == nil || !r.Charged {
		return nil
	}
	released, err := l.idem.Release(ctx, reserveKey(r.UserID, r.RequestID))
	if err != nil {
		return err
	}
	if !released {
		return nil
	}
	used, err := l.users.RefundDaily(ctx, repository.NoTX, r.UserID, r.Day)
	if err != nil {
		return err
	}
	r.Charged = false
	r.DailyUsed = used
	metrics.IncQuotaDecision(string(r.Tier), "refunded")
	return nil
}

// Commit appends a usage entry. Failed attempts are always appended so a
// retried request id can still record its success later.
func (l *quotaLedger) Commit(ctx context.Context, r *Reservation, providersUsed []string, success bool, tokensTotal int) error {
	if r == nil {
		return domain.ErrInvalidArgument
	}
	if success {
		claimed, err := l.idem.Claim(ctx, commitKey(r.UserID, r.RequestID), l.window)
		if err != nil {
			return err
		}
		if !claimed {
			return nil
		}
	}
	e := &model.UsageEntry{
		ID:            ulid.Make().String(),
		RequestID:     r.RequestID,
		UserID:        r.UserID,
		Timestamp:     l.now().UTC(),
		ProvidersUsed: append([]string{}, providersUsed...),
		Success:       success,
		TokensTotal:   tokensTotal,
	}
	if err := l.usage.Append(ctx, repository.NoTX, e); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		if success {
			_, _ = l.idem.Release(context.WithoutCancel(ctx), commitKey(r.UserID, r.RequestID))
		}
		return err
	}
	return nil
}

func (l *quotaLedger) Usage(ctx context.Context, userID string, day string) (*model.UsageSummary, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if day == "" {
		day = model.UTCDay(l.now())
	}
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return nil, domain.ErrInvalidArgument
	}
	return l.usage.SummaryForDay(ctx, repository.NoTX, userID, day)
}
