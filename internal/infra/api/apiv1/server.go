package apiv1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/infra/logging"
	red "social-content-ai/internal/infra/redis"
)

// Orchestrator is the in-process API the transport translates to.
type Orchestrator interface {
	Generate(ctx context.Context, req model.GenerationRequest) (*model.GenerationResult, error)
	SubmitBatch(ctx context.Context, req model.BatchRequest) (*model.BatchJob, error)
	GetBatch(ctx context.Context, userID, batchID string) (*model.BatchJob, error)
	CancelBatch(ctx context.Context, userID, batchID string) (bool, error)
	GetResult(ctx context.Context, userID, resultID string) (*model.GenerationResult, error)
	ListResults(ctx context.Context, userID string, skip, limit int) ([]*model.GenerationResult, error)
	ListProviders() []model.ProviderDescription
	DescribeProvider(id string) (model.ProviderDescription, error)
	Usage(ctx context.Context, userID, day string) (*model.UsageSummary, error)
}

// SubmitLimiter throttles write requests per user.
type SubmitLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

const (
	HeaderUserID         = "X-User-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
	maxBodyBytes         = 1 << 20
)

type Server struct {
	orch          Orchestrator
	limiter       SubmitLimiter
	ratePerMinute int
	dev           bool
	log           *zerolog.Logger
}

// NewServer builds the v1 handlers. A nil limiter disables submit throttling.
func NewServer(orch Orchestrator, limiter SubmitLimiter, ratePerMinute int, dev bool, logger *zerolog.Logger) *Server {
	return &Server{orch: orch, limiter: limiter, ratePerMinute: ratePerMinute, dev: dev, log: logger}
}

func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/providers", s.listProviders)
		r.Get("/providers/{id}", s.describeProvider)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)
			r.Post("/generations", s.generate)
			r.Get("/generations", s.listResults)
			r.Get("/generations/{id}", s.getResult)
			r.Post("/batches", s.submitBatch)
			r.Get("/batches/{id}", s.getBatch)
			r.Post("/batches/{id}/cancel", s.cancelBatch)
			r.Get("/usage", s.usage)
		})
	})
}

// ---- DTOs ----

type GenerationBody struct {
	Category    model.Category          `json:"category"`
	Platform    model.Platform          `json:"platform"`
	Description string                  `json:"description"`
	Providers   []string                `json:"providers"`
	Options     model.GenerationOptions `json:"options"`
}

type BatchBody struct {
	Name      string                  `json:"name"`
	Category  model.Category          `json:"category"`
	Platform  model.Platform          `json:"platform"`
	Items     []string                `json:"items"`
	Providers []string                `json:"providers"`
	Options   model.GenerationOptions `json:"options"`
}

type BatchView struct {
	*model.BatchJob
	Progress int `json:"progress"`
}

type ErrorBody struct {
	Error     string                              `json:"error"`
	Message   string                              `json:"message"`
	Providers map[string]domain.ProviderErrorKind `json:"providers,omitempty"`
}

// ---- middleware ----

type ctxUserKey struct{}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if uid == "" {
			writeJSON(w, http.StatusUnauthorized, ErrorBody{Error: "unauthenticated", Message: "missing " + HeaderUserID})
			return
		}
		ctx := context.WithValue(logging.WithUserID(r.Context(), uid), ctxUserKey{}, uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(r *http.Request) string {
	v, _ := r.Context().Value(ctxUserKey{}).(string)
	return v
}

func (s *Server) allowSubmit(w http.ResponseWriter, r *http.Request, action string) bool {
	if s.limiter == nil || s.ratePerMinute <= 0 {
		return true
	}
	ok, err := s.limiter.Allow(r.Context(), red.UserActionKey(userID(r), action), s.ratePerMinute, time.Minute)
	if err != nil {
		// Throttling is advisory; quota still bounds the user.
		logging.With(r.Context(), s.log).Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	if !ok {
		writeJSON(w, http.StatusTooManyRequests, ErrorBody{Error: "rate_limited", Message: "too many submissions, retry later"})
		return false
	}
	return true
}

// ---- handlers ----

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var body GenerationBody
	if !decode(w, r, &body) {
		return
	}
	if !s.allowSubmit(w, r, "generate") {
		return
	}
	req := model.GenerationRequest{
		UserID:      userID(r),
		Category:    body.Category,
		Platform:    body.Platform,
		Description: body.Description,
		Providers:   body.Providers,
		Options:     body.Options,
	}
	if key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey)); key != "" {
		// Scoped per user so two callers can never share a reservation.
		req.RequestID = req.UserID + ":" + key
	}
	logging.With(r.Context(), s.log).Debug().
		Str("description", logging.Redact(body.Description, s.dev)).
		Strs("providers", body.Providers).
		Msg("generation requested")

	res, err := s.orch.Generate(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) listResults(w http.ResponseWriter, r *http.Request) {
	skip, err1 := queryInt(r, "skip", 0)
	limit, err2 := queryInt(r, "limit", 20)
	if err1 != nil || err2 != nil {
		s.writeError(w, r, domain.ErrInvalidArgument)
		return
	}
	items, err := s.orch.ListResults(r.Context(), userID(r), skip, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "skip": skip, "limit": limit})
}

func (s *Server) getResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.orch.GetResult(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) submitBatch(w http.ResponseWriter, r *http.Request) {
	var body BatchBody
	if !decode(w, r, &body) {
		return
	}
	if !s.allowSubmit(w, r, "batch_submit") {
		return
	}
	job, err := s.orch.SubmitBatch(r.Context(), model.BatchRequest{
		UserID:    userID(r),
		Name:      body.Name,
		Category:  body.Category,
		Platform:  body.Platform,
		Items:     body.Items,
		Providers: body.Providers,
		Options:   body.Options,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, BatchView{BatchJob: job, Progress: job.Progress()})
}

func (s *Server) getBatch(w http.ResponseWriter, r *http.Request) {
	job, err := s.orch.GetBatch(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BatchView{BatchJob: job, Progress: job.Progress()})
}

func (s *Server) cancelBatch(w http.ResponseWriter, r *http.Request) {
	ok, err := s.orch.CancelBatch(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": ok})
}

func (s *Server) listProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.orch.ListProviders()})
}

func (s *Server) describeProvider(w http.ResponseWriter, r *http.Request) {
	d, err := s.orch.DescribeProvider(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) usage(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("date")
	if day != "" {
		if _, err := time.Parse("2006-01-02", day); err != nil {
			s.writeError(w, r, domain.ErrInvalidArgument)
			return
		}
	}
	sum, err := s.orch.Usage(r.Context(), userID(r), day)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// ---- helpers ----

// StatusFor maps orchestrator errors onto HTTP status codes.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "quota_exceeded"
	case errors.Is(err, domain.ErrNoProvidersAvailable):
		return http.StatusUnprocessableEntity, "no_providers_available"
	case errors.Is(err, domain.ErrAllProvidersFailed):
		return http.StatusBadGateway, "all_providers_failed"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrRequestInFlight):
		return http.StatusConflict, "request_in_flight"
	case errors.Is(err, domain.ErrCancelled), errors.Is(err, context.Canceled):
		return 499, "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, kind := StatusFor(err)
	body := ErrorBody{Error: kind, Message: err.Error()}
	var all *domain.AllProvidersFailedError
	if errors.As(err, &all) {
		body.Providers = all.Errors
	}
	if code >= http.StatusInternalServerError {
		logging.With(r.Context(), s.log).Error().Err(err).Int("status", code).Msg("request failed")
		if code == http.StatusInternalServerError {
			body.Message = "internal error"
		}
	}
	writeJSON(w, code, body)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Error: "invalid_argument", Message: "malformed JSON body"})
		return false
	}
	return true
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, domain.ErrInvalidArgument
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
