//go:build !integration

package model

import (
	"errors"
	"strings"
	"testing"
	"time"

	"social-content-ai/internal/domain"
)

// --- User Model Tests ---

func TestUserResetIfNewDay(t *testing.T) {
	day1 := time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)
	day2 := day1.Add(2 * time.Minute)

	t.Run("should reset counter on a new UTC day", func(t *testing.T) {
		u := &User{ID: "u1", Tier: TierFree, DailyUsed: 10, LastReset: UTCDay(day1)}
		if !u.ResetIfNewDay(day2) {
			t.Fatal("expected a reset on the next day")
		}
		if u.DailyUsed != 0 {
			t.Errorf("expected DailyUsed 0, got %d", u.DailyUsed)
		}
		if u.LastReset != "2025-03-02" {
			t.Errorf("expected LastReset 2025-03-02, got %s", u.LastReset)
		}
	})

	t.Run("should be a no-op when applied twice on the same day", func(t *testing.T) {
		u := &User{ID: "u1", DailyUsed: 4, LastReset: UTCDay(day2)}
		if u.ResetIfNewDay(day2) {
			t.Fatal("expected no reset on the same day")
		}
		if u.DailyUsed != 4 {
			t.Errorf("expected DailyUsed to stay 4, got %d", u.DailyUsed)
		}
	})

	t.Run("should use UTC regardless of input zone", func(t *testing.T) {
		loc := time.FixedZone("UTC+5", 5*3600)
		local := time.Date(2025, 3, 2, 2, 0, 0, 0, loc) // 2025-03-01 21:00 UTC
		if got := UTCDay(local); got != "2025-03-01" {
			t.Errorf("expected 2025-03-01, got %s", got)
		}
	})
}

func TestTierLimits(t *testing.T) {
	limits := DefaultTierLimits()
	cases := map[Tier]int{
		TierFree:       10,
		TierPremium:    500,
		TierUnlimited:  Unlimited,
		TierAdmin:      Unlimited,
		TierSuperAdmin: Unlimited,
	}
	for tier, want := range cases {
		if got := limits.DailyLimit(tier); got != want {
			t.Errorf("%s: expected %d, got %d", tier, want, got)
		}
	}

	custom := TierLimits{TierFree: 3}
	if got := custom.DailyLimit(TierFree); got != 3 {
		t.Errorf("expected override 3, got %d", got)
	}
	if got := custom.DailyLimit(TierPremium); got != 500 {
		t.Errorf("expected fallback 500, got %d", got)
	}
	if got := ParseTier("premium"); got != TierPremium {
		t.Errorf("expected PREMIUM, got %s", got)
	}
	if got := ParseTier("gold"); got != TierFree {
		t.Errorf("expected unknown tier to map to FREE, got %s", got)
	}
}

// --- Generation Request Tests ---

func validRequest() GenerationRequest {
	return GenerationRequest{
		UserID:      "u1",
		Category:    CategoryProduct,
		Platform:    PlatformInstagram,
		Description: "Handmade ceramic mugs",
		Providers:   []string{"openai"},
	}
}

func TestGenerationRequestValidate(t *testing.T) {
	t.Run("should accept a valid request", func(t *testing.T) {
		r := validRequest()
		if err := r.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	bad := map[string]func(r *GenerationRequest){
		"empty user":           func(r *GenerationRequest) { r.UserID = "" },
		"unknown category":     func(r *GenerationRequest) { r.Category = "gadgets" },
		"unknown platform":     func(r *GenerationRequest) { r.Platform = "myspace" },
		"blank description":    func(r *GenerationRequest) { r.Description = "   " },
		"oversize desc":        func(r *GenerationRequest) { r.Description = strings.Repeat("a", MaxDescriptionBytes+1) },
		"no providers":         func(r *GenerationRequest) { r.Providers = nil },
		"unknown length":       func(r *GenerationRequest) { r.Options.Length = "epic" },
		"invalid utf8 in desc": func(r *GenerationRequest) { r.Description = "ok\xff" },
	}
	for name, mutate := range bad {
		t.Run("should reject "+name, func(t *testing.T) {
			r := validRequest()
			mutate(&r)
			if err := r.Validate(); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestClampedMaxTokens(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, DefaultMaxTokens},
		{-5, DefaultMaxTokens},
		{50, MinMaxTokens},
		{1200, 1200},
		{9000, MaxMaxTokens},
	}
	for _, c := range cases {
		got := GenerationOptions{MaxTokensPerProvider: c.in}.ClampedMaxTokens()
		if got != c.want {
			t.Errorf("ClampedMaxTokens(%d): expected %d, got %d", c.in, c.want, got)
		}
	}
}

// --- Batch Job Tests ---

func TestBatchStatusTransitions(t *testing.T) {
	allowed := [][2]BatchStatus{
		{BatchPending, BatchProcessing},
		{BatchPending, BatchCancelled},
		{BatchProcessing, BatchCompleted},
		{BatchProcessing, BatchPartiallyCompleted},
		{BatchProcessing, BatchFailed},
		{BatchProcessing, BatchCancelled},
	}
	for _, tr := range allowed {
		if !tr[0].CanTransition(tr[1]) {
			t.Errorf("expected %s -> %s to be allowed", tr[0], tr[1])
		}
	}
	denied := [][2]BatchStatus{
		{BatchProcessing, BatchPending},
		{BatchCompleted, BatchProcessing},
		{BatchCancelled, BatchProcessing},
		{BatchFailed, BatchCompleted},
		{BatchPending, BatchCompleted},
	}
	for _, tr := range denied {
		if tr[0].CanTransition(tr[1]) {
			t.Errorf("expected %s -> %s to be rejected", tr[0], tr[1])
		}
	}
}

func TestNewBatchJob(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	req := BatchRequest{
		UserID:    "u1",
		Category:  CategoryEvent,
		Platform:  PlatformTikTok,
		Items:     []string{"a", "b", "c"},
		Providers: []string{"openai", "gemini"},
	}
	job := NewBatchJob("b1", req, now, 5*time.Second)

	if job.Status != BatchPending {
		t.Errorf("expected PENDING, got %s", job.Status)
	}
	if job.Total != 3 || len(job.ResultIDs) != 3 {
		t.Errorf("expected total 3 with 3 result slots, got %d/%d", job.Total, len(job.ResultIDs))
	}
	if want := now.Add(30 * time.Second); !job.EstimatedCompletion.Equal(want) {
		t.Errorf("expected estimate %v, got %v", want, job.EstimatedCompletion)
	}

	job.RecordSuccess(0, "r0")
	job.RecordFailure(1)
	if job.Cursor() != 2 {
		t.Errorf("expected cursor 2, got %d", job.Cursor())
	}
	if job.ResultIDs[0] == nil || *job.ResultIDs[0] != "r0" || job.ResultIDs[1] != nil {
		t.Errorf("unexpected result ids: %v", job.ResultIDs)
	}
	job.RecordSuccess(2, "r2")
	if got := job.TerminalStatus(); got != BatchPartiallyCompleted {
		t.Errorf("expected PARTIALLY_COMPLETED, got %s", got)
	}
	if job.Completed+job.Failed != job.Total {
		t.Errorf("counters do not add up: %d+%d != %d", job.Completed, job.Failed, job.Total)
	}
}

func TestBatchTerminalStatus(t *testing.T) {
	j := &BatchJob{Total: 2, Failed: 2}
	if j.TerminalStatus() != BatchFailed {
		t.Errorf("expected FAILED, got %s", j.TerminalStatus())
	}
	j = &BatchJob{Total: 2, Completed: 2}
	if j.TerminalStatus() != BatchCompleted {
		t.Errorf("expected COMPLETED, got %s", j.TerminalStatus())
	}
}

func TestBatchRequestValidate(t *testing.T) {
	req := BatchRequest{UserID: "u1", Category: CategoryOther, Platform: PlatformEmail, Providers: []string{"openai"}}
	if err := req.Validate(); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected empty items to be rejected, got %v", err)
	}
	req.Items = make([]string, MaxBatchItems+1)
	for i := range req.Items {
		req.Items[i] = "x"
	}
	if err := req.Validate(); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected oversize batch to be rejected, got %v", err)
	}
	req.Items = req.Items[:MaxBatchItems]
	if err := req.Validate(); err != nil {
		t.Errorf("expected max-size batch to be valid, got %v", err)
	}
}
