package model

import (
	"strings"
	"time"

	"social-content-ai/internal/domain"
)

const MaxBatchItems = 200

type BatchStatus string

const (
	BatchPending            BatchStatus = "PENDING"
	BatchProcessing         BatchStatus = "PROCESSING"
	BatchCompleted          BatchStatus = "COMPLETED"
	BatchPartiallyCompleted BatchStatus = "PARTIALLY_COMPLETED"
	BatchFailed             BatchStatus = "FAILED"
	BatchCancelled          BatchStatus = "CANCELLED"
)

func (s BatchStatus) Terminal() bool {
	switch s {
	case BatchCompleted, BatchPartiallyCompleted, BatchFailed, BatchCancelled:
		return true
	}
	return false
}

// CanTransition enforces the forward-only lifecycle:
// PENDING -> PROCESSING -> terminal, and PENDING|PROCESSING -> CANCELLED.
func (s BatchStatus) CanTransition(to BatchStatus) bool {
	switch s {
	case BatchPending:
		return to == BatchProcessing || to == BatchCancelled
	case BatchProcessing:
		return to.Terminal()
	}
	return false
}

type BatchRequest struct {
	UserID    string            `json:"user_id"`
	Name      string            `json:"name"`
	Category  Category          `json:"category"`
	Platform  Platform          `json:"platform"`
	Items     []string          `json:"items"`
	Providers []string          `json:"providers"`
	Options   GenerationOptions `json:"options"`
}

func (r *BatchRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" || !r.Category.Valid() || !r.Platform.Valid() {
		return domain.ErrInvalidArgument
	}
	if len(r.Items) == 0 || len(r.Items) > MaxBatchItems || len(r.Providers) == 0 {
		return domain.ErrInvalidArgument
	}
	for _, it := range r.Items {
		if strings.TrimSpace(it) == "" || len(it) > MaxDescriptionBytes {
			return domain.ErrInvalidArgument
		}
	}
	return nil
}

type BatchJob struct {
	ID                  string            `json:"id"`
	UserID              string            `json:"user_id"`
	Name                string            `json:"name"`
	Category            Category          `json:"category"`
	Platform            Platform          `json:"platform"`
	Items               []string          `json:"items"`
	Providers           []string          `json:"providers"`
	Options             GenerationOptions `json:"options"`
	Status              BatchStatus       `json:"status"`
	Total               int               `json:"total"`
	Completed           int               `json:"completed"`
	Failed              int               `json:"failed"`
	ResultIDs           []*string         `json:"result_ids"`
	CreatedAt           time.Time         `json:"created_at"`
	StartedAt           *time.Time        `json:"started_at,omitempty"`
	FinishedAt          *time.Time        `json:"finished_at,omitempty"`
	EstimatedCompletion time.Time         `json:"estimated_completion"`
}

// NewBatchJob builds a PENDING job. perCall is the time budget per item and provider.
func NewBatchJob(id string, req BatchRequest, now time.Time, perCall time.Duration) *BatchJob {
	n := len(req.Items)
	est := time.Duration(n*len(req.Providers)) * perCall
	return &BatchJob{
		ID:                  id,
		UserID:              req.UserID,
		Name:                req.Name,
		Category:            req.Category,
		Platform:            req.Platform,
		Items:               append([]string(nil), req.Items...),
		Providers:           append([]string(nil), req.Providers...),
		Options:             req.Options,
		Status:              BatchPending,
		Total:               n,
		ResultIDs:           make([]*string, n),
		CreatedAt:           now,
		EstimatedCompletion: now.Add(est),
	}
}

// Cursor is the index of the next unattempted item. Items run strictly in
// order, so every index below completed+failed has been attempted.
func (j *BatchJob) Cursor() int { return j.Completed + j.Failed }

func (j *BatchJob) RecordSuccess(i int, resultID string) {
	id := resultID
	j.ResultIDs[i] = &id
	j.Completed++
}

func (j *BatchJob) RecordFailure(i int) {
	j.ResultIDs[i] = nil
	j.Failed++
}

// TerminalStatus derives the final status from the counters.
func (j *BatchJob) TerminalStatus() BatchStatus {
	switch {
	case j.Failed == j.Total:
		return BatchFailed
	case j.Failed == 0:
		return BatchCompleted
	default:
		return BatchPartiallyCompleted
	}
}

// Progress returns the attempted share in percent.
func (j *BatchJob) Progress() int {
	if j.Total == 0 {
		return 0
	}
	return j.Cursor() * 100 / j.Total
}
