package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
	"social-content-ai/internal/domain/ports/repository"
)

var _ repository.BatchJobRepository = (*BatchJobRepo)(nil)

type BatchJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.BatchJob
}

func NewBatchJobRepo() *BatchJobRepo {
	return &BatchJobRepo{jobs: make(map[string]*model.BatchJob)}
}

func cloneJob(j *model.BatchJob) *model.BatchJob {
	cp := *j
	cp.Items = append([]string(nil), j.Items...)
	cp.Providers = append([]string(nil), j.Providers...)
	cp.ResultIDs = make([]*string, len(j.ResultIDs))
	for i, id := range j.ResultIDs {
		if id != nil {
			v := *id
			cp.ResultIDs[i] = &v
		}
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}

func (r *BatchJobRepo) Create(_ context.Context, _ repository.Tx, job *model.BatchJob) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *BatchJobRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.BatchJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneJob(j), nil
}

func (r *BatchJobRepo) TransitionStatus(_ context.Context, _ repository.Tx, id string, from []model.BatchStatus, to model.BatchStatus, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !statusIn(j.Status, from) {
		return false, nil
	}
	applyTransition(j, to, at)
	return true, nil
}

func (r *BatchJobRepo) ClaimPending(_ context.Context, at time.Time) (*model.BatchJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var oldest *model.BatchJob
	for _, j := range r.jobs {
		if j.Status != model.BatchPending {
			continue
		}
		if oldest == nil || j.CreatedAt.Before(oldest.CreatedAt) {
			oldest = j
		}
	}
	if oldest == nil {
		return nil, domain.ErrNotFound
	}
	applyTransition(oldest, model.BatchProcessing, at)
	return cloneJob(oldest), nil
}

func (r *BatchJobRepo) SaveProgress(_ context.Context, _ repository.Tx, job *model.BatchJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[job.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status != model.BatchProcessing && j.Status != model.BatchCancelled {
		return domain.ErrInvalidTransition
	}
	j.Completed = job.Completed
	j.Failed = job.Failed
	j.ResultIDs = cloneJob(job).ResultIDs
	return nil
}

func (r *BatchJobRepo) MarkFinished(_ context.Context, _ repository.Tx, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if j.FinishedAt == nil {
		t := at
		j.FinishedAt = &t
	}
	return nil
}

func (r *BatchJobRepo) ListByStatus(_ context.Context, _ repository.Tx, status model.BatchStatus, limit int) ([]*model.BatchJob, error) {
	r.mu.Lock()
	out := make([]*model.BatchJob, 0)
	for _, j := range r.jobs {
		if j.Status == status {
			out = append(out, cloneJob(j))
		}
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func statusIn(s model.BatchStatus, set []model.BatchStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func applyTransition(j *model.BatchJob, to model.BatchStatus, at time.Time) {
	j.Status = to
	t := at
	if to == model.BatchProcessing && j.StartedAt == nil {
		j.StartedAt = &t
	}
	if to.Terminal() && j.FinishedAt == nil {
		j.FinishedAt = &t
	}
}
