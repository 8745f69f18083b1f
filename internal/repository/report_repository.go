package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/studytrack-api/internal/models"
	"github.com/noah-isme/studytrack-api/pkg/kv"
)

const reportKeyPrefix = "report:"

// ReportRepository persists report job metadata in the key-value store.
type ReportRepository struct {
	store kv.Store
	mu    sync.Mutex
}

// NewReportRepository constructs the repository.
func NewReportRepository(store kv.Store) *ReportRepository {
	return &ReportRepository{store: store}
}

// Create stores a new job with generated defaults.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := kv.SetJSON(ctx, r.store, reportKeyPrefix+job.ID, job, 0); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// GetByID returns a job; a missing job yields kv.ErrNotFound.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	var job models.ReportJob
	if err := kv.GetJSON(ctx, r.store, reportKeyPrefix+id, &job); err != nil {
		return nil, fmt.Errorf("get report job: %w", err)
	}
	return &job, nil
}

// UpdateReportJobParams defines the mutable fields.
type UpdateReportJobParams struct {
	Status       *models.ReportStatus
	Progress     *int
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update applies the non-nil fields of params to the stored job.
func (r *ReportRepository) Update(ctx context.Context, id string, params UpdateReportJobParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var job models.ReportJob
	if err := kv.GetJSON(ctx, r.store, reportKeyPrefix+id, &job); err != nil {
		return fmt.Errorf("load report job: %w", err)
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		if *params.ErrorMessage == "" {
			job.ErrorMessage = nil
		} else {
			job.ErrorMessage = params.ErrorMessage
		}
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	if err := kv.SetJSON(ctx, r.store, reportKeyPrefix+id, job, 0); err != nil {
		return fmt.Errorf("update report job: %w", err)
	}
	return nil
}

// Delete forgets a job.
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Delete(ctx, reportKeyPrefix+id); err != nil {
		return fmt.Errorf("delete report job: %w", err)
	}
	return nil
}

// ListQueued returns up to limit queued jobs, oldest first.
func (r *ReportRepository) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	return r.filter(ctx, limit, func(job models.ReportJob) bool {
		return job.Status == models.ReportStatusQueued
	})
}

// ListFinishedBefore returns up to limit finished or failed jobs completed before cutoff.
func (r *ReportRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return r.filter(ctx, limit, func(job models.ReportJob) bool {
		done := job.Status == models.ReportStatusFinished || job.Status == models.ReportStatusFailed
		return done && job.FinishedAt != nil && job.FinishedAt.Before(cutoff)
	})
}

func (r *ReportRepository) filter(ctx context.Context, limit int, keep func(models.ReportJob) bool) ([]models.ReportJob, error) {
	keys, err := r.store.Keys(ctx, reportKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list report jobs: %w", err)
	}
	jobs := make([]models.ReportJob, 0)
	for _, key := range keys {
		var job models.ReportJob
		if err := kv.GetJSON(ctx, r.store, key, &job); err != nil {
			// The key may have been deleted since Keys ran.
			continue
		}
		if keep(job) {
			jobs = append(jobs, job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}
