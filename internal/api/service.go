package api

import (
	"context"

	"github.com/regexyl/instantcards/internal/jobs"
)

// JobReader abstracts job persistence interactions needed for API queries.
type JobReader interface {
	List(ctx context.Context, limit int) ([]*jobs.Job, error)
	GetByID(ctx context.Context, id string) (*jobs.Job, error)
	Stats(ctx context.Context) (map[jobs.Status]int, error)
	Health(ctx context.Context) (jobs.HealthSummary, error)
}

// JobService exposes read-only job operations returning API DTOs.
type JobService struct {
	store JobReader
}

// NewJobService constructs a JobService around the provided reader.
func NewJobService(store JobReader) *JobService {
	if store == nil {
		return nil
	}
	return &JobService{store: store}
}

// List returns the most recently created jobs up to limit.
func (s *JobService) List(ctx context.Context, limit int) ([]Job, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	records, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	return FromJobs(records), nil
}

// Describe fetches a single job by id.
func (s *JobService) Describe(ctx context.Context, id string) (*Job, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	record, err := s.store.GetByID(ctx, id)
	if err != nil || record == nil {
		return nil, err
	}
	dto := FromJob(record)
	return &dto, nil
}

// Stats returns job summary counts keyed by status string.
func (s *JobService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeJobStats(stats), nil
}

// Health returns aggregated lifecycle counts for status reporting.
func (s *JobService) Health(ctx context.Context) (JobHealth, error) {
	if s == nil || s.store == nil {
		return JobHealth{}, nil
	}
	summary, err := s.store.Health(ctx)
	if err != nil {
		return JobHealth{}, err
	}
	return FromHealthSummary(summary), nil
}
