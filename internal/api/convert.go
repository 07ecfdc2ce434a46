package api

import (
	"encoding/json"
	"strings"

	"github.com/regexyl/instantcards/internal/jobs"
)

// FromJob converts a stored job to its API representation.
func FromJob(job *jobs.Job) Job {
	if job == nil {
		return Job{}
	}

	dto := Job{
		ID:           job.ID,
		Source:       job.Source,
		SourceType:   string(job.SourceType),
		Status:       string(job.Status),
		AudioPath:    job.AudioPath,
		ErrorMessage: job.ErrorMessage,
	}
	if !job.CreatedAt.IsZero() {
		dto.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		dto.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	if strings.TrimSpace(job.ResultJSON) != "" {
		dto.Result = json.RawMessage(job.ResultJSON)
	}
	return dto
}

// FromJobs converts a slice of stored jobs into API DTOs.
func FromJobs(records []*jobs.Job) []Job {
	if len(records) == 0 {
		return nil
	}
	out := make([]Job, 0, len(records))
	for _, record := range records {
		out = append(out, FromJob(record))
	}
	return out
}

// FromHealthSummary converts store health counts to the API payload.
func FromHealthSummary(summary jobs.HealthSummary) JobHealth {
	return JobHealth{
		Total:      summary.Total,
		Pending:    summary.Pending,
		Processing: summary.Processing,
		Completed:  summary.Completed,
		Failed:     summary.Failed,
	}
}

// MergeJobStats produces a string-keyed representation of job stats.
func MergeJobStats(stats map[jobs.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}
