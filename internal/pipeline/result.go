package pipeline

import (
	"github.com/regexyl/instantcards/internal/jobs"
	"github.com/regexyl/instantcards/internal/transcript"
)

// resultStatusSuccess is the status recorded in the result payload of every
// job that reaches the end of the pipeline, including jobs with branch
// failures embedded in PerBranchResults.
const resultStatusSuccess = "success"

// Result is the payload persisted with a completed job and returned to the
// caller.
type Result struct {
	Status             string             `json:"status"`
	JobID              string             `json:"job_id"`
	AudioPath          string             `json:"audio_path"`
	BlocksCount        int                `json:"blocks_count"`
	Duration           float64            `json:"duration"`
	TotalAtoms         int                `json:"total_atoms"`
	NewAtoms           int                `json:"new_atoms"`
	AudioSegmentsCount int                `json:"audio_segments_count"`
	PerBranchResults   map[string]any     `json:"per_branch_results"`
	TranslationData    transcript.Payload `json:"translation_data"`
}

func buildResult(job *jobs.Job, audioPath string, tr *transcript.Transcript, branches map[string]any) *Result {
	return &Result{
		Status:             resultStatusSuccess,
		JobID:              job.ID,
		AudioPath:          audioPath,
		BlocksCount:        tr.SegmentCount(),
		Duration:           tr.Duration(),
		TotalAtoms:         tr.TokenCount(),
		NewAtoms:           tr.NewTokenCount(),
		AudioSegmentsCount: tr.ArchivedCount(),
		PerBranchResults:   branches,
		TranslationData:    tr.Payload(),
	}
}
