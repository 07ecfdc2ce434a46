package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a card-generation job in a transport-friendly format.
type Job struct {
	ID           string          `json:"id"`
	Source       string          `json:"source"`
	SourceType   string          `json:"sourceType"`
	Status       string          `json:"status"`
	AudioPath    string          `json:"audioPath,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
}

// SubmitRequest carries a new job submission.
type SubmitRequest struct {
	Source string `json:"source"`
}

// JobHealth summarizes job counts per lifecycle state.
type JobHealth struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	QueueDBPath  string         `json:"queueDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	Health       JobHealth      `json:"health"`
	JobStats     map[string]int `json:"jobStats"`
}

// JobListResponse wraps a collection of jobs for API responses.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}
