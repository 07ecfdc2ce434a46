package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending       Status = "pending"
	StatusProcessing    Status = "processing"
	StatusCardsComplete Status = "cards_complete"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCardsComplete,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends the job's lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SourceType classifies what a job's source string points at.
type SourceType string

const (
	// SourceURL is a remote recording fetched through the media acquirer.
	SourceURL SourceType = "url"
	// SourceAudio is a local audio file sent straight to transcription.
	SourceAudio SourceType = "audio"
	// SourceSubtitle is subtitle input, either a .srt file path or inline
	// SRT text; it skips acquisition and transcription entirely.
	SourceSubtitle SourceType = "subtitle"
)

// DetectSourceType infers the source type from the source string.
func DetectSourceType(source string) SourceType {
	trimmed := strings.TrimSpace(source)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return SourceURL
	case strings.HasSuffix(lower, ".srt"), strings.Contains(trimmed, "-->"):
		return SourceSubtitle
	default:
		return SourceAudio
	}
}

// Job represents one pipeline run persisted in SQLite.
type Job struct {
	ID           string
	Source       string
	SourceType   SourceType
	AudioPath    string
	Status       Status
	ResultJSON   string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HealthSummary describes aggregated job counts per key lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}
