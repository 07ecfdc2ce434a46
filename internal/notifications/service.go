package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/regexyl/instantcards/internal/config"
)

const (
	defaultBaseURL = "https://api.postmarkapp.com"
	defaultSender  = "noreply@instantcards.app"

	completedSubject = "Your Flashcards are Ready! \U0001F389"
	failedSubject    = "Flashcard Processing Failed"
)

// Stats summarizes a finished job for the completion email.
type Stats struct {
	CardsCreated   int
	NewWords       int
	ProcessingTime time.Duration
}

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyJobCompleted(ctx context.Context, jobID string, stats Stats) error
	NotifyJobFailed(ctx context.Context, jobID, source, errorMessage string) error
}

// NewService builds an email notification service backed by Postmark when
// configured. When the server token or recipient is missing, a noop
// implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil || !cfg.NotificationsEnabled() {
		return noopService{}
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.Notifications.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	from := strings.TrimSpace(cfg.Notifications.FromEmail)
	if from == "" {
		from = defaultSender
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &postmarkService{
		endpoint: base + "/email",
		token:    strings.TrimSpace(cfg.Notifications.ServerToken),
		from:     from,
		to:       strings.TrimSpace(cfg.Notifications.ToEmail),
		client:   &http.Client{Timeout: timeout},
	}
}

// emailPayload matches Postmark's single-send request body.
type emailPayload struct {
	From          string            `json:"From"`
	To            string            `json:"To"`
	Subject       string            `json:"Subject"`
	HTMLBody      string            `json:"HtmlBody"`
	MessageStream string            `json:"MessageStream"`
	TrackOpens    bool              `json:"TrackOpens"`
	Metadata      map[string]string `json:"Metadata,omitempty"`
}

type postmarkService struct {
	endpoint string
	token    string
	from     string
	to       string
	client   *http.Client
}

func (p *postmarkService) NotifyJobCompleted(ctx context.Context, jobID string, stats Stats) error {
	var body strings.Builder
	body.WriteString("<h2>Processing Complete</h2>\n")
	body.WriteString("<p>Your recording has been processed and flashcards have been created!</p>\n")
	body.WriteString("<h3>Processing Statistics:</h3>\n<ul>\n")
	fmt.Fprintf(&body, "<li><strong>Flashcards Created:</strong> %d</li>\n", stats.CardsCreated)
	fmt.Fprintf(&body, "<li><strong>New Vocabulary Words:</strong> %d</li>\n", stats.NewWords)
	fmt.Fprintf(&body, "<li><strong>Processing Time:</strong> %s</li>\n", formatDuration(stats.ProcessingTime))
	body.WriteString("</ul>\n")
	fmt.Fprintf(&body, "<p>Job ID: %s</p>\n", jobID)

	return p.send(ctx, emailPayload{
		From:          p.from,
		To:            p.to,
		Subject:       completedSubject,
		HTMLBody:      body.String(),
		MessageStream: "outbound",
		TrackOpens:    true,
		Metadata:      map[string]string{"job_id": jobID},
	})
}

func (p *postmarkService) NotifyJobFailed(ctx context.Context, jobID, source, errorMessage string) error {
	var body strings.Builder
	body.WriteString("<h2>Processing Failed</h2>\n")
	body.WriteString("<p>Your recording could not be processed.</p>\n")
	if source = strings.TrimSpace(source); source != "" {
		fmt.Fprintf(&body, "<p><strong>Source:</strong> %s</p>\n", source)
	}
	if errorMessage = strings.TrimSpace(errorMessage); errorMessage != "" {
		fmt.Fprintf(&body, "<p><strong>Error:</strong> %s</p>\n", errorMessage)
	}
	fmt.Fprintf(&body, "<p>Job ID: %s</p>\n", jobID)

	return p.send(ctx, emailPayload{
		From:          p.from,
		To:            p.to,
		Subject:       failedSubject,
		HTMLBody:      body.String(),
		MessageStream: "outbound",
		TrackOpens:    true,
		Metadata:      map[string]string{"job_id": jobID},
	})
}

func (p *postmarkService) send(ctx context.Context, payload emailPayload) error {
	if p == nil || p.client == nil {
		return nil
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode postmark payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build postmark request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send postmark email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("postmark returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// formatDuration renders a duration as compact h/m/s parts, e.g. "1h 4m 12s".
func formatDuration(d time.Duration) string {
	total := int(d.Seconds())
	if total < 0 {
		total = 0
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var parts []string
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, " ")
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, string, Stats) error       { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string, string) error { return nil }
