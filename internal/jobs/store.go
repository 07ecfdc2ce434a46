package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/regexyl/instantcards/internal/config"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// catalogChunkSize bounds the number of bound parameters per catalog
	// statement; SQLite defaults to a 999 variable limit.
	catalogChunkSize = 200

	defaultListLimit = 50
)

// Open initializes or connects to the jobs database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// NewJob inserts a pending job for the given source.
func (s *Store) NewJob(ctx context.Context, source string, sourceType SourceType) (*Job, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, errors.New("job source required")
	}
	if sourceType == "" {
		sourceType = DetectSourceType(source)
	}

	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO jobs (id, source, source_type, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		source,
		string(sourceType),
		StatusPending,
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. A missing job returns (nil, nil).
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns the most recent jobs, newest first. A non-positive limit uses
// the default of 50.
func (s *Store) List(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var result []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	return result, rows.Err()
}

// NextPending returns the oldest pending job, or nil when none is queued.
func (s *Store) NextPending(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at LIMIT 1`, StatusPending)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending job: %w", err)
	}
	return job, nil
}

// UpdateStatus records a status transition. Callers on the side channel treat
// failures as best-effort and only log them.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// UpdateAudioPath records where the acquired audio landed.
func (s *Store) UpdateAudioPath(ctx context.Context, id, audioPath string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET audio_path = ?, updated_at = ? WHERE id = ?`,
		nullableString(audioPath),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update audio path: %w", err)
	}
	return nil
}

// SetResult stores the serialized result payload alongside the final status.
func (s *Store) SetResult(ctx context.Context, id string, status Status, resultJSON string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET status = ?, result_json = ?, error_message = NULL, updated_at = ? WHERE id = ?`,
		status,
		nullableString(resultJSON),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("set result: %w", err)
	}
	return nil
}

// SetFailed marks a job failed with the given message.
func (s *Store) SetFailed(ctx context.Context, id, message string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		StatusFailed,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// ResetStuck returns in-flight jobs to pending so the worker picks them up
// again after a daemon restart. Processing and cards_complete rows both count
// as in-flight.
func (s *Store) ResetStuck(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(
			ctx,
			`UPDATE jobs SET status = ?, updated_at = ? WHERE status IN (?, ?)`,
			StatusPending,
			time.Now().UTC().Format(time.RFC3339Nano),
			StatusProcessing,
			StatusCardsComplete,
		)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return affected, nil
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates job state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusProcessing, StatusCardsComplete:
			health.Processing += count
		case StatusCompleted:
			health.Completed += count
		case StatusFailed:
			health.Failed += count
		}
	}
	return health, nil
}

// LookupCardIDs returns the catalog card id for each surface that has one.
// Surfaces without an entry are absent from the result.
func (s *Store) LookupCardIDs(ctx context.Context, surfaces []string) (map[string]string, error) {
	found := make(map[string]string, len(surfaces))
	for start := 0; start < len(surfaces); start += catalogChunkSize {
		end := start + catalogChunkSize
		if end > len(surfaces) {
			end = len(surfaces)
		}
		chunk := surfaces[start:end]

		placeholders := makePlaceholders(len(chunk))
		args := make([]any, len(chunk))
		for i, surface := range chunk {
			args[i] = surface
		}

		rows, err := s.db.QueryContext(ctx,
			`SELECT surface, card_id FROM token_cards WHERE surface IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("lookup card ids: %w", err)
		}
		for rows.Next() {
			var surface, cardID string
			if err := rows.Scan(&surface, &cardID); err != nil {
				rows.Close()
				return nil, err
			}
			found[surface] = cardID
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return found, nil
}

// SaveCardIDs upserts catalog entries for newly created cards. Surfaces that
// already have an entry keep the newest card id.
func (s *Store) SaveCardIDs(ctx context.Context, ids map[string]string) error {
	if len(ids) == 0 {
		return nil
	}

	entries := make([][2]string, 0, len(ids))
	for surface, cardID := range ids {
		surface = strings.TrimSpace(surface)
		cardID = strings.TrimSpace(cardID)
		if surface == "" || cardID == "" {
			continue
		}
		entries = append(entries, [2]string{surface, cardID})
	}
	if len(entries) == 0 {
		return nil
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	for start := 0; start < len(entries); start += catalogChunkSize {
		end := start + catalogChunkSize
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[start:end]

		var query strings.Builder
		query.WriteString(`INSERT INTO token_cards (surface, card_id, created_at) VALUES `)
		args := make([]any, 0, len(chunk)*3)
		for i, entry := range chunk {
			if i > 0 {
				query.WriteString(", ")
			}
			query.WriteString("(?, ?, ?)")
			args = append(args, entry[0], entry[1], timestamp)
		}
		query.WriteString(` ON CONFLICT(surface) DO UPDATE SET card_id = excluded.card_id`)

		if err := s.execWithoutResultRetry(ctx, query.String(), args...); err != nil {
			return fmt.Errorf("save card ids: %w", err)
		}
	}
	return nil
}

const jobColumns = "id, source, source_type, audio_path, status, result_json, error_message, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id         string
		source     string
		sourceType string
		audioPath  sql.NullString
		statusStr  string
		resultJSON sql.NullString
		errMessage sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&source,
		&sourceType,
		&audioPath,
		&statusStr,
		&resultJSON,
		&errMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		Source:       source,
		SourceType:   SourceType(sourceType),
		AudioPath:    audioPath.String,
		Status:       Status(statusStr),
		ResultJSON:   resultJSON.String,
		ErrorMessage: errMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
