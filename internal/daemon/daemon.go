package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"github.com/regexyl/instantcards/internal/config"
	"github.com/regexyl/instantcards/internal/jobs"
	"github.com/regexyl/instantcards/internal/logging"
	"github.com/regexyl/instantcards/internal/pipeline"
)

// submitFileExtensions lists local file types accepted for direct submission.
var submitFileExtensions = map[string]struct{}{
	".wav":  {},
	".mp3":  {},
	".m4a":  {},
	".flac": {},
	".ogg":  {},
	".opus": {},
	".aac":  {},
	".srt":  {},
}

// Daemon coordinates background processing and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *jobs.Store
	worker *worker
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	QueueDBPath  string
	LockFilePath string
	Health       jobs.HealthSummary
	JobStats     map[jobs.Status]int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, pipe *pipeline.Pipeline, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || pipe == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, pipeline, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "instantcards.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		worker:   newWorker(cfg, store, pipe, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start launches the worker and control API and acquires the daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another instantcards daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if count, err := d.store.ResetStuck(d.ctx); err != nil {
		logging.WarnWithContext(d.logger, "requeue of interrupted jobs failed", "reset_stuck_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check job database access"),
			logging.String(logging.FieldImpact, "jobs interrupted by the previous shutdown stay stuck"),
		)
	} else if count > 0 {
		d.logger.Info("requeued interrupted jobs", logging.Int64("count", count))
	}

	if err := d.worker.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start worker: %w", err)
	}

	if err := d.api.start(d.ctx); err != nil {
		d.worker.Stop()
		d.abortStart()
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("instantcards daemon started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.worker.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("instantcards daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Submit validates a source and enqueues a job for the worker.
func (d *Daemon) Submit(ctx context.Context, source string) (*jobs.Job, error) {
	if d.store == nil {
		return nil, errors.New("job store unavailable")
	}
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return nil, errors.New("source is required")
	}

	sourceType := jobs.DetectSourceType(trimmed)
	if sourceType != jobs.SourceURL && !strings.Contains(trimmed, "-->") {
		absPath, err := filepath.Abs(trimmed)
		if err != nil {
			return nil, fmt.Errorf("resolve source path: %w", err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return nil, fmt.Errorf("stat source file: %w", err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("source path %q is a directory", absPath)
		}
		ext := strings.ToLower(filepath.Ext(info.Name()))
		if _, ok := submitFileExtensions[ext]; !ok {
			return nil, fmt.Errorf("unsupported file extension %q", ext)
		}
		trimmed = absPath
	}

	job, err := d.store.NewJob(ctx, trimmed, sourceType)
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	d.logger.Info("job submitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source", job.Source),
		logging.String("source_type", string(job.SourceType)),
	)
	return job, nil
}

// APIAddr returns the listening address of the control API, or empty when
// the API is disabled or the daemon is stopped.
func (d *Daemon) APIAddr() string {
	if d.api == nil || d.api.listener == nil {
		return ""
	}
	return d.api.listener.Addr().String()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if health, err := d.store.Health(ctx); err == nil {
		status.Health = health
	}
	if stats, err := d.store.Stats(ctx); err == nil {
		status.JobStats = stats
	}
	return status
}
