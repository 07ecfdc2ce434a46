package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/regexyl/instantcards/internal/config"
	"github.com/regexyl/instantcards/internal/jobs"
	"github.com/regexyl/instantcards/internal/logging"
	"github.com/regexyl/instantcards/internal/pipeline"
)

// worker polls the job store and hands each pending job to the pipeline.
type worker struct {
	store        *jobs.Store
	pipe         *pipeline.Pipeline
	logger       *slog.Logger
	pollInterval time.Duration
	retryDelay   time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func newWorker(cfg *config.Config, store *jobs.Store, pipe *pipeline.Pipeline, logger *slog.Logger) *worker {
	return &worker{
		store:        store,
		pipe:         pipe,
		logger:       logging.NewComponentLogger(logger, "worker"),
		pollInterval: time.Duration(cfg.Workflow.PollInterval) * time.Second,
		retryDelay:   time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
	}
}

// Start begins background processing.
func (w *worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("worker already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	w.mu.Unlock()

	go w.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (w *worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

func (w *worker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.store.NextPending(ctx)
		if err != nil {
			w.handleNextJobError(ctx, err)
			continue
		}
		if job == nil {
			w.waitForJobOrShutdown(ctx)
			continue
		}

		// Run records job-level failures itself; only a shutdown stops the loop.
		if _, err := w.pipe.Run(ctx, job); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (w *worker) handleNextJobError(ctx context.Context, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	w.logger.Error("failed to fetch next pending job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "job_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check job database access"),
	)
	select {
	case <-ctx.Done():
		return
	case <-time.After(w.retryDelay):
	}
}

func (w *worker) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(w.pollInterval):
	}
}
