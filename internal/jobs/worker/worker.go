// Package worker runs the polling pool that claims and executes queued jobs.
package worker

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/notewise/notewise-backend/internal/config"
	"github.com/notewise/notewise-backend/internal/data/repos"
	"github.com/notewise/notewise-backend/internal/jobs/runtime"
	"github.com/notewise/notewise-backend/internal/pkg/dbctx"
	"github.com/notewise/notewise-backend/internal/pkg/logger"
)

type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *runtime.Registry
	notify   runtime.Notifier
	cfg      config.WorkerConfig
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry, notify runtime.Notifier, cfg config.WorkerConfig) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		notify:   notify,
		cfg:      cfg,
	}
}

func (w *Worker) Start(ctx context.Context) {
	concurrency := w.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	w.log.Info("starting job worker pool", "concurrency", concurrency)

	for i := 0; i < concurrency; i++ {
		go w.runLoop(ctx, i+1)
	}
	go w.reapLoop(ctx)
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			w.tick(ctx, workerID)
		}
	}
}

func (w *Worker) tick(ctx context.Context, workerID int) {
	c := dbctx.Context{Ctx: ctx, Tx: w.db}
	job, err := w.repo.ClaimNextRunnable(c, w.cfg.MaxAttempts, w.cfg.RetryDelay(), w.cfg.StaleProcessing())
	if err != nil {
		w.log.Warn("claim failed", "worker_id", workerID, "error", err.Error())
		return
	}
	if job == nil {
		return
	}

	jc := runtime.NewContext(ctx, w.db, job, w.repo, w.log, w.notify)

	h, ok := w.registry.Get(job.JobType)
	if !ok {
		w.log.Warn("no handler for job type",
			"worker_id", workerID,
			"job_type", job.JobType,
			"job_id", job.ID.String(),
		)
		jc.Fail("dispatch", fmt.Errorf("no handler registered for job_type=%s", job.JobType))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			w.log.Error("job handler panic",
				"worker_id", workerID,
				"job_id", job.ID.String(),
				"job_type", job.JobType,
				"panic", fmt.Sprint(r),
			)
			jc.Fail("panic", fmt.Errorf("handler panic: %v", r))
		}
	}()

	if runErr := h.Run(jc); runErr != nil {
		// handlers normally call jc.Fail themselves; this is the safety net
		jc.Fail("run", runErr)
	}
}

// reapLoop terminally fails processing rows that lost their worker and have
// no attempts left, so they stop showing as in-flight forever.
func (w *Worker) reapLoop(ctx context.Context) {
	interval := w.cfg.StaleProcessing()
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c := dbctx.Context{Ctx: ctx, Tx: w.db}
			n, err := w.repo.FailExhausted(c, w.cfg.MaxAttempts, w.cfg.StaleProcessing())
			if err != nil {
				w.log.Warn("reap failed", "error", err.Error())
				continue
			}
			if n > 0 {
				w.log.Info("failed abandoned jobs", "count", n)
			}
		}
	}
}
