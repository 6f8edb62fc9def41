package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"khidmapay/internal/logger"
	"khidmapay/internal/metrics"
)

// HandlerFunc executes one job. A returned error schedules a retry until
// the attempt cap, then the job is parked as failed.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

type Worker struct {
	db          *sqlx.DB
	handlers    map[string]HandlerFunc
	interval    time.Duration
	maxAttempts int
}

func NewWorker(db *sqlx.DB) *Worker {
	return &Worker{
		db:          db,
		handlers:    make(map[string]HandlerFunc),
		interval:    5 * time.Second,
		maxAttempts: 5,
	}
}

func (w *Worker) Register(kind string, handler HandlerFunc) {
	w.handlers[kind] = handler
}

// Start polls until ctx is cancelled. Each tick drains every due job.
func (w *Worker) Start(ctx context.Context) {
	logger.Info("Job worker started", "interval", w.interval.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Job worker stopped")
			return
		case <-ticker.C:
			for w.processOne(ctx) {
			}
		}
	}
}

// processOne claims and runs a single due job. The row stays locked for
// the duration of the handler so a second worker instance cannot run the
// same job concurrently. Returns true if a job was processed.
func (w *Worker) processOne(ctx context.Context) bool {
	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		logger.WithError(err).Error("Job worker: begin failed")
		return false
	}
	defer tx.Rollback()

	var job Job
	err = tx.QueryRowxContext(ctx, `
		SELECT id, kind, payload, run_at, attempts, status, last_error, created_at
		FROM scheduled_jobs
		WHERE status = 'pending' AND run_at <= NOW()
		ORDER BY run_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`).StructScan(&job)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.WithError(err).Error("Job worker: claim failed")
		}
		return false
	}

	handler, ok := w.handlers[job.Kind]
	if !ok {
		logger.Error("Job worker: no handler registered", "kind", job.Kind, "job_id", job.ID)
		w.finish(ctx, tx, job, StatusFailed, fmt.Sprintf("no handler for kind %q", job.Kind))
		metrics.RecordJob(job.Kind, "failed")
		return true
	}

	logger.Info("Job worker: running job", "kind", job.Kind, "job_id", job.ID, "attempt", job.Attempts+1)

	if runErr := handler(ctx, job.Payload); runErr != nil {
		w.retryOrFail(ctx, tx, job, runErr)
		return true
	}

	w.finish(ctx, tx, job, StatusCompleted, "")
	metrics.RecordJob(job.Kind, "completed")
	return true
}

func (w *Worker) retryOrFail(ctx context.Context, tx *sqlx.Tx, job Job, runErr error) {
	attempts := job.Attempts + 1

	if attempts >= w.maxAttempts {
		logger.WithError(runErr).Error("Job worker: job failed permanently", "kind", job.Kind, "job_id", job.ID)
		w.finish(ctx, tx, job, StatusFailed, runErr.Error())
		metrics.RecordJob(job.Kind, "failed")
		return
	}

	backoff := time.Duration(attempts*10) * time.Second
	nextRun := time.Now().Add(backoff)

	logger.WithError(runErr).Warn("Job worker: job failed, retrying",
		"kind", job.Kind, "job_id", job.ID, "attempt", attempts, "next_run", nextRun)

	_, err := tx.ExecContext(ctx,
		`UPDATE scheduled_jobs
		 SET attempts = $1, run_at = $2, last_error = $3
		 WHERE id = $4`,
		attempts, nextRun, runErr.Error(), job.ID,
	)
	if err != nil {
		logger.WithError(err).Error("Job worker: reschedule failed", "job_id", job.ID)
		return
	}

	if err := tx.Commit(); err != nil {
		logger.WithError(err).Error("Job worker: commit failed", "job_id", job.ID)
	}
	metrics.RecordJob(job.Kind, "retried")
}

func (w *Worker) finish(ctx context.Context, tx *sqlx.Tx, job Job, status, lastError string) {
	_, err := tx.ExecContext(ctx,
		`UPDATE scheduled_jobs
		 SET status = $1, attempts = $2, last_error = $3
		 WHERE id = $4`,
		status, job.Attempts+1, lastError, job.ID,
	)
	if err != nil {
		logger.WithError(err).Error("Job worker: finish failed", "job_id", job.ID)
		return
	}

	if err := tx.Commit(); err != nil {
		logger.WithError(err).Error("Job worker: commit failed", "job_id", job.ID)
	}
}
