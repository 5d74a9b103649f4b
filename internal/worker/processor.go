package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jaylee-dev/media-toolbox/internal/worker/domain"
)

// processJob processes a single job with timeout, heartbeat, and status updates
func (w *Worker) processJob(ctx context.Context, msg *domain.JobMessage) error {
	w.logger.Info("Processing job",
		slog.String("job_id", msg.JobID),
		slog.String("worker_id", w.workerID),
	)

	// Claim the job (pending -> processing). A cancelled-while-queued job
	// fails the claim and the message is dropped without requeue.
	job, err := w.storage.ClaimJob(ctx, msg.JobID, w.workerID)
	if err != nil {
		if errors.Is(err, domain.ErrJobAlreadyClaimed) {
			w.logger.Warn("Job not claimable, skipping",
				slog.String("job_id", msg.JobID),
			)
			return fmt.Errorf("job not claimable: %w", err)
		}
		// Database error - could be transient
		w.logger.Error("Failed to claim job",
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)
		return domain.NewRetryableError(fmt.Errorf("failed to claim job: %w", err))
	}

	executor, ok := w.executors[job.JobType]
	if !ok {
		w.logger.Error("No executor for job type",
			slog.String("job_id", job.JobID),
			slog.String("job_type", job.JobType),
		)
		if markErr := w.storage.MarkFailed(ctx, job.JobID, "unknown job type: "+job.JobType); markErr != nil {
			w.logger.Error("Failed to mark job failed",
				slog.String("job_id", job.JobID),
				slog.String("error", markErr.Error()),
			)
		}
		return fmt.Errorf("%w: unknown job type %q", domain.ErrInvalidPayload, job.JobType)
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	heartbeatDone := make(chan struct{})
	go w.sendJobHeartbeat(jobCtx, job.JobID, heartbeatDone)
	defer close(heartbeatDone)

	outputs, err := executor.Execute(jobCtx, job)

	if errors.Is(err, domain.ErrJobCancelled) {
		// The cancelled status stands; nothing more to write.
		w.logger.Info("Job cancelled during execution",
			slog.String("job_id", job.JobID),
			slog.String("job_type", job.JobType),
		)
		return nil
	}

	if err != nil {
		w.logger.Error("Job execution failed",
			slog.String("job_id", job.JobID),
			slog.String("job_type", job.JobType),
			slog.String("error", err.Error()),
		)

		if updateErr := w.storage.MarkFailed(ctx, job.JobID, err.Error()); updateErr != nil {
			w.logger.Error("Failed to mark job failed",
				slog.String("job_id", job.JobID),
				slog.String("error", updateErr.Error()),
			)
		}

		return fmt.Errorf("job execution failed: %w", err)
	}

	if err := w.storage.MarkCompleted(ctx, job.JobID, outputs); err != nil {
		if errors.Is(err, domain.ErrJobCancelled) {
			// A cancel raced the final step. Cancellation wins: drop the
			// produced output so it is never attached to the job.
			names := make([]string, 0, len(outputs))
			for _, name := range outputs {
				names = append(names, name)
			}
			w.artifacts.RemoveAll(names)

			w.logger.Info("Job cancelled before completion, output dropped",
				slog.String("job_id", job.JobID),
			)
			return nil
		}

		w.logger.Error("Failed to mark job completed",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
		// Work is done and artifacts are stored; ACK anyway.
		return nil
	}

	w.logger.Info("Job completed successfully",
		slog.String("job_id", job.JobID),
		slog.String("job_type", job.JobType),
	)

	return nil
}

// sendJobHeartbeat periodically updates the job's heartbeat timestamp
func (w *Worker) sendJobHeartbeat(ctx context.Context, jobID string, done <-chan struct{}) {
	interval := w.heartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := w.storage.UpdateJobHeartbeat(ctx, jobID); err != nil {
				w.logger.Warn("Failed to update job heartbeat",
					slog.String("job_id", jobID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
