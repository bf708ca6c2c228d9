package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tasky-bot/tasky/internal/queue"
	"github.com/tasky-bot/tasky/internal/services/summary"
)

// SummaryRunner runs one user's daily summary. Satisfied by summary.Service.
type SummaryRunner interface {
	RunForUser(ctx context.Context, userID uuid.UUID, day time.Time) error
}

var _ SummaryRunner = (*summary.Service)(nil)

// SummaryWorker consumes daily summary jobs and delivers digests
type SummaryWorker struct {
	summaries SummaryRunner
	jobQueue  queue.JobQueue
	logger    *zap.Logger
}

// NewSummaryWorker creates a new summary worker
func NewSummaryWorker(summaries SummaryRunner, jobQueue queue.JobQueue, logger *zap.Logger) *SummaryWorker {
	return &SummaryWorker{
		summaries: summaries,
		jobQueue:  jobQueue,
		logger:    logger,
	}
}

// Run consumes jobs until ctx is cancelled.
func (w *SummaryWorker) Run(ctx context.Context, prefetch int) error {
	msgChan, errChan, err := w.jobQueue.Consume(ctx, prefetch)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("summary worker started", zap.Int("prefetch", prefetch))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case consumeErr, ok := <-errChan:
			if !ok {
				return fmt.Errorf("queue error channel closed")
			}
			w.logger.Error("queue consume error", zap.Error(consumeErr))
		case msg, ok := <-msgChan:
			if !ok {
				return fmt.Errorf("queue message channel closed")
			}
			if err := w.ProcessJob(ctx, msg); err != nil {
				w.logger.Error("job processing failed",
					zap.String("job_id", msg.Job.ID.String()),
					zap.Error(err))
			}
		}
	}
}

// ProcessJob dispatches one message by job type and settles it.
func (w *SummaryWorker) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	switch job.Type {
	case queue.JobTypeDailySummary:
		if err := w.processDailySummary(ctx, job); err != nil {
			return w.handleJobError(ctx, msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		// Unknown job type, send to DLQ
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Warn("failed to nack unknown job type", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (w *SummaryWorker) processDailySummary(ctx context.Context, job *queue.Job) error {
	day, err := summary.ParseDate(job.SummaryDate)
	if err != nil {
		return fmt.Errorf("bad summary date on job %s: %w", job.ID, err)
	}

	if err := w.summaries.RunForUser(ctx, job.UserID, day); err != nil {
		return fmt.Errorf("failed to run summary: %w", err)
	}

	w.logger.Info("daily summary delivered",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", job.UserID.String()),
		zap.String("summary_date", job.SummaryDate))
	return nil
}

// handleJobError re-enqueues the job while retry budget remains, then dead-letters it.
func (w *SummaryWorker) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	if job.CanRetry() {
		retried := *job
		retried.RetryCount++

		if ackErr := msg.Ack(); ackErr != nil {
			w.logger.Warn("failed to ack job before re-enqueue", zap.Error(ackErr))
		}
		if enqueueErr := w.jobQueue.Enqueue(ctx, &retried); enqueueErr != nil {
			return fmt.Errorf("failed to re-enqueue job %s: %w", job.ID, enqueueErr)
		}

		w.logger.Warn("job failed, re-enqueued",
			zap.String("job_id", job.ID.String()),
			zap.Int("retry_count", retried.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err))
		return nil
	}

	w.logger.Error("job failed after max retries, sending to DLQ",
		zap.String("job_id", job.ID.String()),
		zap.Int("max_retries", job.MaxRetries),
		zap.Error(err))
	if nackErr := msg.Nack(false); nackErr != nil {
		w.logger.Warn("failed to nack job to DLQ", zap.Error(nackErr))
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}
