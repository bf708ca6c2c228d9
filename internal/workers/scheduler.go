package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tasky-bot/tasky/internal/database"
	"github.com/tasky-bot/tasky/internal/queue"
)

// Scheduler enqueues one daily summary job per user on a cron schedule.
type Scheduler struct {
	users    database.UserRepositoryInterface
	jobQueue queue.JobQueue
	spec     string
	logger   *zap.Logger
	cron     *cron.Cron
}

// NewScheduler creates a scheduler with a cron spec like "0 8 * * *".
func NewScheduler(users database.UserRepositoryInterface, jobQueue queue.JobQueue, spec string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		users:    users,
		jobQueue: jobQueue,
		spec:     spec,
		logger:   logger,
		cron:     cron.New(cron.WithLocation(time.UTC)),
	}
}

// Start registers the cron entry and begins scheduling.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.EnqueueAll(ctx, time.Now().UTC()); err != nil {
			s.logger.Error("scheduled summary enqueue failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("summary scheduler started", zap.String("cron", s.spec))
	return nil
}

// Stop halts scheduling and waits for any running enqueue to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// EnqueueAll publishes one daily summary job per registered user for the given day.
func (s *Scheduler) EnqueueAll(ctx context.Context, day time.Time) error {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	date := day.UTC().Format("2006-01-02")
	enqueued := 0
	for _, user := range users {
		job := queue.NewDailySummaryJob(user.ID, date)
		if err := s.jobQueue.Enqueue(ctx, job); err != nil {
			s.logger.Error("failed to enqueue summary job",
				zap.String("user_id", user.ID.String()),
				zap.Error(err))
			continue
		}
		enqueued++
	}

	s.logger.Info("summary jobs enqueued",
		zap.String("summary_date", date),
		zap.Int("users", len(users)),
		zap.Int("enqueued", enqueued))
	return nil
}
