package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tasky-bot/tasky/internal/models"
	"github.com/tasky-bot/tasky/internal/queue"
)

// mockMessage is a mock implementation of queue.MessageInterface
type mockMessage struct {
	job         *queue.Job
	ackCalled   bool
	nackCalled  bool
	nackRequeue bool
}

func (m *mockMessage) Ack() error {
	m.ackCalled = true
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nackCalled = true
	m.nackRequeue = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job {
	return m.job
}

var _ queue.MessageInterface = (*mockMessage)(nil)

type mockJobQueue struct {
	enqueueFunc func(ctx context.Context, job *queue.Job) error
	enqueued    []*queue.Job
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.enqueueFunc != nil {
		if err := m.enqueueFunc(ctx, job); err != nil {
			return err
		}
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (m *mockJobQueue) Close() error { return nil }

func (m *mockJobQueue) HealthCheck(ctx context.Context) error { return nil }

var _ queue.JobQueue = (*mockJobQueue)(nil)

type mockSummaryRunner struct {
	runFunc func(ctx context.Context, userID uuid.UUID, day time.Time) error
	calls   []uuid.UUID
}

func (m *mockSummaryRunner) RunForUser(ctx context.Context, userID uuid.UUID, day time.Time) error {
	m.calls = append(m.calls, userID)
	if m.runFunc != nil {
		return m.runFunc(ctx, userID, day)
	}
	return nil
}

func TestProcessJobSuccess(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	var gotDay time.Time
	runner := &mockSummaryRunner{
		runFunc: func(ctx context.Context, id uuid.UUID, day time.Time) error {
			gotDay = day
			return nil
		},
	}
	jq := &mockJobQueue{}
	worker := NewSummaryWorker(runner, jq, zap.NewNop())

	msg := &mockMessage{job: queue.NewDailySummaryJob(userID, "2025-07-14")}
	if err := worker.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob() error = %v", err)
	}

	if !msg.ackCalled {
		t.Error("message was not acked")
	}
	if msg.nackCalled {
		t.Error("message was nacked on success")
	}
	if len(runner.calls) != 1 || runner.calls[0] != userID {
		t.Errorf("runner calls = %v, want one call for %s", runner.calls, userID)
	}
	want := time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)
	if !gotDay.Equal(want) {
		t.Errorf("day = %v, want %v", gotDay, want)
	}
}

func TestProcessJobFailureReenqueues(t *testing.T) {
	t.Parallel()

	runner := &mockSummaryRunner{
		runFunc: func(ctx context.Context, id uuid.UUID, day time.Time) error {
			return errors.New("whatsapp send failed")
		},
	}
	jq := &mockJobQueue{}
	worker := NewSummaryWorker(runner, jq, zap.NewNop())

	job := queue.NewDailySummaryJob(uuid.New(), "2025-07-14")
	msg := &mockMessage{job: job}
	if err := worker.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob() error = %v, want nil when re-enqueued", err)
	}

	if !msg.ackCalled {
		t.Error("original message was not acked before re-enqueue")
	}
	if len(jq.enqueued) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(jq.enqueued))
	}
	retried := jq.enqueued[0]
	if retried.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", retried.RetryCount)
	}
	if retried.ID != job.ID {
		t.Errorf("retried job ID = %s, want %s", retried.ID, job.ID)
	}
}

func TestProcessJobExhaustedGoesToDLQ(t *testing.T) {
	t.Parallel()

	runner := &mockSummaryRunner{
		runFunc: func(ctx context.Context, id uuid.UUID, day time.Time) error {
			return errors.New("still failing")
		},
	}
	jq := &mockJobQueue{}
	worker := NewSummaryWorker(runner, jq, zap.NewNop())

	job := queue.NewDailySummaryJob(uuid.New(), "2025-07-14")
	job.RetryCount = job.MaxRetries
	msg := &mockMessage{job: job}

	if err := worker.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("ProcessJob() error = nil, want error after max retries")
	}
	if !msg.nackCalled {
		t.Error("message was not nacked")
	}
	if msg.nackRequeue {
		t.Error("message was requeued instead of dead-lettered")
	}
	if len(jq.enqueued) != 0 {
		t.Errorf("enqueued %d jobs, want 0", len(jq.enqueued))
	}
}

func TestProcessJobBadDate(t *testing.T) {
	t.Parallel()

	runner := &mockSummaryRunner{}
	jq := &mockJobQueue{}
	worker := NewSummaryWorker(runner, jq, zap.NewNop())

	job := queue.NewDailySummaryJob(uuid.New(), "July 14th")
	msg := &mockMessage{job: job}

	if err := worker.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob() error = %v, want nil (re-enqueued)", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("runner called %d times, want 0", len(runner.calls))
	}
}

func TestProcessJobUnknownType(t *testing.T) {
	t.Parallel()

	worker := NewSummaryWorker(&mockSummaryRunner{}, &mockJobQueue{}, zap.NewNop())
	msg := &mockMessage{job: &queue.Job{ID: uuid.New(), Type: "mystery"}}

	if err := worker.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("ProcessJob() error = nil, want unknown type error")
	}
	if !msg.nackCalled || msg.nackRequeue {
		t.Error("unknown job type should be nacked to DLQ")
	}
}

type mockUserRepo struct {
	listAllFunc func(ctx context.Context) ([]*models.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error { return nil }

func (m *mockUserRepo) GetByPhone(ctx context.Context, phoneNumber string) (*models.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserRepo) GetOrCreateByPhone(ctx context.Context, phoneNumber, displayName string) (*models.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserRepo) ListAll(ctx context.Context) ([]*models.User, error) {
	return m.listAllFunc(ctx)
}

func TestEnqueueAll(t *testing.T) {
	t.Parallel()

	users := []*models.User{
		{ID: uuid.New(), PhoneNumber: "15550001111"},
		{ID: uuid.New(), PhoneNumber: "15550002222"},
	}
	repo := &mockUserRepo{
		listAllFunc: func(ctx context.Context) ([]*models.User, error) {
			return users, nil
		},
	}
	jq := &mockJobQueue{}
	sched := NewScheduler(repo, jq, "0 8 * * *", zap.NewNop())

	day := time.Date(2025, 7, 14, 8, 0, 0, 0, time.UTC)
	if err := sched.EnqueueAll(context.Background(), day); err != nil {
		t.Fatalf("EnqueueAll() error = %v", err)
	}

	if len(jq.enqueued) != 2 {
		t.Fatalf("enqueued %d jobs, want 2", len(jq.enqueued))
	}
	for i, job := range jq.enqueued {
		if job.Type != queue.JobTypeDailySummary {
			t.Errorf("job %d type = %q, want %q", i, job.Type, queue.JobTypeDailySummary)
		}
		if job.UserID != users[i].ID {
			t.Errorf("job %d user = %s, want %s", i, job.UserID, users[i].ID)
		}
		if job.SummaryDate != "2025-07-14" {
			t.Errorf("job %d date = %q, want 2025-07-14", i, job.SummaryDate)
		}
	}
}

func TestEnqueueAllPartialFailure(t *testing.T) {
	t.Parallel()

	users := []*models.User{
		{ID: uuid.New()},
		{ID: uuid.New()},
	}
	repo := &mockUserRepo{
		listAllFunc: func(ctx context.Context) ([]*models.User, error) {
			return users, nil
		},
	}
	failFirst := true
	jq := &mockJobQueue{
		enqueueFunc: func(ctx context.Context, job *queue.Job) error {
			if failFirst {
				failFirst = false
				return errors.New("broker unavailable")
			}
			return nil
		},
	}
	sched := NewScheduler(repo, jq, "0 8 * * *", zap.NewNop())

	if err := sched.EnqueueAll(context.Background(), time.Now()); err != nil {
		t.Fatalf("EnqueueAll() error = %v, want nil with partial failure", err)
	}
	if len(jq.enqueued) != 1 {
		t.Errorf("enqueued %d jobs, want 1", len(jq.enqueued))
	}
}

func TestEnqueueAllListError(t *testing.T) {
	t.Parallel()

	repo := &mockUserRepo{
		listAllFunc: func(ctx context.Context) ([]*models.User, error) {
			return nil, errors.New("db down")
		},
	}
	sched := NewScheduler(repo, &mockJobQueue{}, "0 8 * * *", zap.NewNop())

	if err := sched.EnqueueAll(context.Background(), time.Now()); err == nil {
		t.Fatal("EnqueueAll() error = nil, want error")
	}
}

func TestSchedulerInvalidSpec(t *testing.T) {
	t.Parallel()

	sched := NewScheduler(&mockUserRepo{}, &mockJobQueue{}, "not a cron", zap.NewNop())
	if err := sched.Start(); err == nil {
		t.Fatal("Start() error = nil, want invalid spec error")
	}
}
