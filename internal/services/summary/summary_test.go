package summary

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tasky-bot/tasky/internal/database"
	"github.com/tasky-bot/tasky/internal/models"
	"github.com/tasky-bot/tasky/internal/prompts"
)

type mockUserRepo struct {
	users   []*models.User
	listErr error
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error { return nil }

func (m *mockUserRepo) GetByPhone(ctx context.Context, phoneNumber string) (*models.User, error) {
	return nil, database.ErrNotFound
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *mockUserRepo) GetOrCreateByPhone(ctx context.Context, phoneNumber, displayName string) (*models.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserRepo) ListAll(ctx context.Context) ([]*models.User, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.users, nil
}

var _ database.UserRepositoryInterface = (*mockUserRepo)(nil)

type mockTaskRepo struct {
	dueByUser map[uuid.UUID][]*models.Task
}

func (m *mockTaskRepo) Create(ctx context.Context, task *models.Task) error { return nil }

func (m *mockTaskRepo) GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Task, error) {
	return nil, database.ErrNotFound
}

func (m *mockTaskRepo) ListByUser(ctx context.Context, userID uuid.UUID, filter database.TaskFilter) ([]*models.Task, error) {
	return nil, nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *models.Task) error { return nil }

func (m *mockTaskRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return database.ErrNotFound
}

func (m *mockTaskRepo) ListDueOn(ctx context.Context, userID uuid.UUID, day time.Time) ([]*models.Task, error) {
	return m.dueByUser[userID], nil
}

var _ database.TaskRepositoryInterface = (*mockTaskRepo)(nil)

type mockSender struct {
	mu      sync.Mutex
	sent    map[string]string
	sendErr error
}

func newMockSender() *mockSender {
	return &mockSender{sent: map[string]string{}}
}

func (m *mockSender) SendText(ctx context.Context, to, body string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[to] = body
	return nil
}

func (m *mockSender) DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	return nil, "", errors.New("not implemented")
}

type stubGenerator struct {
	reply string
	err   error
	// last prompt seen, for assertions
	prompt string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompt = prompt
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func TestRunZeroTaskUser(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), PhoneNumber: "15551234567", DisplayName: "Ada"}
	sender := newMockSender()
	gen := &stubGenerator{reply: "should not be used"}

	svc := NewService(
		&mockUserRepo{users: []*models.User{user}},
		&mockTaskRepo{dueByUser: map[uuid.UUID][]*models.Task{}},
		sender, gen, prompts.Default(), zap.NewNop(),
	)

	day := time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)
	sent, err := svc.Run(context.Background(), day)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d, want 1", sent)
	}

	const want = "Hello Ada, You got no tasks today. ENJOY!!!"
	if got := sender.sent["15551234567"]; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
	if gen.prompt != "" {
		t.Error("generator should not run for a zero-task user")
	}
}

func TestRunWithTasks(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), PhoneNumber: "15551234567", DisplayName: "Ada"}
	due := time.Date(2025, 7, 14, 17, 0, 0, 0, time.UTC)
	task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Ship release", DueDt: &due}

	sender := newMockSender()
	gen := &stubGenerator{reply: "Good morning Ada! Ship release is due at 5pm. You got this."}

	svc := NewService(
		&mockUserRepo{users: []*models.User{user}},
		&mockTaskRepo{dueByUser: map[uuid.UUID][]*models.Task{user.ID: {task}}},
		sender, gen, prompts.Default(), zap.NewNop(),
	)

	day := time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Run(context.Background(), day); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := sender.sent["15551234567"]; got != gen.reply {
		t.Errorf("message = %q, want generator output", got)
	}
	if !strings.Contains(gen.prompt, "Ship release") {
		t.Errorf("prompt missing task title:\n%s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "2025-07-14") {
		t.Errorf("prompt missing date:\n%s", gen.prompt)
	}
}

func TestRunGeneratorFailureAborts(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), PhoneNumber: "15551234567", DisplayName: "Ada"}
	due := time.Now().UTC()
	task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "x", DueDt: &due}

	sender := newMockSender()
	svc := NewService(
		&mockUserRepo{users: []*models.User{user}},
		&mockTaskRepo{dueByUser: map[uuid.UUID][]*models.Task{user.ID: {task}}},
		sender, &stubGenerator{err: errors.New("model unavailable")}, prompts.Default(), zap.NewNop(),
	)

	if _, err := svc.Run(context.Background(), due); err == nil {
		t.Fatal("expected error when generation fails")
	}
	if len(sender.sent) != 0 {
		t.Error("no messages should go out when composition fails")
	}
}

func TestRunSendFailureReported(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), PhoneNumber: "15551234567", DisplayName: "Ada"}
	sender := newMockSender()
	sender.sendErr = errors.New("network down")

	svc := NewService(
		&mockUserRepo{users: []*models.User{user}},
		&mockTaskRepo{dueByUser: map[uuid.UUID][]*models.Task{}},
		sender, &stubGenerator{}, prompts.Default(), zap.NewNop(),
	)

	sent, err := svc.Run(context.Background(), time.Now().UTC())
	if err == nil {
		t.Fatal("expected error when sends fail")
	}
	if sent != 0 {
		t.Errorf("sent = %d, want 0", sent)
	}
}

func TestRunForUser(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), PhoneNumber: "15559876543", DisplayName: "Grace"}
	sender := newMockSender()

	svc := NewService(
		&mockUserRepo{users: []*models.User{user}},
		&mockTaskRepo{dueByUser: map[uuid.UUID][]*models.Task{}},
		sender, &stubGenerator{}, prompts.Default(), zap.NewNop(),
	)

	day := time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)
	if err := svc.RunForUser(context.Background(), user.ID, day); err != nil {
		t.Fatalf("RunForUser() error = %v", err)
	}
	if _, ok := sender.sent["15559876543"]; !ok {
		t.Error("no message sent to the user")
	}

	if err := svc.RunForUser(context.Background(), uuid.New(), day); err == nil {
		t.Error("expected error for unknown user")
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	day, err := ParseDate("2025-07-14")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	want := time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)
	if !day.Equal(want) {
		t.Errorf("day = %v, want %v", day, want)
	}

	if _, err := ParseDate("14/07/2025"); err == nil {
		t.Error("expected error for wrong format")
	}

	today, err := ParseDate("")
	if err != nil {
		t.Fatalf("ParseDate(\"\") error = %v", err)
	}
	if today.Hour() != 0 || today.Location() != time.UTC {
		t.Errorf("default day = %v, want UTC midnight", today)
	}
}
