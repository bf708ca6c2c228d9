package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tasky-bot/tasky/internal/database"
	"github.com/tasky-bot/tasky/internal/logger"
	"github.com/tasky-bot/tasky/internal/models"
	"github.com/tasky-bot/tasky/internal/prompts"
	"github.com/tasky-bot/tasky/internal/services/whatsapp"
)

// Generator turns a rendered prompt into summary text
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service composes and delivers the daily task digest. A user with no
// tasks that day still gets a message.
type Service struct {
	users     database.UserRepositoryInterface
	tasks     database.TaskRepositoryInterface
	client    whatsapp.ClientInterface
	generator Generator
	prompts   *prompts.Manager
	logger    *zap.Logger
}

// NewService creates a new summary service
func NewService(users database.UserRepositoryInterface, taskRepo database.TaskRepositoryInterface, client whatsapp.ClientInterface, generator Generator, promptMgr *prompts.Manager, log *zap.Logger) *Service {
	return &Service{
		users:     users,
		tasks:     taskRepo,
		client:    client,
		generator: generator,
		prompts:   promptMgr,
		logger:    log,
	}
}

// Run composes and sends summaries for every user for the given day.
// Sends fan out concurrently; a failed send for one user does not stop
// the others. Returns the number of summaries sent.
func (s *Service) Run(ctx context.Context, day time.Time) (int, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	type outgoing struct {
		phoneNumber string
		message     string
	}

	sends := make([]outgoing, 0, len(users))
	for _, user := range users {
		message, err := s.composeForUser(ctx, user, day)
		if err != nil {
			return 0, err
		}
		sends = append(sends, outgoing{phoneNumber: user.PhoneNumber, message: message})
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		sendErrs []error
		sent     int
	)

	for _, out := range sends {
		wg.Add(1)
		go func(out outgoing) {
			defer wg.Done()
			if err := s.client.SendText(ctx, out.phoneNumber, out.message); err != nil {
				s.logger.Error("daily summary send failed",
					zap.String("phone", logger.MaskPhone(out.phoneNumber)),
					zap.Error(err))
				mu.Lock()
				sendErrs = append(sendErrs, err)
				mu.Unlock()
				return
			}
			mu.Lock()
			sent++
			mu.Unlock()
		}(out)
	}
	wg.Wait()

	if len(sendErrs) > 0 {
		return sent, fmt.Errorf("failed to send %d of %d summaries: %w", len(sendErrs), len(sends), errors.Join(sendErrs...))
	}

	s.logger.Info("daily summaries sent",
		zap.String("date", day.Format("2006-01-02")),
		zap.Int("count", sent))

	return sent, nil
}

// RunForUser composes and sends one user's summary for the given day
func (s *Service) RunForUser(ctx context.Context, userID uuid.UUID, day time.Time) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	message, err := s.composeForUser(ctx, user, day)
	if err != nil {
		return err
	}

	if err := s.client.SendText(ctx, user.PhoneNumber, message); err != nil {
		return fmt.Errorf("failed to send summary: %w", err)
	}

	return nil
}

func (s *Service) composeForUser(ctx context.Context, user *models.User, day time.Time) (string, error) {
	dueTasks, err := s.tasks.ListDueOn(ctx, user.ID, day)
	if err != nil {
		return "", fmt.Errorf("failed to load tasks for %s: %w", user.ID, err)
	}

	if len(dueTasks) == 0 {
		return fmt.Sprintf("Hello %s, You got no tasks today. ENJOY!!!", user.DisplayName), nil
	}

	lines := make([]string, 0, len(dueTasks))
	for _, task := range dueTasks {
		due := ""
		if task.DueDt != nil {
			due = task.DueDt.Format("2006-01-02 15:04:05")
		}
		lines = append(lines, fmt.Sprintf("- %s (Due: %s)", task.Title, due))
	}

	prompt := s.prompts.DailySummaryPrompt(user.DisplayName, day.Format("2006-01-02"), strings.Join(lines, "\n"))

	message, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate summary for %s: %w", user.ID, err)
	}

	return message, nil
}

// ParseDate parses a summary trigger date. Empty input defaults to the
// current UTC day.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	day, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s. Use YYYY-MM-DD", value)
	}
	return day, nil
}
