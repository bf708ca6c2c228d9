package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/tasky-bot/tasky/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation
	if err := Validate.RegisterValidation("task_status", validateTaskStatus); err != nil {
		panic(fmt.Sprintf("failed to register task_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("task_priority", validateTaskPriority); err != nil {
		panic(fmt.Sprintf("failed to register task_priority validator: %v", err))
	}
}

// validateTaskStatus validates that a string is a valid TaskStatus enum value
func validateTaskStatus(fl validator.FieldLevel) bool {
	return ValidateTaskStatus(fl.Field().String()) == nil
}

// validateTaskPriority validates that an int is a valid TaskPriority value
func validateTaskPriority(fl validator.FieldLevel) bool {
	return ValidateTaskPriority(int(fl.Field().Int())) == nil
}

// ValidateTaskStatus validates a TaskStatus string value
func ValidateTaskStatus(value string) error {
	status := models.TaskStatus(value)
	switch status {
	case models.TaskStatusPending, models.TaskStatusInProgress, models.TaskStatusCompleted, models.TaskStatusArchived:
		return nil
	default:
		return fmt.Errorf("invalid status: %s (must be 'pending', 'in_progress', 'completed', or 'archived')", value)
	}
}

// ValidateTaskPriority validates a priority value (1=high, 2=medium, 3=low)
func ValidateTaskPriority(value int) error {
	switch models.TaskPriority(value) {
	case models.TaskPriorityHigh, models.TaskPriorityMedium, models.TaskPriorityLow:
		return nil
	default:
		return fmt.Errorf("invalid priority: %d (must be 1, 2, or 3)", value)
	}
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// ParseTaskDate parses a task date string in one of the two accepted formats:
// "YYYY-MM-DD" or "YYYY-MM-DD HH:MM:SS". No timezone suffix is accepted;
// values are interpreted as UTC.
func ParseTaskDate(value string) (time.Time, error) {
	layout := dateLayout
	if strings.Contains(value, " ") {
		layout = dateTimeLayout
	}
	t, err := time.ParseInLocation(layout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s. Use YYYY-MM-DD or YYYY-MM-DD HH:MM:SS", value)
	}
	return t, nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
