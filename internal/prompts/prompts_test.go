package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTaskAgentPrompt(t *testing.T) {
	t.Parallel()

	m := Default()
	now := time.Date(2025, 7, 14, 9, 30, 0, 0, time.UTC)

	rendered := m.TaskAgentPrompt(now)

	if strings.Contains(rendered, "{CURRENT_DATETIME}") {
		t.Error("placeholder was not substituted")
	}
	if !strings.Contains(rendered, "2025-07-14 09:30:00 (Monday)") {
		t.Errorf("rendered prompt missing datetime with weekday:\n%s", rendered)
	}
	if !strings.Contains(rendered, "create_tasks") {
		t.Error("rendered prompt missing tool instructions")
	}
}

func TestDailySummaryPrompt(t *testing.T) {
	t.Parallel()

	m := Default()

	rendered := m.DailySummaryPrompt("Ada", "2025-07-14", "- Ship release (Due: 2025-07-14)")

	for _, want := range []string{"Ada", "2025-07-14", "Ship release"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("rendered prompt missing %q", want)
		}
	}
	for _, placeholder := range []string{"{user_name}", "{date}", "{tasks}"} {
		if strings.Contains(rendered, placeholder) {
			t.Errorf("placeholder %q was not substituted", placeholder)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	content := "daily_summary: |\n  Custom summary for {user_name} on {date}.\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write prompts file: %v", err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	rendered := m.DailySummaryPrompt("Ada", "2025-07-14", "")
	if !strings.Contains(rendered, "Custom summary for Ada on 2025-07-14.") {
		t.Errorf("override not applied: %q", rendered)
	}

	// Unset keys keep their defaults
	agent := m.TaskAgentPrompt(time.Now())
	if !strings.Contains(agent, "task manager agent") {
		t.Error("task agent prompt should keep the default when not overridden")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load("/nonexistent/prompts.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	t.Parallel()

	m, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if m.dailySummary != defaultDailySummaryPrompt {
		t.Error("empty path should return defaults")
	}
}
