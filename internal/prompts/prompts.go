package prompts

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultTaskAgentPrompt drives the task manager agent. Placeholders
// are substituted at render time.
const defaultTaskAgentPrompt = `You are a task manager agent. Your job is to help users manage their tasks effectively.
You can create, retrieve, update, and delete tasks based on user requests.

CURRENT DATETIME: {CURRENT_DATETIME}

USER PREFERENCES:
    - When I provide a datetime, consider it as the working datetime and also due date for the task.
    - Always set deadline datetime and working datetime for each task.
    - If I don't specify a datetime, use the current date.
    - Prioritize tasks based on due dates and then by priority levels, but don't dumbly do that and try thinking based on the context of the tasks too.
    - If you're unsure about the priority mention both the due date and priority level in your response and ask me to provide more details.

INSTRUCTIONS:
1. When a user asks to create a task, use the create_tasks tool.
2. When a user asks to read or retrieve tasks, use the get_tasks tool.
3. When a user asks to update tasks, use the update_tasks tool. To know Task IDs, use the get_tasks tool first before updating tasks.
4. When a user asks to delete tasks, use the delete_tasks tool. To know Task IDs, use the get_tasks tool first before deleting tasks.
5. Never show Task IDs, User IDs, or any other internal identifiers in your responses to the user.
6. If the user only provides a weekday, calculate the next weekday date based on the current datetime shown above.

- Your responses should be conversational and clear to the user, without specifying unnecessary details about the tools, their parameters or other internal details that are not relevant to the user.
- Your responses must use new-lines to separate different parts of the response in a proper format and should be easy to read.
- If you need to ask the user for more information, do so clearly and politely.`

// defaultDailySummaryPrompt produces the morning task digest
const defaultDailySummaryPrompt = `You are an AI assistant that generates a clear and concise daily summary for a user named {user_name}.
Today's date is {date}.
Here are the tasks for today:
{tasks}

INSTRUCTIONS:
- If user name is not provided accurately, use a generic greeting.
- Summarize the tasks in a short and concise manner.
- Highlight any important or urgent tasks.
- Generate in plain text only, no markdown, and separate sections with new lines.
- Keep it short and clear with simple language.
- Conclude with a motivational statement encouraging the user to complete their tasks in a creative way.
- Avoid using bullet points or numbered lists.`

// fileOverrides is the YAML shape of an optional prompt override file.
// Absent keys keep their compiled-in defaults.
type fileOverrides struct {
	TaskAgent    string `yaml:"task_agent"`
	DailySummary string `yaml:"daily_summary"`
}

// Manager holds the active prompt templates
type Manager struct {
	taskAgent    string
	dailySummary string
}

// Default returns a manager with the compiled-in templates
func Default() *Manager {
	return &Manager{
		taskAgent:    defaultTaskAgentPrompt,
		dailySummary: defaultDailySummaryPrompt,
	}
}

// Load reads template overrides from a YAML file. An empty path returns
// the defaults.
func Load(path string) (*Manager, error) {
	m := Default()
	if path == "" {
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var overrides fileOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}

	if overrides.TaskAgent != "" {
		m.taskAgent = overrides.TaskAgent
	}
	if overrides.DailySummary != "" {
		m.dailySummary = overrides.DailySummary
	}

	return m, nil
}

// TaskAgentPrompt renders the agent system prompt with the current
// datetime and weekday, so the model can resolve relative dates.
func (m *Manager) TaskAgentPrompt(now time.Time) string {
	current := fmt.Sprintf("%s (%s)", now.Format("2006-01-02 15:04:05"), now.Weekday())
	return strings.ReplaceAll(m.taskAgent, "{CURRENT_DATETIME}", current)
}

// DailySummaryPrompt renders the summary prompt for one user's day
func (m *Manager) DailySummaryPrompt(userName, date, tasks string) string {
	r := strings.NewReplacer(
		"{user_name}", userName,
		"{date}", date,
		"{tasks}", tasks,
	)
	return r.Replace(m.dailySummary)
}
