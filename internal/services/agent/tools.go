package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/tasky-bot/tasky/internal/services/tasks"
)

// Tool names exposed to the model
const (
	toolCreateTasks    = "create_tasks"
	toolGetTasks       = "get_tasks"
	toolUpdateTasks    = "update_tasks"
	toolDeleteTasks    = "delete_tasks"
	toolGetDatetimeNow = "get_datetime_now"
)

var taskFieldProperties = map[string]any{
	"title":       map[string]any{"type": "string", "description": "Task title"},
	"description": map[string]any{"type": "string", "description": "Optional task description"},
	"status": map[string]any{
		"type":        "string",
		"enum":        []string{"pending", "in_progress", "completed", "archived"},
		"description": "Task status",
	},
	"due_dt": map[string]any{
		"type":        "string",
		"description": "Due date as YYYY-MM-DD or YYYY-MM-DD HH:MM:SS",
	},
	"working_dt": map[string]any{
		"type":        "string",
		"description": "Working date as YYYY-MM-DD or YYYY-MM-DD HH:MM:SS",
	},
	"duration_mins": map[string]any{"type": "integer", "description": "Estimated duration in minutes"},
	"priority": map[string]any{
		"type":        "integer",
		"enum":        []int{1, 2, 3},
		"description": "Priority: 1=high, 2=medium, 3=low",
	},
	"tags": map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": "Tags associated with the task",
	},
}

// toolDefinitions declares the task tools the agent may call
func toolDefinitions() []openai.ChatCompletionToolUnionParam {
	updateProperties := map[string]any{
		"task_id": map[string]any{"type": "string", "description": "Identifier of the task to update"},
	}
	for name, schema := range taskFieldProperties {
		updateProperties[name] = schema
	}

	return []openai.ChatCompletionToolUnionParam{
		openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        toolCreateTasks,
			Description: openai.String("Create one or more tasks. Always give tasks as a list, even for a single task."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"tasks": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "object", "properties": taskFieldProperties, "required": []string{"title"}},
					},
				},
				"required": []string{"tasks"},
			},
		}),
		openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        toolGetTasks,
			Description: openai.String("Retrieve tasks, optionally narrowed by filters. Provide an empty filters object to retrieve all tasks. Returned tasks include task_id for update and delete operations."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"filters": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"working_dt": taskFieldProperties["working_dt"],
							"due_dt":     taskFieldProperties["due_dt"],
							"status":     taskFieldProperties["status"],
							"priority":   taskFieldProperties["priority"],
							"tags":       taskFieldProperties["tags"],
						},
					},
				},
			},
		}),
		openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        toolUpdateTasks,
			Description: openai.String("Update one or more tasks by task_id. Only the provided fields are changed."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"updates": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "object", "properties": updateProperties, "required": []string{"task_id"}},
					},
				},
				"required": []string{"updates"},
			},
		}),
		openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        toolDeleteTasks,
			Description: openai.String("Delete one or more tasks by task_id."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"task_ids": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
				},
				"required": []string{"task_ids"},
			},
		}),
		openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        toolGetDatetimeNow,
			Description: openai.String("Get the current date and time with the weekday."),
			Parameters: shared.FunctionParameters{
				"type":       "object",
				"properties": map[string]any{},
			},
		}),
	}
}

// decodeToolArgs parses tool-call arguments strictly. Keys outside the
// advertised schema are an error so the model gets corrected instead of
// having a misspelled filter silently dropped.
func decodeToolArgs(arguments string, dst any) error {
	dec := json.NewDecoder(strings.NewReader(arguments))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// dispatchTool executes one tool call against the task store and
// returns the result serialized as JSON. Malformed arguments come back
// as an error result for the model, never as a Go error.
func (a *Agent) dispatchTool(ctx context.Context, owner uuid.UUID, name, arguments string) string {
	switch name {
	case toolCreateTasks:
		var args struct {
			Tasks []tasks.Draft `json:"tasks"`
		}
		if err := decodeToolArgs(arguments, &args); err != nil {
			return toolError(fmt.Sprintf("invalid arguments for %s: %v", name, err))
		}
		return marshalResult(a.store.Create(ctx, args.Tasks, owner))

	case toolGetTasks:
		var args struct {
			Filters tasks.Filters `json:"filters"`
		}
		if err := decodeToolArgs(arguments, &args); err != nil {
			return toolError(fmt.Sprintf("invalid arguments for %s: %v", name, err))
		}
		return marshalResult(a.store.Read(ctx, args.Filters, owner))

	case toolUpdateTasks:
		var args struct {
			Updates []tasks.Update `json:"updates"`
		}
		if err := decodeToolArgs(arguments, &args); err != nil {
			return toolError(fmt.Sprintf("invalid arguments for %s: %v", name, err))
		}
		return marshalResult(a.store.ApplyUpdates(ctx, args.Updates, owner))

	case toolDeleteTasks:
		var args struct {
			TaskIDs []string `json:"task_ids"`
		}
		if err := decodeToolArgs(arguments, &args); err != nil {
			return toolError(fmt.Sprintf("invalid arguments for %s: %v", name, err))
		}
		return marshalResult(a.store.Delete(ctx, args.TaskIDs, owner))

	case toolGetDatetimeNow:
		now := a.now()
		return marshalResult(map[string]string{
			"status":   "success",
			"datetime": fmt.Sprintf("%s (%s)", now.Format("2006-01-02 15:04:05"), now.Weekday()),
		})

	default:
		a.logger.Warn("unknown tool requested", zap.String("tool", name))
		return toolError(fmt.Sprintf("unknown tool: %s", name))
	}
}

func marshalResult(result any) string {
	encoded, err := json.Marshal(result)
	if err != nil {
		return toolError(fmt.Sprintf("failed to encode tool result: %v", err))
	}
	return string(encoded)
}

func toolError(message string) string {
	encoded, _ := json.Marshal(map[string]string{
		"status":  "error",
		"message": message,
	})
	return string(encoded)
}
