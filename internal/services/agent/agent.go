package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/tasky-bot/tasky/internal/database"
	"github.com/tasky-bot/tasky/internal/prompts"
	"github.com/tasky-bot/tasky/internal/services/tasks"
)

const (
	// DefaultModel is the default chat model
	DefaultModel = "gpt-4o-mini"
	// DefaultTimeout is the default timeout for chat API calls
	DefaultTimeout = 120 * time.Second

	// maxToolIterations bounds the tool loop per invocation
	maxToolIterations = 8
	// historyLimit is how many prior session messages are replayed
	historyLimit = 20
	// maxStoredMessageLength caps persisted session message size
	maxStoredMessageLength = 5000
)

// ErrNoResponse is returned when the model produces no final text
var ErrNoResponse = errors.New("no valid response generated from agent")

// Invoker is the conversational boundary the webhook layer depends on
type Invoker interface {
	Invoke(ctx context.Context, userID uuid.UUID, message string) (string, error)
}

// Agent runs the task manager conversation loop. Each user has one
// persistent session; tool calls operate on that user's tasks only.
type Agent struct {
	client    openai.Client
	model     string
	store     *tasks.Store
	sessions  database.SessionRepositoryInterface
	prompts   *prompts.Manager
	logger    *zap.Logger
	debugMode bool
	now       func() time.Time
}

var _ Invoker = (*Agent)(nil)

// New creates a new agent. An empty model falls back to the default.
func New(apiKey, baseURL, model string, store *tasks.Store, sessions database.SessionRepositoryInterface, promptMgr *prompts.Manager, logger *zap.Logger, debugMode bool) *Agent {
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: DefaultTimeout}),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Agent{
		client:    openai.NewClient(opts...),
		model:     model,
		store:     store,
		sessions:  sessions,
		prompts:   promptMgr,
		logger:    logger,
		debugMode: debugMode,
		now:       time.Now,
	}
}

// Invoke runs one conversation turn for the user and returns the final
// response text. The user message and the response are appended to the
// user's session history.
func (a *Agent) Invoke(ctx context.Context, userID uuid.UUID, message string) (string, error) {
	session, err := a.sessions.GetOrCreate(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load session: %w", err)
	}

	history, err := a.sessions.ListRecentMessages(ctx, session.UserID, historyLimit)
	if err != nil {
		return "", fmt.Errorf("failed to load session history: %w", err)
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(a.prompts.TaskAgentPrompt(a.now())))
	for _, msg := range history {
		switch msg.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(message))

	if err := a.sessions.AppendMessage(ctx, session.UserID, "user", truncate(message, maxStoredMessageLength)); err != nil {
		return "", fmt.Errorf("failed to record user message: %w", err)
	}

	tools := toolDefinitions()

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		req := openai.ChatCompletionNewParams{
			Model:    shared.ChatModel(a.model),
			Messages: messages,
			Tools:    tools,
		}

		start := time.Now()
		resp, err := a.client.Chat.Completions.New(ctx, req)
		latency := time.Since(start)

		if err != nil {
			if apiErr := ExtractAPIError(err); apiErr != nil {
				return "", fmt.Errorf("failed to invoke agent: %w", apiErr)
			}
			return "", fmt.Errorf("failed to invoke agent: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", ErrNoResponse
		}

		choice := resp.Choices[0].Message

		if a.debugMode {
			a.logger.Debug("llm_api_response",
				zap.String("operation", "agent_turn"),
				zap.String("model", a.model),
				zap.String("user_id", userID.String()),
				zap.Int("iteration", iteration),
				zap.Int("tool_calls", len(choice.ToolCalls)),
				zap.Int64("latency_ms", latency.Milliseconds()))
		}

		if len(choice.ToolCalls) == 0 {
			if choice.Content == "" {
				return "", ErrNoResponse
			}
			if err := a.sessions.AppendMessage(ctx, session.UserID, "assistant", truncate(choice.Content, maxStoredMessageLength)); err != nil {
				a.logger.Error("failed to record assistant message",
					zap.String("user_id", userID.String()),
					zap.Error(err))
			}
			return choice.Content, nil
		}

		messages = append(messages, choice.ToParam())
		for _, toolCall := range choice.ToolCalls {
			result := a.dispatchTool(ctx, userID, toolCall.Function.Name, toolCall.Function.Arguments)

			a.logger.Info("agent tool executed",
				zap.String("user_id", userID.String()),
				zap.String("tool", toolCall.Function.Name),
				zap.Int("iteration", iteration))

			messages = append(messages, openai.ToolMessage(result, toolCall.ID))
		}
	}

	return "", fmt.Errorf("%w: tool loop exceeded %d iterations", ErrNoResponse, maxToolIterations)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
