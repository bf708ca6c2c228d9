package summary

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// DefaultTimeout is the default timeout for summary generation calls
const DefaultTimeout = 60 * time.Second

// OpenAIGenerator renders summaries with a chat completion
type OpenAIGenerator struct {
	client openai.Client
	model  string
}

var _ Generator = (*OpenAIGenerator)(nil)

// NewOpenAIGenerator creates a new generator
func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: DefaultTimeout}),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIGenerator{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Generate sends the rendered prompt and returns the model's text
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}

	return resp.Choices[0].Message.Content, nil
}
