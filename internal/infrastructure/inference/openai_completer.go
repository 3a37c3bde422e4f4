// Package inference adapts the OpenAI-compatible completion API to the
// summary domain.
package inference

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"skim-server/keys-api/internal/config"
	"skim-server/keys-api/internal/domain/summary"
)

type OpenAICompleter struct {
	client *openai.Client
	logger zerolog.Logger
}

var _ summary.Completer = (*OpenAICompleter)(nil)

// NewOpenAICompleter builds a completer against the configured endpoint.
// A custom base URL lets operators point at any OpenAI-compatible server.
func NewOpenAICompleter(cfg *config.Config, logger zerolog.Logger) *OpenAICompleter {
	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAIBaseURL
	}

	return &OpenAICompleter{
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger.With().Str("component", "openai_completer").Logger(),
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, model, prompt string) (*summary.Completion, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		c.logger.Error().Err(err).Str("model", model).Msg("chat completion failed")
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: empty response")
	}

	return &summary.Completion{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
