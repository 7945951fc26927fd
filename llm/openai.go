package llm

import (
	"context"
	"wa-relay/errors"

	"github.com/sashabaranov/go-openai"
)

type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter talks to the chat completions endpoint.
// baseURL is optional and points the client at a compatible server.
func NewOpenAICompleter(apiKey, baseURL, model string) *OpenAICompleter {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAICompleter{client: openai.NewClientWithConfig(config), model: model}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
