//go:generate go run go.uber.org/mock/mockgen -source=llm.go -destination=../mocks/mock_completer.go -package=mocks
package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"wa-relay/errors"

	"github.com/sashabaranov/go-openai"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultOpenAIModel = openai.GPT3Dot5Turbo
	DefaultGeminiModel = "gemini-2.0-flash"
)

// Completer runs one single-turn completion: the prompt is the whole conversation.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// New builds the completer for the configured provider.
func New(ctx context.Context, config Config) (Completer, error) {
	switch config.Provider {
	case ProviderOpenAI, "":
		return NewOpenAICompleter(config.APIKey, config.BaseURL, config.Model), nil
	case ProviderGemini:
		return NewGeminiCompleter(ctx, config.APIKey, config.Model)
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownProvider, config.Provider)
	}
}

// DescribeError flattens a completion failure into log attributes:
// the HTTP status when the API answered, the message otherwise.
func DescribeError(err error) []any {
	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		return []any{"status", apiErr.HTTPStatusCode, "message", apiErr.Message, "type", apiErr.Type}
	}
	var requestErr *openai.RequestError
	if stderrors.As(err, &requestErr) {
		return []any{"status", requestErr.HTTPStatusCode, "message", requestErr.Error()}
	}
	return []any{"message", err.Error()}
}
