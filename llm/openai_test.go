package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"wa-relay/errors"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

func newCompletionServer(t *testing.T, handler func(w http.ResponseWriter, request openai.ChatCompletionRequest)) *OpenAICompleter {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var request openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		w.Header().Set("Content-Type", "application/json")
		handler(w, request)
	}))
	t.Cleanup(server.Close)
	return NewOpenAICompleter("test-key", server.URL+"/v1", "")
}

func TestOpenAICompleter_SingleTurnRequest(t *testing.T) {
	req := require.New(t)
	var received openai.ChatCompletionRequest
	completer := newCompletionServer(t, func(w http.ResponseWriter, request openai.ChatCompletionRequest) {
		received = request
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [
				{"index": 0, "message": {"role": "assistant", "content": "first"}, "finish_reason": "stop"},
				{"index": 1, "message": {"role": "assistant", "content": "second"}, "finish_reason": "stop"}
			]
		}`))
	})

	text, err := completer.Complete(context.Background(), "hello")

	req.NoError(err)
	req.Equal("first", text)
	req.Equal(DefaultOpenAIModel, received.Model)
	req.Len(received.Messages, 1)
	req.Equal(openai.ChatMessageRoleUser, received.Messages[0].Role)
	req.Equal("hello", received.Messages[0].Content)
}

func TestOpenAICompleter_EmptyChoices(t *testing.T) {
	completer := newCompletionServer(t, func(w http.ResponseWriter, _ openai.ChatCompletionRequest) {
		_, _ = w.Write([]byte(`{"id": "chatcmpl-2", "object": "chat.completion", "choices": []}`))
	})

	_, err := completer.Complete(context.Background(), "hello")
	require.ErrorIs(t, err, errors.ErrEmptyCompletion)
}

func TestOpenAICompleter_APIErrorExposesStatus(t *testing.T) {
	req := require.New(t)
	completer := newCompletionServer(t, func(w http.ResponseWriter, _ openai.ChatCompletionRequest) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached", "type": "requests"}}`))
	})

	_, err := completer.Complete(context.Background(), "hello")
	req.Error(err)

	attrs := DescribeError(err)
	req.Equal([]any{"status", http.StatusTooManyRequests, "message", "Rate limit reached", "type", "requests"}, attrs)
}

func TestDescribeError_NetworkFailure(t *testing.T) {
	completer := NewOpenAICompleter("test-key", "http://127.0.0.1:1/v1", "")

	_, err := completer.Complete(context.Background(), "hello")
	require.Error(t, err)

	attrs := DescribeError(err)
	require.Equal(t, "message", attrs[0])
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "claude"})
	require.ErrorIs(t, err, errors.ErrUnknownProvider)
}

func TestNew_GeminiRequiresKey(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: ProviderGemini})
	require.Error(t, err)
}
