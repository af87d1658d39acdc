package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// Client is the one method of *openai.Client a chat session needs; tests
// substitute a fake.
type Client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

var _ Client = (*openai.Client)(nil)
