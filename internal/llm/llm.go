package llm

import (
	"math"
	"net/http"
	"strings"

	"github.com/comigor/chatsession-go/internal/config"
	"github.com/sashabaranov/go-openai"
)

// NewClient creates an OpenAI-compatible client for the configured
// endpoint. The client sets "Authorization: Bearer <api_key>" and a JSON
// content type on every request. httpClient may be nil; no timeout is
// imposed on it.
func NewClient(cfg config.LLMConfig, httpClient *http.Client) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}

	return openai.NewClientWithConfig(clientConfig)
}

// NewRequest builds the fixed-shape completion request: configured model,
// token ceiling and temperature around the given messages.
func NewRequest(cfg config.LLMConfig, messages []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       cfg.Model,
		Messages:    messages,
		MaxTokens:   cfg.MaxTokens,
		Temperature: wireTemperature(cfg.Temperature),
	}
}

// wireTemperature keeps a configured 0 on the wire. go-openai drops a zero
// temperature (omitempty), which would let the endpoint apply its default.
func wireTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// FirstContent returns choices[0].message.content. ok is false when there
// is no choice or the content is empty.
func FirstContent(resp openai.ChatCompletionResponse) (content string, ok bool) {
	if len(resp.Choices) == 0 {
		return "", false
	}
	content = resp.Choices[0].Message.Content
	if content == "" {
		return "", false
	}
	return content, true
}
