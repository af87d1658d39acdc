package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/comigor/chatsession-go/internal/config"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_SendsBearerAndJSON(t *testing.T) {
	var gotPath, gotAuth, gotType string
	var body map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"pong"}}]}`))
	}))
	defer srv.Close()

	cfg := config.LLMConfig{BaseURL: srv.URL + "/v1/", APIKey: "secret", Model: "m-1", MaxTokens: 42, Temperature: 0.5}
	client := NewClient(cfg, srv.Client())

	resp, err := client.CreateChatCompletion(context.Background(), NewRequest(cfg, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: "ping"},
	}))
	require.NoError(t, err)

	content, ok := FirstContent(resp)
	require.True(t, ok)
	assert.Equal(t, "pong", content)

	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "m-1", body["model"])
	assert.EqualValues(t, 42, body["max_tokens"])
	assert.InDelta(t, 0.5, body["temperature"], 1e-6)
}

func TestFirstContent(t *testing.T) {
	tests := []struct {
		name string
		resp openai.ChatCompletionResponse
		want string
		ok   bool
	}{
		{name: "no choices"},
		{
			name: "empty content",
			resp: openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{}}},
		},
		{
			name: "whitespace content is still an answer",
			resp: openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "  \n"}}}},
			want: "  \n",
			ok:   true,
		},
		{
			name: "first choice wins",
			resp: openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "first"}},
				{Message: openai.ChatCompletionMessage{Content: "second"}},
			}},
			want: "first",
			ok:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstContent(tt.resp)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRequest_KeepsZeroTemperatureOnTheWire(t *testing.T) {
	req := NewRequest(config.LLMConfig{Model: "m-1", MaxTokens: 10}, nil)

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))

	require.Contains(t, body, "temperature")
	assert.InDelta(t, 0, body["temperature"], 1e-6)

	req = NewRequest(config.LLMConfig{Model: "m-1", MaxTokens: 10, Temperature: 1.2}, nil)
	assert.InDelta(t, 1.2, req.Temperature, 1e-6)
}
