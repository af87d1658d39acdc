package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/comigor/chatsession-go/internal/config"
	"github.com/comigor/chatsession-go/internal/llm"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCfg = config.LLMConfig{
	APIKey:      "token",
	Model:       "gpt-3.5-turbo",
	MaxTokens:   1000,
	Temperature: 0.7,
}

type mockLLM struct {
	calls    []openai.ChatCompletionResponse
	err      error
	requests []openai.ChatCompletionRequest
}

func (m *mockLLM) CreateChatCompletion(ctx context.Context, r openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.requests = append(m.requests, r)
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	if len(m.calls) == 0 {
		panic("mockLLM: no more responses configured")
	}
	resp := m.calls[0]
	m.calls = m.calls[1:]
	return resp, nil
}

func reply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
	}}}
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveCompletion(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

// fakeEndpoint serves a fixed status and body on /v1/chat/completions and
// records the decoded request bodies.
type fakeEndpoint struct {
	srv    *httptest.Server
	mu     sync.Mutex
	bodies []map[string]any
}

func newFakeEndpoint(t *testing.T, status int, body string) *fakeEndpoint {
	t.Helper()
	f := &fakeEndpoint{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var decoded map[string]any
		_ = json.NewDecoder(r.Body).Decode(&decoded)
		f.mu.Lock()
		f.bodies = append(f.bodies, decoded)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeEndpoint) session(opts ...Option) *Session {
	cfg := testCfg
	cfg.BaseURL = f.srv.URL + "/v1"
	return New(llm.NewClient(cfg, f.srv.Client()), cfg, opts...)
}

func assertAlternates(t *testing.T, h History) {
	t.Helper()
	for i, m := range h {
		want := RoleUser
		if i%2 == 1 {
			want = RoleAssistant
		}
		assert.Equalf(t, want, m.Role, "message %d", i)
	}
}

func TestSend_Success(t *testing.T) {
	ep := newFakeEndpoint(t, http.StatusOK, `{"choices":[{"message":{"content":"hi"}}]}`)

	h, text := ep.session().Send(context.Background(), nil, "hello")

	require.Len(t, h, 2)
	assert.Equal(t, "hi", text)
	assert.Equal(t, RoleUser, h[0].Role)
	assert.Equal(t, "hello", h[0].Content)
	assert.Equal(t, RoleAssistant, h[1].Role)
	assert.Equal(t, "hi", h[1].Content)
	assert.NotEmpty(t, h[0].ID)
	assert.NotEqual(t, h[0].ID, h[1].ID)
}

func TestSend_NoAnswerFallback(t *testing.T) {
	for name, body := range map[string]string{
		"empty choices":   `{"choices":[]}`,
		"empty content":   `{"choices":[{"message":{"content":""}}]}`,
		"missing choices": `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			obs := &recordingObserver{}
			ep := newFakeEndpoint(t, http.StatusOK, body)

			h, text := ep.session(WithObserver(obs)).Send(context.Background(), nil, "hello")

			assert.Equal(t, FallbackNoAnswer, text)
			require.Len(t, h, 2)
			assert.Equal(t, FallbackNoAnswer, h[1].Content)
			assert.Equal(t, []string{OutcomeNoAnswer}, obs.outcomes)
		})
	}
}

func TestSend_RequestErrorFallback(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		ep := newFakeEndpoint(t, http.StatusInternalServerError, `{"error":{"message":"boom"}}`)
		h, text := ep.session().Send(context.Background(), nil, "hello")
		assert.Equal(t, FallbackRequestError, text)
		assert.Len(t, h, 2)
	})

	t.Run("invalid json", func(t *testing.T) {
		ep := newFakeEndpoint(t, http.StatusOK, `not json`)
		h, text := ep.session().Send(context.Background(), nil, "hello")
		assert.Equal(t, FallbackRequestError, text)
		assert.Len(t, h, 2)
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		cfg := testCfg
		cfg.BaseURL = srv.URL + "/v1"
		srv.Close()

		obs := &recordingObserver{}
		s := New(llm.NewClient(cfg, nil), cfg, WithObserver(obs))
		prior := History{NewMessage(RoleUser, "a"), NewMessage(RoleAssistant, "b")}

		h, text := s.Send(context.Background(), prior, "hello")
		assert.Equal(t, FallbackRequestError, text)
		require.Len(t, h, len(prior)+2)
		assertAlternates(t, h)
		assert.Equal(t, []string{OutcomeRequestError}, obs.outcomes)
	})
}

func TestSend_WireFormatPreservesOrderAndDropsLocalFields(t *testing.T) {
	ep := newFakeEndpoint(t, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`)
	prior := History{
		NewMessage(RoleUser, "first"),
		NewMessage(RoleAssistant, "second"),
	}

	_, _ = ep.session().Send(context.Background(), prior, "third")

	require.Len(t, ep.bodies, 1)
	body := ep.bodies[0]
	assert.Equal(t, testCfg.Model, body["model"])
	assert.EqualValues(t, testCfg.MaxTokens, body["max_tokens"])
	assert.InDelta(t, testCfg.Temperature, body["temperature"], 1e-6)

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 3)

	wantRoles := []string{"user", "assistant", "user"}
	wantContent := []string{"first", "second", "third"}
	for i, raw := range msgs {
		m := raw.(map[string]any)
		assert.Equal(t, wantRoles[i], m["role"])
		assert.Equal(t, wantContent[i], m["content"])
		assert.NotContains(t, m, "id")
		assert.NotContains(t, m, "timestamp")
	}
}

func TestSend_ZeroTemperatureIsStillSent(t *testing.T) {
	ep := newFakeEndpoint(t, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`)
	cfg := testCfg
	cfg.BaseURL = ep.srv.URL + "/v1"
	cfg.Temperature = 0

	_, text := New(llm.NewClient(cfg, ep.srv.Client()), cfg).Send(context.Background(), nil, "hello")
	assert.Equal(t, "ok", text)

	require.Len(t, ep.bodies, 1)
	body := ep.bodies[0]
	for _, field := range []string{"model", "messages", "max_tokens", "temperature"} {
		assert.Contains(t, body, field)
	}
	assert.InDelta(t, 0, body["temperature"], 1e-6)
}

func TestSend_WhitespaceAnswerIsKept(t *testing.T) {
	mock := &mockLLM{calls: []openai.ChatCompletionResponse{reply(" ")}}

	h, text := New(mock, testCfg).Send(context.Background(), nil, "hello")

	assert.Equal(t, " ", text)
	require.Len(t, h, 2)
	assert.Equal(t, " ", h[1].Content)
}

func TestSend_RepeatedCallsProduceDistinctMessages(t *testing.T) {
	mock := &mockLLM{calls: []openai.ChatCompletionResponse{reply("same"), reply("same")}}
	s := New(mock, testCfg)

	h1, t1 := s.Send(context.Background(), nil, "hello")
	h2, t2 := s.Send(context.Background(), nil, "hello")

	assert.Equal(t, t1, t2)
	a1, _ := h1.Last()
	a2, _ := h2.Last()
	assert.NotEqual(t, a1.ID, a2.ID)
	assert.True(t, a2.Timestamp.After(a1.Timestamp))
}

func TestSend_BlankInputIsNoop(t *testing.T) {
	mock := &mockLLM{}
	s := New(mock, testCfg)
	prior := History{NewMessage(RoleUser, "a"), NewMessage(RoleAssistant, "b")}

	h, text := s.Send(context.Background(), prior, "   \t")

	assert.Empty(t, text)
	assert.Equal(t, prior, h)
	assert.Empty(t, mock.requests)
}

func TestSend_DoesNotMutateCallerHistory(t *testing.T) {
	mock := &mockLLM{calls: []openai.ChatCompletionResponse{reply("one"), reply("two")}}
	s := New(mock, testCfg)

	base := make(History, 0, 8)
	base = base.Append(NewMessage(RoleUser, "q"), NewMessage(RoleAssistant, "a"))

	h1, _ := s.Send(context.Background(), base, "x")
	h2, _ := s.Send(context.Background(), base, "y")

	assert.Len(t, base, 2)
	assert.Equal(t, "x", h1[2].Content)
	assert.Equal(t, "one", h1[3].Content)
	assert.Equal(t, "y", h2[2].Content)
	assert.Equal(t, "two", h2[3].Content)
}

func TestSend_TrimsUserText(t *testing.T) {
	mock := &mockLLM{calls: []openai.ChatCompletionResponse{reply("ok")}}
	s := New(mock, testCfg)

	h, _ := s.Send(context.Background(), nil, "  hello \n")

	assert.Equal(t, "hello", h[0].Content)
	require.Len(t, mock.requests, 1)
	assert.Equal(t, "hello", mock.requests[0].Messages[0].Content)
}

func TestSend_CancelledContextFallsBack(t *testing.T) {
	mock := &mockLLM{err: context.Canceled}
	s := New(mock, testCfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h, text := s.Send(ctx, nil, "hello")
	assert.Equal(t, FallbackRequestError, text)
	assert.Len(t, h, 2)
}

func TestSend_ManyTurnsAlternate(t *testing.T) {
	mock := &mockLLM{
		calls: []openai.ChatCompletionResponse{reply("r1"), {}, reply("r3")},
	}
	s := New(mock, testCfg)

	var h History
	h, _ = s.Send(context.Background(), h, "u1")
	h, _ = s.Send(context.Background(), h, "u2")
	mock.err = errors.New("down")
	h, _ = s.Send(context.Background(), h, "u3")

	require.Len(t, h, 6)
	assertAlternates(t, h)
	assert.Equal(t, 3, h.Count(RoleUser))
	assert.Equal(t, FallbackNoAnswer, h[3].Content)
	assert.Equal(t, FallbackRequestError, h[5].Content)
	assert.Len(t, mock.requests[1].Messages, 3)
}
