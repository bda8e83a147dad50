package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteErrorRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  *RemoteError
		want bool
	}{
		{"transport", &RemoteError{Provider: "p", Err: errors.New("connection reset")}, true},
		{"rate limited", &RemoteError{Provider: "p", Status: 429, Err: errors.New("x")}, true},
		{"server error", &RemoteError{Provider: "p", Status: 502, Err: errors.New("x")}, true},
		{"unauthorized", &RemoteError{Provider: "p", Status: 401, Err: errors.New("x")}, false},
		{"canceled", &RemoteError{Provider: "p", Err: context.Canceled}, false},
		{"deadline", &RemoteError{Provider: "p", Err: fmt.Errorf("call: %w", context.DeadlineExceeded)}, false},
		{"malformed", &RemoteError{Provider: "p", Err: fmt.Errorf("%w: empty", ErrMalformedResponse)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Retryable())
			assert.Equal(t, tt.want, IsRetryable(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestRemoteErrorMessage(t *testing.T) {
	assert.Equal(t, "openai: status 503: busy", (&RemoteError{Provider: "openai", Status: 503, Err: errors.New("busy")}).Error())
	assert.Equal(t, "openai: dial", (&RemoteError{Provider: "openai", Err: errors.New("dial")}).Error())
}

func TestNewLLM(t *testing.T) {
	_, err := NewLLM(nil)
	require.Error(t, err)

	llm, err := NewLLM(&LLMSettings{Provider: "mock"})
	require.NoError(t, err)
	assert.IsType(t, MockLLM{}, llm)

	_, err = NewLLM(&LLMSettings{Provider: "deepseek", APIKey: "k"})
	require.ErrorContains(t, err, "base_url")

	_, err = NewLLM(&LLMSettings{Provider: "cohere"})
	require.ErrorContains(t, err, "not supported")

	llm, err = NewLLM(&LLMSettings{Provider: "openai", APIKey: "k", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAILLM{}, llm)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("v0-prompt")
	require.NoError(t, err)
	assert.Equal(t, KindV0Prompt, k)
	assert.True(t, KindPortfolio.JSONKind())
	assert.False(t, KindTweet.JSONKind())

	_, err = ParseKind("haiku")
	require.Error(t, err)
}

func TestBuildPromptEveryKind(t *testing.T) {
	for kind, in := range validInputs() {
		p, err := BuildPrompt(in.Sanitized().WithDefaults())
		require.NoError(t, err, kind)
		assert.NotEmpty(t, p.System, kind)
		assert.NotEmpty(t, p.User, kind)
	}
	_, err := BuildPrompt(UserInput{Kind: "haiku"})
	require.Error(t, err)
}

func TestSanitizedInput(t *testing.T) {
	in := UserInput{
		Topic:    "  <b>Go</b>   tips  ",
		Industry: " SaaS ",
		Skills:   []string{"Go", "  ", "<i>SQL</i>"},
	}.Sanitized()

	assert.Equal(t, "Go tips", in.Topic)
	assert.Equal(t, "saas", in.Industry)
	assert.Equal(t, []string{"Go", "SQL"}, in.Skills)
}

func newOpenAITestLLM(t *testing.T, h http.HandlerFunc) *OpenAILLM {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	llm, err := NewOpenAILLM(&LLMSettings{Provider: "deepseek", APIKey: "k", Model: "deepseek-chat", BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	return llm
}

func TestOpenAILLMComplete(t *testing.T) {
	var body string
	llm := newOpenAITestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"deepseek-chat",`+
			`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"hello"}}]}`)
	})

	out, err := llm.Complete(context.Background(), Prompt{
		System:  "be brief",
		History: []Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hey"}},
		User:    "again",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Contains(t, body, `"be brief"`)
	assert.Contains(t, body, `"assistant"`)
}

func TestOpenAILLMClassifiesErrors(t *testing.T) {
	llm := newOpenAITestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	})

	_, err := llm.Complete(context.Background(), Prompt{User: "hi"})
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "deepseek", re.Provider)
	assert.Equal(t, http.StatusServiceUnavailable, re.Status)
	assert.True(t, re.Retryable())
}
