package generator

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAILLM talks to the chat completions API of OpenAI or any compatible
// endpoint (DeepSeek and other gateways through BaseURL).
type OpenAILLM struct {
	provider    string
	model       string
	maxTokens   int
	temperature float64
	client      openai.Client
}

func NewOpenAILLM(cfg *LLMSettings) (*OpenAILLM, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("llm config is nil")
	case cfg.APIKey == "":
		return nil, fmt.Errorf("%s api key missing; set it in the environment or llm.api_key", cfg.Provider)
	case cfg.Model == "":
		return nil, errors.New("llm model is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Agent owns the retry policy.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}
	return &OpenAILLM{
		provider:    provider,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		client:      openai.NewClient(opts...),
	}, nil
}

func (o *OpenAILLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: chatMessages(prompt),
	}
	if o.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(o.maxTokens))
	}
	if o.temperature > 0 {
		params.Temperature = openai.Float(o.temperature)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		remote := &RemoteError{Provider: o.provider, Err: err}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			remote.Status = apiErr.StatusCode
		}
		return "", remote
	}
	if len(resp.Choices) == 0 {
		return "", &RemoteError{Provider: o.provider, Err: fmt.Errorf("%w: no choices", ErrMalformedResponse)}
	}
	return resp.Choices[0].Message.Content, nil
}

func chatMessages(prompt Prompt) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(prompt.History)+2)
	if prompt.System != "" {
		msgs = append(msgs, openai.SystemMessage(prompt.System))
	}
	for _, m := range prompt.History {
		if m.Role == "assistant" {
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(m.Content))
			continue
		}
		msgs = append(msgs, openai.UserMessage(m.Content))
	}
	return append(msgs, openai.UserMessage(prompt.User))
}
