package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"github.com/hoangvvo/llm-sdk/sdk-go/anthropic"
	"github.com/hoangvvo/llm-sdk/sdk-go/google"
	"github.com/samber/lo"
)

const (
	defaultGeminiModel    = "gemini-2.0-flash"
	defaultAnthropicModel = "claude-sonnet-4-5"
)

// SDKModelLLM adapts an llm-sdk language model (Gemini, Anthropic) to LLMClient.
type SDKModelLLM struct {
	provider    string
	model       llmsdk.LanguageModel
	maxTokens   int
	temperature float64
}

func NewSDKModelLLMFromConfig(cfg *LLMSettings) (*SDKModelLLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s api key missing", cfg.Provider)
	}
	var model llmsdk.LanguageModel
	provider := cfg.Provider
	switch provider {
	case "gemini", "google":
		provider = "gemini"
		model = google.NewGoogleModel(lo.CoalesceOrEmpty(cfg.Model, defaultGeminiModel), google.GoogleModelOptions{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
		})
	case "anthropic":
		model = anthropic.NewAnthropicModel(lo.CoalesceOrEmpty(cfg.Model, defaultAnthropicModel), anthropic.AnthropicModelOptions{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
		})
	default:
		return nil, fmt.Errorf("llm provider %s not supported by sdk client", cfg.Provider)
	}
	return NewSDKModelLLM(provider, model, cfg.MaxTokens, cfg.Temperature), nil
}

// NewSDKModelLLM wraps an already constructed model.
func NewSDKModelLLM(provider string, model llmsdk.LanguageModel, maxTokens int, temperature float64) *SDKModelLLM {
	return &SDKModelLLM{provider: provider, model: model, maxTokens: maxTokens, temperature: temperature}
}

func (s *SDKModelLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	input := &llmsdk.LanguageModelInput{Messages: toSDKMessages(prompt)}
	if prompt.System != "" {
		input.SystemPrompt = lo.ToPtr(prompt.System)
	}
	if s.maxTokens > 0 {
		input.MaxTokens = lo.ToPtr(uint32(s.maxTokens))
	}
	if s.temperature > 0 {
		input.Temperature = lo.ToPtr(s.temperature)
	}

	resp, err := s.model.Generate(ctx, input)
	if err != nil {
		var lmErr *llmsdk.LanguageModelError
		if errors.As(err, &lmErr) {
			return "", &RemoteError{Provider: s.provider, Status: lmErr.Status, Err: err}
		}
		return "", &RemoteError{Provider: s.provider, Err: err}
	}

	var sb strings.Builder
	for _, part := range resp.Content {
		if part.TextPart != nil {
			sb.WriteString(part.TextPart.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &RemoteError{Provider: s.provider, Err: fmt.Errorf("%w: no text parts", ErrMalformedResponse)}
	}
	return sb.String(), nil
}

func toSDKMessages(prompt Prompt) []llmsdk.Message {
	text := func(s string) []llmsdk.Part {
		return []llmsdk.Part{{TextPart: &llmsdk.TextPart{Text: s}}}
	}
	msgs := make([]llmsdk.Message, 0, len(prompt.History)+1)
	for _, h := range prompt.History {
		if h.Role == "assistant" {
			msgs = append(msgs, llmsdk.Message{AssistantMessage: &llmsdk.AssistantMessage{Content: text(h.Content)}})
			continue
		}
		msgs = append(msgs, llmsdk.Message{UserMessage: &llmsdk.UserMessage{Content: text(h.Content)}})
	}
	return append(msgs, llmsdk.Message{UserMessage: &llmsdk.UserMessage{Content: text(prompt.User)}})
}
