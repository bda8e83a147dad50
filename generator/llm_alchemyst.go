package generator

import (
	"context"
	"errors"
	"strings"

	"ai_content_agents/alchemyst"
)

// AlchemystLLM sends prompts to the Alchemyst chat endpoint. The endpoint has
// no system role, so the system text is prepended to the user message.
type AlchemystLLM struct {
	client *alchemyst.Client
}

func NewAlchemystLLMFromConfig(cfg *LLMSettings) (*AlchemystLLM, error) {
	client, err := alchemyst.New(cfg.APIKey, cfg.BaseURL, nil)
	if err != nil {
		return nil, err
	}
	return NewAlchemystLLM(client), nil
}

func NewAlchemystLLM(client *alchemyst.Client) *AlchemystLLM {
	return &AlchemystLLM{client: client}
}

func (a *AlchemystLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	var sb strings.Builder
	if prompt.System != "" {
		sb.WriteString(prompt.System)
		sb.WriteString("\n\n")
	}
	for _, h := range prompt.History {
		sb.WriteString(h.Role)
		sb.WriteString(": ")
		sb.WriteString(h.Content)
		sb.WriteString("\n")
	}
	sb.WriteString(prompt.User)

	out, err := a.client.Generate(ctx, sb.String())
	if err != nil {
		var apiErr *alchemyst.APIError
		if errors.As(err, &apiErr) {
			return "", &RemoteError{Provider: "alchemyst", Status: apiErr.StatusCode, Err: err}
		}
		return "", &RemoteError{Provider: "alchemyst", Err: err}
	}
	return out, nil
}
