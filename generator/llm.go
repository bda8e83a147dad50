package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// LLMClient abstracts a hosted model so it can be swapped or mocked.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings is the provider configuration handed to concrete clients.
type LLMSettings struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float64
}

// ErrMalformedResponse marks a reply that arrived but could not be used.
var ErrMalformedResponse = errors.New("malformed model response")

// RemoteError is a failed call to a hosted service. Status is zero for
// transport failures.
type RemoteError struct {
	Provider string
	Status   int
	Err      error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Retryable reports whether a second attempt may succeed: transport errors,
// rate limiting and server errors.
func (e *RemoteError) Retryable() bool {
	if errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded) || errors.Is(e.Err, ErrMalformedResponse) {
		return false
	}
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// IsRetryable reports whether err is a retryable RemoteError.
func IsRetryable(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Retryable()
}

// NewLLM builds the client for settings.Provider.
func NewLLM(cfg *LLMSettings) (LLMClient, error) {
	if cfg == nil || cfg.Provider == "" {
		return nil, errors.New("llm provider missing; set llm.provider in config")
	}
	switch cfg.Provider {
	case "openai":
		return NewOpenAILLM(cfg)
	case "deepseek":
		// OpenAI-compatible endpoint, base_url is mandatory.
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return NewOpenAILLM(cfg)
	case "gemini", "google", "anthropic":
		return NewSDKModelLLMFromConfig(cfg)
	case "alchemyst":
		return NewAlchemystLLMFromConfig(cfg)
	case "mock":
		return MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.Provider)
	}
}
