package alchemyst

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://platform-backend.getalchemystai.com/api/v1"
	defaultPersona = "maya"
)

// APIError is a non-2xx reply from the platform.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("alchemyst API error (HTTP %d): %s", e.StatusCode, e.Body)
}

// Client talks to the hosted context, memory and chat endpoints.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New returns a Client. An empty baseURL selects DefaultBaseURL and a nil
// httpClient gets a two minute timeout.
func New(apiKey, baseURL string, httpClient *http.Client) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("alchemyst api key missing; set ALCHEMYST_AI_API_KEY")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), client: httpClient}, nil
}

// Document is one text blob stored in the context store.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// AddContextRequest mirrors the context/add payload.
type AddContextRequest struct {
	Documents   []Document     `json:"documents"`
	Source      string         `json:"source"`
	ContextType string         `json:"context_type,omitempty"`
	Scope       string         `json:"scope,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// SearchRequest mirrors the context/search payload.
type SearchRequest struct {
	Query                      string         `json:"query"`
	SimilarityThreshold        float64        `json:"similarity_threshold"`
	MinimumSimilarityThreshold float64        `json:"minimum_similarity_threshold"`
	Scope                      string         `json:"scope,omitempty"`
	Metadata                   map[string]any `json:"metadata"`
}

// Context is one search hit.
type Context struct {
	Content  string         `json:"content"`
	Score    float64        `json:"score,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type searchResponse struct {
	Contexts []Context `json:"contexts"`
}

type chatMessage struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

type chatRequest struct {
	ChatHistory []chatMessage `json:"chat_history"`
	Persona     string        `json:"persona"`
}

type chatResponse struct {
	Content  string `json:"content"`
	Response string `json:"response"`
	Result   *struct {
		Response string `json:"response"`
	} `json:"result,omitempty"`
}

// AddContext stores documents under source.
func (c *Client) AddContext(ctx context.Context, req AddContextRequest) error {
	if len(req.Documents) == 0 {
		return errors.New("no documents to add")
	}
	return c.doJSON(ctx, "/context/add", req, nil)
}

// SearchContext returns the documents semantically close to the query.
func (c *Client) SearchContext(ctx context.Context, req SearchRequest) ([]Context, error) {
	var resp searchResponse
	if err := c.doJSON(ctx, "/context/search", req, &resp); err != nil {
		return nil, err
	}
	return resp.Contexts, nil
}

// DeleteContext removes everything stored under source.
func (c *Client) DeleteContext(ctx context.Context, source string) error {
	return c.doJSON(ctx, "/context/delete", map[string]any{"source": source, "by_doc": true}, nil)
}

// AddMemory appends conversation contents to a memory id.
func (c *Client) AddMemory(ctx context.Context, memoryID string, contents []string) error {
	msgs := make([]map[string]string, 0, len(contents))
	for _, content := range contents {
		msgs = append(msgs, map[string]string{"content": content})
	}
	return c.doJSON(ctx, "/context/memory/add", map[string]any{"memoryId": memoryID, "contents": msgs}, nil)
}

// Generate sends a single user prompt to the chat endpoint.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var resp chatResponse
	if err := c.doJSON(ctx, "/chat/generate", newChatRequest(prompt), &resp); err != nil {
		return "", err
	}
	switch {
	case resp.Content != "":
		return resp.Content, nil
	case resp.Response != "":
		return resp.Response, nil
	case resp.Result != nil && resp.Result.Response != "":
		return resp.Result.Response, nil
	}
	return "", errors.New("alchemyst chat: empty response")
}

func newChatRequest(prompt string) chatRequest {
	return chatRequest{
		ChatHistory: []chatMessage{{Content: prompt, Role: "user"}},
		Persona:     defaultPersona,
	}
}

func (c *Client) newRequest(ctx context.Context, path string, body any) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, path string, body, out any) error {
	req, err := c.newRequest(ctx, path, body)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
