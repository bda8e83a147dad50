package alchemyst

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// EventType tags a streaming callback.
type EventType string

const (
	EventStatus  EventType = "status"
	EventContent EventType = "content"
	EventError   EventType = "error"
)

// Event is delivered to a StreamFunc while a chat stream is read.
type Event struct {
	Type EventType
	Text string
}

// StreamFunc observes a chat stream. It may be nil.
type StreamFunc func(Event)

const streamDone = "[DONE]"

// GenerateStream posts prompt to the streaming chat endpoint and returns the
// concatenated content once the server sends [DONE] or closes the stream.
func (c *Client) GenerateStream(ctx context.Context, prompt string, fn StreamFunc) (string, error) {
	emit := func(t EventType, text string) {
		if fn != nil {
			fn(Event{Type: t, Text: text})
		}
	}

	req, err := c.newRequest(ctx, "/chat/generate/stream", newChatRequest(prompt))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		emit(EventError, "request failed: "+err.Error())
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		emit(EventError, apiErr.Error())
		return "", apiErr
	}

	emit(EventStatus, "Starting analysis...")
	content, err := ReadStream(resp.Body, func(text string) { emit(EventContent, text) })
	if err != nil {
		emit(EventError, "stream error: "+err.Error())
		return content, err
	}
	emit(EventStatus, "Analysis complete!")
	return content, nil
}

// ReadStream reads server-sent events from r, calling onContent for every
// content chunk. Lines that are not data lines are ignored. A data payload that
// is not JSON is taken as raw text.
func ReadStream(r io.Reader, onContent func(string)) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var sb strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		if payload == streamDone {
			return sb.String(), nil
		}
		chunk := parseChunk(payload)
		if chunk == "" {
			continue
		}
		if onContent != nil {
			onContent(chunk)
		}
		sb.WriteString(chunk)
	}
	return sb.String(), scanner.Err()
}

func parseChunk(payload string) string {
	var msg struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return payload + " "
	}
	return msg.Content
}
