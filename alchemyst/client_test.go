package alchemyst

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New("test-key", srv.URL, srv.Client())
	require.NoError(t, err)
	return c
}

func TestNew_MissingKey(t *testing.T) {
	_, err := New("", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALCHEMYST_AI_API_KEY")
}

func TestSearchContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/context/search", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "who logs in?", req.Query)
		assert.InDelta(t, 0.8, req.SimilarityThreshold, 1e-9)
		assert.Equal(t, "internal", req.Scope)

		_, _ = w.Write([]byte(`{"contexts":[{"content":"auth.py: login_user"},{"content":"main.py"}]}`))
	})

	hits, err := c.SearchContext(context.Background(), SearchRequest{
		Query:                      "who logs in?",
		SimilarityThreshold:        0.8,
		MinimumSimilarityThreshold: 0.5,
		Scope:                      "internal",
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "auth.py: login_user", hits[0].Content)
}

func TestAddContext_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	err := c.AddContext(context.Background(), AddContextRequest{Documents: []Document{{Content: "x"}}, Source: "s"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "quota exceeded")
}

func TestAddContext_NoDocuments(t *testing.T) {
	c, err := New("k", "http://127.0.0.1:1", nil)
	require.NoError(t, err)
	assert.Error(t, c.AddContext(context.Background(), AddContextRequest{}))
}

func TestGenerate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/generate", r.URL.Path)
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "maya", req.Persona)
		require.Len(t, req.ChatHistory, 1)
		assert.Equal(t, "user", req.ChatHistory[0].Role)
		_, _ = w.Write([]byte(`{"response":"insight"}`))
	})

	out, err := c.Generate(context.Background(), "summarize")
	require.NoError(t, err)
	assert.Equal(t, "insight", out)
}

func TestGenerateStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/generate/stream", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message\n")
		fmt.Fprint(w, "data: {\"content\":\"Hello\"}\n\n")
		fmt.Fprint(w, "data: {\"content\":\", world\"}\n\n")
		fmt.Fprint(w, "data: plain\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"content\":\"ignored\"}\n\n")
	})

	var events []Event
	out, err := c.GenerateStream(context.Background(), "research Acme", func(e Event) { events = append(events, e) })
	require.NoError(t, err)
	assert.Equal(t, "Hello, worldplain ", out)

	require.NotEmpty(t, events)
	assert.Equal(t, EventStatus, events[0].Type)
	assert.Equal(t, EventStatus, events[len(events)-1].Type)
	var contents []string
	for _, e := range events {
		if e.Type == EventContent {
			contents = append(contents, e.Text)
		}
	}
	assert.Equal(t, []string{"Hello", ", world", "plain "}, contents)
}

func TestGenerateStream_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	var gotError bool
	_, err := c.GenerateStream(context.Background(), "x", func(e Event) {
		if e.Type == EventError {
			gotError = true
		}
	})
	require.Error(t, err)
	assert.True(t, gotError)
}

type fakeStore struct {
	mu       sync.Mutex
	requests []AddContextRequest
	failFor  map[string]int
}

func (f *fakeStore) AddContext(_ context.Context, req AddContextRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	key := req.Documents[0].Content
	if f.failFor[key] > 0 {
		f.failFor[key]--
		return errors.New("rejected")
	}
	return nil
}

func (f *fakeStore) SearchContext(context.Context, SearchRequest) ([]Context, error) {
	return nil, nil
}

func TestIngest(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	store := &fakeStore{failFor: map[string]int{"flaky": 1, "broken": 2}}
	docs := []Document{
		{Content: "ok\r\nline", Metadata: map[string]any{"filename": "a.py"}},
		{Content: "flaky", Metadata: map[string]any{"filename": "b.py"}},
		{Content: "broken", Metadata: map[string]any{"filename": "c.py"}},
		{Content: "  \x00 "},
	}

	var mu sync.Mutex
	results := map[string]error{}
	n, err := Ingest(context.Background(), store, docs, IngestOptions{
		Source:   "project-codebase",
		FileType: "python",
		Logger:   logger,
		OnResult: func(name string, err error) {
			mu.Lock()
			defer mu.Unlock()
			results[name] = err
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, results, 3)
	assert.NoError(t, results["a.py"])
	assert.NoError(t, results["b.py"])
	assert.Error(t, results["c.py"])

	// a once, b twice, c twice; the blank document is skipped
	assert.Len(t, store.requests, 5)
	for _, req := range store.requests {
		if req.Documents[0].Content == "ok\nline" && req.Metadata != nil {
			assert.Equal(t, "a.py", req.Metadata["fileName"])
			assert.Equal(t, "resource", req.ContextType)
		}
	}
	assert.NotEmpty(t, hook.AllEntries())
}

func TestNormalizeContent(t *testing.T) {
	assert.Equal(t, "a\nb\nc\td", NormalizeContent("a\r\nb\rc\td\x07"))
	assert.False(t, strings.ContainsRune(NormalizeContent("x\x1by"), 0x1b))
}
