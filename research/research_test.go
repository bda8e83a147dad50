package research

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai_content_agents/alchemyst"
	"ai_content_agents/generator"
	"ai_content_agents/validate"
)

type memoryStore struct {
	mu        sync.Mutex
	added     []alchemyst.AddContextRequest
	hits      []alchemyst.Context
	searchErr error
	searches  []alchemyst.SearchRequest
}

func (m *memoryStore) AddContext(_ context.Context, req alchemyst.AddContextRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added = append(m.added, req)
	return nil
}

func (m *memoryStore) SearchContext(_ context.Context, req alchemyst.SearchRequest) ([]alchemyst.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, req)
	return m.hits, m.searchErr
}

type fakeStreamer struct {
	content string
	err     error
	prompts []string
}

func (f *fakeStreamer) GenerateStream(_ context.Context, prompt string, fn alchemyst.StreamFunc) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if fn != nil {
		fn(alchemyst.Event{Type: alchemyst.EventContent, Text: f.content})
	}
	return f.content, nil
}

// recordingLLM echoes the user prompt back as Markdown.
type recordingLLM struct {
	mu      sync.Mutex
	prompts []generator.Prompt
}

func (r *recordingLLM) Complete(_ context.Context, p generator.Prompt) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, p)
	return "# Report\n\n" + p.User, nil
}

func newAgent(t *testing.T, llm generator.LLMClient) *generator.Agent {
	t.Helper()
	logger, _ := test.NewNullLogger()
	agent, err := generator.NewAgent(llm, generator.WithProvider("test", "m"), generator.WithLogger(logger))
	require.NoError(t, err)
	return agent
}

type generationRecorder struct {
	kinds     []string
	providers []string
}

func (r *generationRecorder) Generation(kind, provider string, _ bool, _ time.Duration) {
	r.kinds = append(r.kinds, kind)
	r.providers = append(r.providers, provider)
}
func (r *generationRecorder) ValidationFailure(string) {}
func (r *generationRecorder) ContextIngest(error)      {}

func collect(events *[]alchemyst.Event) alchemyst.StreamFunc {
	return func(e alchemyst.Event) { *events = append(*events, e) }
}

func TestCompanyResearchUsesStoredContext(t *testing.T) {
	llm := &recordingLLM{}
	store := &memoryStore{hits: []alchemyst.Context{{Content: "Acme makes anvils."}, {Content: "Founded 1950."}}}
	stream := &fakeStreamer{content: "unused"}
	logger, _ := test.NewNullLogger()

	var events []alchemyst.Event
	res, err := NewCompanyResearch(newAgent(t, llm), store, stream, logger).Run(context.Background(), "Acme", collect(&events))
	require.NoError(t, err)
	assert.False(t, res.Degraded())
	assert.Empty(t, stream.prompts)

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0].User, "Acme makes anvils. Founded 1950.")
	require.Len(t, store.searches, 1)
	assert.InDelta(t, 0.4, store.searches[0].MinimumSimilarityThreshold, 1e-9)
	assert.Equal(t, alchemyst.EventStatus, events[len(events)-1].Type)
}

func TestCompanyResearchDeepResearchWhenNoContext(t *testing.T) {
	llm := &recordingLLM{}
	stream := &fakeStreamer{content: "# Acme deep dive\n\nAcme is a manufacturer."}
	logger, _ := test.NewNullLogger()

	rec := &generationRecorder{}
	flow := NewCompanyResearch(newAgent(t, llm), &memoryStore{}, stream, logger, WithCompanyRecorder(rec))

	var events []alchemyst.Event
	res, err := flow.Run(context.Background(), "Acme", collect(&events))
	require.NoError(t, err)
	assert.Equal(t, "Acme deep dive", res.Artifact.Title)
	assert.Equal(t, "alchemyst", res.Artifact.Provider)
	assert.NotEmpty(t, res.Artifact.ID)
	assert.False(t, res.Artifact.CreatedAt.IsZero())
	assert.Equal(t, []string{"company-research"}, rec.kinds)
	assert.Equal(t, []string{"alchemyst"}, rec.providers)
	assert.Empty(t, llm.prompts)
	require.Len(t, stream.prompts, 1)
	assert.Contains(t, stream.prompts[0], "Begin research on: Acme")
	assert.Contains(t, stream.prompts[0], "Competitive Analysis")
}

func TestCompanyResearchFallsBackToAgent(t *testing.T) {
	llm := &recordingLLM{}
	stream := &fakeStreamer{err: errors.New("stream down")}
	store := &memoryStore{searchErr: errors.New("search down")}
	logger, hook := test.NewNullLogger()

	res, err := NewCompanyResearch(newAgent(t, llm), store, stream, logger).Run(context.Background(), "Acme", nil)
	require.NoError(t, err)
	assert.Equal(t, "Report", res.Artifact.Title)
	assert.Len(t, llm.prompts, 1)
	assert.Len(t, hook.AllEntries(), 2)
}

func TestCompanyResearchAcceptsAmpersand(t *testing.T) {
	llm := &recordingLLM{}
	res, err := NewCompanyResearch(newAgent(t, llm), nil, nil, nil).Run(context.Background(), "Procter & Gamble", nil)
	require.NoError(t, err)
	assert.False(t, res.Degraded())
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0].User, "Procter &amp; Gamble")
}

func TestCompanyResearchValidatesName(t *testing.T) {
	llm := &recordingLLM{}
	_, err := NewCompanyResearch(newAgent(t, llm), nil, nil, nil).Run(context.Background(), " ", nil)
	var errs validate.Errors
	require.ErrorAs(t, err, &errs)
	assert.Empty(t, llm.prompts)
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

type ingestCounter struct {
	mu  sync.Mutex
	ok  int
	bad int
}

func (c *ingestCounter) Generation(string, string, bool, time.Duration) {}
func (c *ingestCounter) ValidationFailure(string) {}
func (c *ingestCounter) ContextIngest(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.bad++
		return
	}
	c.ok++
}

func TestNavigatorIngestDir(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.go":           "package main\n",
		"auth/login.py":     "def login_user(u, p):\n    return True\n",
		"README.md":         "# Demo\n",
		"empty.py":          "   ",
		"logo.png":          "binary",
		"node_modules/x.js": "ignored()",
		".git/config":       "ignored",
		"docs/.hidden/a.md": "ignored",
	})
	store := &memoryStore{}
	counter := &ingestCounter{}
	logger, _ := test.NewNullLogger()
	nav := NewNavigator(newAgent(t, &recordingLLM{}), store, WithNavigatorLogger(logger), WithNavigatorRecorder(counter))

	stored, found, err := nav.IngestDir(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 4, found)
	assert.Equal(t, 3, stored)
	assert.Equal(t, 3, counter.ok)

	var paths []string
	for _, req := range store.added {
		assert.Equal(t, navigatorSource, req.Source)
		paths = append(paths, req.Metadata["fileName"].(string))
	}
	sort.Strings(paths)
	assert.Equal(t, []string{"README.md", "login.py", "main.go"}, paths)
}

func TestNavigatorAsk(t *testing.T) {
	llm := &recordingLLM{}
	store := &memoryStore{hits: []alchemyst.Context{{Content: "def login_user(u, p)"}}}
	logger, _ := test.NewNullLogger()
	nav := NewNavigator(newAgent(t, llm), store, WithNavigatorLogger(logger))

	res, err := nav.Ask(context.Background(), "How do users log in?")
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(res.Artifact.Markdown, FallbackPrefix))
	assert.Contains(t, llm.prompts[0].User, "Context 1: def login_user(u, p)")

	store.hits = nil
	_, err = nav.Ask(context.Background(), "What else?")
	require.NoError(t, err)
	assert.NotContains(t, llm.prompts[1].User, "Context")
	assert.Len(t, llm.prompts[1].History, 2)

	store.searchErr = errors.New("search down")
	res, err = nav.Ask(context.Background(), "Still there?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Artifact.Markdown, FallbackPrefix))
	assert.Len(t, nav.History(), 3)
}

type fakeMemory struct {
	id       string
	contents [][]string
	err      error
}

func (f *fakeMemory) AddMemory(_ context.Context, id string, contents []string) error {
	f.id = id
	f.contents = append(f.contents, contents)
	return f.err
}

func TestNavigatorRecordsMemory(t *testing.T) {
	mem := &fakeMemory{}
	logger, hook := test.NewNullLogger()
	nav := NewNavigator(newAgent(t, &recordingLLM{}), &memoryStore{}, WithNavigatorLogger(logger), WithMemory(mem, "nav-1"))

	res, err := nav.Ask(context.Background(), "Where is main?")
	require.NoError(t, err)
	assert.Equal(t, "nav-1", mem.id)
	require.Len(t, mem.contents, 1)
	assert.Equal(t, []string{"Where is main?", res.Artifact.Text()}, mem.contents[0])

	mem.err = errors.New("memory down")
	_, err = nav.Ask(context.Background(), "And tests?")
	require.NoError(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "storing conversation memory failed", hook.LastEntry().Message)
}

type deletingStore struct {
	memoryStore
	deleted []string
}

func (d *deletingStore) DeleteContext(_ context.Context, source string) error {
	d.deleted = append(d.deleted, source)
	return nil
}

func TestNavigatorReset(t *testing.T) {
	store := &deletingStore{}
	nav := NewNavigator(newAgent(t, &recordingLLM{}), store, WithSource("my-repo"))
	_, err := nav.Ask(context.Background(), "Where is main?")
	require.NoError(t, err)

	require.NoError(t, nav.Reset(context.Background()))
	assert.Equal(t, []string{"my-repo"}, store.deleted)
	assert.Empty(t, nav.History())

	plain := NewNavigator(newAgent(t, &recordingLLM{}), &memoryStore{})
	require.Error(t, plain.Reset(context.Background()))
}
