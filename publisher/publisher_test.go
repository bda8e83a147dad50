package publisher

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai_content_agents/alchemyst"
	"ai_content_agents/docstore"
	"ai_content_agents/generator"
)

type fakeDocs struct {
	key     docstore.Key
	content string
}

func (f *fakeDocs) Upsert(_ context.Context, key docstore.Key, content string) (docstore.Section, error) {
	f.key, f.content = key, content
	return docstore.Section{Key: key, Content: content}, nil
}

type fakeContext struct {
	added []alchemyst.AddContextRequest
}

func (f *fakeContext) AddContext(_ context.Context, req alchemyst.AddContextRequest) error {
	f.added = append(f.added, req)
	return nil
}

func (f *fakeContext) SearchContext(context.Context, alchemyst.SearchRequest) ([]alchemyst.Context, error) {
	return nil, nil
}

func newPublisher(docs DocWriter, store alchemyst.ContextStore) *Publisher {
	logger, _ := test.NewNullLogger()
	return New(docs, store, logger)
}

func TestPublishMarkdownAndHTML(t *testing.T) {
	dir := t.TempDir()
	art := generator.Artifact{
		ID:       "0123456789",
		Kind:     generator.KindPresentation,
		Title:    "Go at Scale: 2024!",
		Digest:   "Why \"Go\" works",
		Markdown: "# Go at Scale\n\n## Why Go\n\n1. fast\n2. simple\n\n- one\n- two\n",
	}

	out, err := newPublisher(nil, nil).Publish(context.Background(), art, Params{Dir: dir, HTML: true})
	require.NoError(t, err)
	require.Len(t, out.Paths, 2)
	assert.Equal(t, filepath.Join(dir, "go-at-scale-2024.md"), out.Paths[0])

	md, err := os.ReadFile(out.Paths[0])
	require.NoError(t, err)
	assert.Equal(t, art.Markdown, string(md))

	page, err := os.ReadFile(out.Paths[1])
	require.NoError(t, err)
	s := string(page)
	assert.Contains(t, s, "<title>Go at Scale: 2024!</title>")
	assert.Contains(t, s, `content="Why &#34;Go&#34; works"`)
	assert.Contains(t, s, `<p style="font-size:22px;font-weight:700;margin:1em 0 0.6em;">Why Go</p>`)
	assert.Contains(t, s, "<p>1. fast</p>")
	assert.Contains(t, s, "<p>• two</p>")
	assert.NotContains(t, s, "<ol>")
	assert.NotContains(t, s, "<h1")
}

func TestPublishJSONArtifact(t *testing.T) {
	dir := t.TempDir()
	art := generator.Artifact{
		ID:   "abcdef123456",
		Kind: generator.KindPortfolio,
		Data: json.RawMessage(`{"name":"Ada"}`),
	}

	out, err := newPublisher(nil, nil).Publish(context.Background(), art, Params{Dir: dir, HTML: true})
	require.NoError(t, err)
	require.Len(t, out.Paths, 1)
	assert.Equal(t, filepath.Join(dir, "portfolio-abcdef12.json"), out.Paths[0])
}

func TestPublishToStores(t *testing.T) {
	docs := &fakeDocs{}
	store := &fakeContext{}
	art := generator.Artifact{Kind: generator.KindCompanyResearch, Title: "Acme", Markdown: "# Acme\n\nReport."}
	key := &docstore.Key{Owner: "acme", Repo: "site", Section: "research"}

	out, err := newPublisher(docs, store).Publish(context.Background(), art, Params{Dir: t.TempDir(), Basename: "acme", Docs: key, Context: true})
	require.NoError(t, err)
	assert.Equal(t, key, out.Docs)
	assert.True(t, out.Context)
	assert.Equal(t, "# Acme\n\nReport.", docs.content)
	require.NotEmpty(t, store.added)
	assert.Equal(t, defaultSource, store.added[0].Source)
	assert.Equal(t, "acme.md", store.added[0].Metadata["fileName"])
}

func TestPublishErrors(t *testing.T) {
	p := newPublisher(nil, nil)
	dir := t.TempDir()

	_, err := p.Publish(context.Background(), generator.Artifact{Kind: generator.KindTweet}, Params{Dir: dir})
	require.Error(t, err)

	art := generator.Artifact{Kind: generator.KindTweet, Markdown: "hello"}
	_, err = p.Publish(context.Background(), art, Params{Dir: dir, Docs: &docstore.Key{Owner: "a", Repo: "b", Section: "c"}})
	require.ErrorContains(t, err, "documentation store")
	_, err = p.Publish(context.Background(), art, Params{Dir: dir, Context: true})
	require.ErrorContains(t, err, "context store")
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello, World!":          "hello-world",
		"  --Go &amp; Rust--  ": "go-rust",
		"Café Menü":              "café-menü",
		"":                       "",
		strings.Repeat("ab ", 40): strings.TrimRight(strings.Repeat("ab-", 20), "-"),
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}
