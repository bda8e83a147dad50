package research

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"ai_content_agents/alchemyst"
	"ai_content_agents/generator"
	"ai_content_agents/metrics"
)

const (
	navigatorSource            = "project-codebase"
	navigatorSimilarity        = 0.8
	navigatorMinimumSimilarity = 0.5
	maxSourceFileSize          = 1 << 20

	// FallbackPrefix marks answers produced without retrieved context
	// because the search itself failed.
	FallbackPrefix = "[Fallback response - no context used]"
)

// fileTypes maps ingested extensions to the fileType metadata value.
var fileTypes = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".java": "java",
	".rs":   "rust",
	".rb":   "ruby",
	".md":   "markdown",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
	".json": "json",
	".sql":  "sql",
	".sh":   "shell",
}

var skippedDirs = []string{".git", "node_modules", "vendor", "dist", "build", "__pycache__", ".venv"}

// Memory keeps conversation turns; *alchemyst.Client implements it.
type Memory interface {
	AddMemory(ctx context.Context, memoryID string, contents []string) error
}

// Navigator answers questions about a codebase from its ingested files.
type Navigator struct {
	store    alchemyst.ContextStore
	session  *generator.Session
	log      *logrus.Logger
	recorder metrics.Recorder
	source   string
	memory   Memory
	memoryID string
}

type NavigatorOption func(*Navigator)

func WithNavigatorLogger(l *logrus.Logger) NavigatorOption {
	return func(n *Navigator) { n.log = l }
}

func WithNavigatorRecorder(r metrics.Recorder) NavigatorOption {
	return func(n *Navigator) { n.recorder = r }
}

// WithSource sets the context source name documents are stored under.
func WithSource(source string) NavigatorOption {
	return func(n *Navigator) { n.source = source }
}

// WithMemory records every answered turn under memoryID.
func WithMemory(m Memory, memoryID string) NavigatorOption {
	return func(n *Navigator) { n.memory, n.memoryID = m, memoryID }
}

func NewNavigator(agent *generator.Agent, store alchemyst.ContextStore, opts ...NavigatorOption) *Navigator {
	n := &Navigator{
		store:    store,
		session:  generator.NewSession("navigator", agent),
		log:      logrus.StandardLogger(),
		recorder: metrics.Noop{},
		source:   navigatorSource,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// History returns the turns asked so far.
func (n *Navigator) History() []generator.Turn {
	return n.session.History
}

// Reset removes the previously ingested documents. The store must support
// deletion.
func (n *Navigator) Reset(ctx context.Context) error {
	d, ok := n.store.(interface {
		DeleteContext(ctx context.Context, source string) error
	})
	if !ok {
		return fmt.Errorf("context store cannot delete source %q", n.source)
	}
	if err := d.DeleteContext(ctx, n.source); err != nil {
		return fmt.Errorf("resetting %s: %w", n.source, err)
	}
	n.session.Reset()
	return nil
}

// IngestDir stores every recognised source file below root. It returns the
// number stored and the number found.
func (n *Navigator) IngestDir(ctx context.Context, root string) (int, int, error) {
	docs, err := collectSources(root)
	if err != nil {
		return 0, 0, err
	}
	if len(docs) == 0 {
		n.log.WithField("root", root).Warn("no source files found to ingest")
		return 0, 0, nil
	}

	byType := lo.GroupBy(docs, func(d alchemyst.Document) string { return d.Metadata["fileType"].(string) })
	stored := 0
	for fileType, group := range byType {
		count, err := alchemyst.Ingest(ctx, n.store, group, alchemyst.IngestOptions{
			Source:   n.source,
			FileType: fileType,
			Logger:   n.log,
			OnResult: func(_ string, err error) { n.recorder.ContextIngest(err) },
		})
		stored += count
		if err != nil {
			return stored, len(docs), err
		}
	}
	n.log.WithFields(logrus.Fields{"stored": stored, "found": len(docs)}).Info("codebase ingested")
	return stored, len(docs), nil
}

func collectSources(root string) ([]alchemyst.Document, error) {
	var docs []alchemyst.Document
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (lo.Contains(skippedDirs, d.Name()) || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		fileType, ok := fileTypes[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxSourceFileSize {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		docs = append(docs, alchemyst.Document{
			Content: string(data),
			Metadata: map[string]any{
				"filename": d.Name(),
				"filepath": filepath.ToSlash(rel),
				"fileType": fileType,
			},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return docs, nil
}

// Ask answers question with retrieved context. Without hits the model
// answers from general knowledge; when the search fails the answer is
// prefixed with FallbackPrefix.
func (n *Navigator) Ask(ctx context.Context, question string) (generator.Result, error) {
	res, err := n.ask(ctx, question)
	if err != nil || n.memory == nil {
		return res, err
	}
	if merr := n.memory.AddMemory(ctx, n.memoryID, []string{question, res.Artifact.Text()}); merr != nil {
		n.log.WithError(merr).Warn("storing conversation memory failed")
	}
	return res, nil
}

func (n *Navigator) ask(ctx context.Context, question string) (generator.Result, error) {
	hits, err := n.store.SearchContext(ctx, alchemyst.SearchRequest{
		Query:                      question,
		SimilarityThreshold:        navigatorSimilarity,
		MinimumSimilarityThreshold: navigatorMinimumSimilarity,
		Scope:                      "internal",
	})
	if err != nil {
		n.log.WithError(err).Warn("context search failed, answering without context")
		res, err := n.session.Ask(ctx, question, "")
		if err != nil {
			return res, err
		}
		res.Artifact.Markdown = FallbackPrefix + "\n" + res.Artifact.Markdown
		return res, nil
	}

	if len(hits) == 0 {
		n.log.Debug("no relevant context found")
		return n.session.Ask(ctx, question, "")
	}
	n.log.WithField("hits", len(hits)).Debug("found relevant context")
	contexts := lo.Map(hits, func(h alchemyst.Context, i int) string {
		return fmt.Sprintf("Context %d: %s", i+1, h.Content)
	})
	return n.session.Ask(ctx, question, strings.Join(contexts, "\n\n"))
}
