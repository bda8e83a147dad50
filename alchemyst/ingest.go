package alchemyst

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ContextStore is the subset of Client used by ingestion and retrieval.
type ContextStore interface {
	AddContext(ctx context.Context, req AddContextRequest) error
	SearchContext(ctx context.Context, req SearchRequest) ([]Context, error)
}

// IngestOptions controls Ingest.
type IngestOptions struct {
	Source      string
	ContextType string
	Scope       string
	FileType    string
	Concurrency int
	Logger      *logrus.Logger
	// OnResult is called once per document with its outcome.
	OnResult func(name string, err error)
}

// Ingest adds each document separately so one bad file cannot fail the batch.
// A document that fails is retried once with its metadata stripped. The
// number of stored documents is returned; only context cancellation is an
// error.
func Ingest(ctx context.Context, store ContextStore, docs []Document, opts IngestOptions) (int, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.ContextType == "" {
		opts.ContextType = "resource"
	}
	if opts.Scope == "" {
		opts.Scope = "internal"
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	var stored atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, doc := range docs {
		doc.Content = NormalizeContent(doc.Content)
		if strings.TrimSpace(doc.Content) == "" {
			continue
		}
		name := documentName(doc, i)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := store.AddContext(ctx, AddContextRequest{
				Documents:   []Document{doc},
				Source:      opts.Source,
				ContextType: opts.ContextType,
				Scope:       opts.Scope,
				Metadata: map[string]any{
					"fileName":     name,
					"fileType":     opts.FileType,
					"lastModified": time.Now().UTC().Format(time.RFC3339),
					"fileSize":     len(doc.Content),
				},
			})
			if err != nil {
				logger.WithError(err).WithField("document", name).Warn("ingest failed, retrying with minimal metadata")
				err = store.AddContext(ctx, AddContextRequest{
					Documents: []Document{{Content: doc.Content}},
					Source:    opts.Source,
				})
			}
			if opts.OnResult != nil {
				opts.OnResult(name, err)
			}
			if err != nil {
				logger.WithError(err).WithField("document", name).Error("ingest fallback failed")
				return nil
			}
			stored.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(stored.Load()), err
	}
	return int(stored.Load()), nil
}

// NormalizeContent unifies line endings and drops control characters other
// than newline and tab.
func NormalizeContent(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
}

func documentName(doc Document, i int) string {
	if doc.Metadata != nil {
		if v, ok := doc.Metadata["filename"].(string); ok && v != "" {
			return v
		}
		if v, ok := doc.Metadata["fileName"].(string); ok && v != "" {
			return v
		}
	}
	return "file_" + strconv.Itoa(i)
}
