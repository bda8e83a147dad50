package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"ai_content_agents/alchemyst"
	"ai_content_agents/docstore"
	"ai_content_agents/generator"
)

const (
	defaultSource = "generated-content"
	maxSlugLength = 60
)

// DocWriter stores a documentation section; *docstore.Store implements it.
type DocWriter interface {
	Upsert(ctx context.Context, key docstore.Key, content string) (docstore.Section, error)
}

// Params describes where an artifact goes.
type Params struct {
	Dir string
	// Basename is the file name without extension; derived from the title
	// when empty.
	Basename string
	HTML     bool
	// Docs, when set, also stores the artifact as a documentation section.
	Docs *docstore.Key
	// Context, when true, adds the artifact to the hosted context store.
	Context bool
	Source  string
}

// Output lists what Publish wrote.
type Output struct {
	Paths   []string      `json:"paths"`
	Docs    *docstore.Key `json:"docs,omitempty"`
	Context bool          `json:"context"`
}

// Publisher writes artifacts to disk and optional stores.
type Publisher struct {
	docs  DocWriter
	store alchemyst.ContextStore
	log   *logrus.Logger
	md    goldmark.Markdown
}

// New creates a Publisher. docs and store may be nil when those targets are
// not used.
func New(docs DocWriter, store alchemyst.ContextStore, logger *logrus.Logger) *Publisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Publisher{
		docs:  docs,
		store: store,
		log:   logger,
		md:    goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Publish writes <basename>.md (or .json for JSON artifacts), optionally an
// HTML rendering, and pushes the text to the configured stores.
func (p *Publisher) Publish(ctx context.Context, art generator.Artifact, params Params) (Output, error) {
	if params.Dir == "" {
		params.Dir = "."
	}
	if params.Basename == "" {
		params.Basename = Basename(art)
	}
	if err := os.MkdirAll(params.Dir, 0o755); err != nil {
		return Output{}, fmt.Errorf("creating output dir: %w", err)
	}

	var out Output
	body, ext := art.Markdown, ".md"
	if art.Kind.JSONKind() {
		body, ext = string(art.Data), ".json"
	}
	if strings.TrimSpace(body) == "" {
		return Output{}, errors.New("artifact has no content to publish")
	}
	mainPath := filepath.Join(params.Dir, params.Basename+ext)
	if err := os.WriteFile(mainPath, []byte(body), 0o644); err != nil {
		return Output{}, err
	}
	out.Paths = append(out.Paths, mainPath)
	p.log.WithFields(logrus.Fields{"kind": art.Kind, "path": mainPath}).Info("artifact written")

	if params.HTML && !art.Kind.JSONKind() {
		page, err := p.RenderHTML(art)
		if err != nil {
			return out, err
		}
		htmlPath := filepath.Join(params.Dir, params.Basename+".html")
		if err := os.WriteFile(htmlPath, []byte(page), 0o644); err != nil {
			return out, err
		}
		out.Paths = append(out.Paths, htmlPath)
		p.log.WithField("path", htmlPath).Info("html written")
	}

	if params.Docs != nil {
		if p.docs == nil {
			return out, errors.New("documentation store not configured")
		}
		if _, err := p.docs.Upsert(ctx, *params.Docs, art.Text()); err != nil {
			return out, err
		}
		out.Docs = params.Docs
		p.log.WithField("section", params.Docs.String()).Info("documentation section stored")
	}

	if params.Context {
		if p.store == nil {
			return out, errors.New("context store not configured")
		}
		source := params.Source
		if source == "" {
			source = defaultSource
		}
		n, err := alchemyst.Ingest(ctx, p.store, []alchemyst.Document{{
			Content:  art.Text(),
			Metadata: map[string]any{"fileName": filepath.Base(mainPath)},
		}}, alchemyst.IngestOptions{Source: source, FileType: strings.TrimPrefix(ext, "."), Logger: p.log})
		if err != nil {
			return out, err
		}
		if n == 0 {
			return out, fmt.Errorf("context store rejected %s", filepath.Base(mainPath))
		}
		out.Context = true
	}
	return out, nil
}

// RenderHTML converts the artifact Markdown into a standalone page with
// inline heading styles and flattened lists, which survive pasting into
// editors that strip stylesheets.
func (p *Publisher) RenderHTML(art generator.Artifact) (string, error) {
	body, err := p.mdToHTML(art.Markdown)
	if err != nil {
		return "", err
	}
	body = normalizeHTML(body)
	title := art.Title
	if title == "" {
		title = string(art.Kind)
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	if art.Digest != "" {
		fmt.Fprintf(&b, "<meta name=\"description\" content=\"%s\">\n", html.EscapeString(art.Digest))
	}
	b.WriteString("</head>\n<body>\n")
	b.WriteString(body)
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}

func (p *Publisher) mdToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var (
	olRe = regexp.MustCompile(`(?s)<ol[^>]*>(.*?)</ol>`)
	ulRe = regexp.MustCompile(`(?s)<ul[^>]*>(.*?)</ul>`)
	liRe = regexp.MustCompile(`(?s)<li[^>]*>(.*?)</li>`)
	hRe  = regexp.MustCompile(`(?s)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
)

var headingSizes = map[string]string{
	"1": "24px",
	"2": "22px",
	"3": "20px",
	"4": "18px",
	"5": "16px",
	"6": "15px",
}

// flattenLists turns list items into numbered or bulleted paragraphs.
func flattenLists(s string) string {
	s = olRe.ReplaceAllStringFunc(s, func(block string) string {
		items := liRe.FindAllStringSubmatch(block, -1)
		if len(items) == 0 {
			return block
		}
		var b strings.Builder
		for i, item := range items {
			fmt.Fprintf(&b, "<p>%d. %s</p>\n", i+1, strings.TrimSpace(item[1]))
		}
		return b.String()
	})

	return ulRe.ReplaceAllStringFunc(s, func(block string) string {
		items := liRe.FindAllStringSubmatch(block, -1)
		if len(items) == 0 {
			return block
		}
		var b strings.Builder
		for _, item := range items {
			fmt.Fprintf(&b, "<p>• %s</p>\n", strings.TrimSpace(item[1]))
		}
		return b.String()
	})
}

func convertHeadings(s string) string {
	return hRe.ReplaceAllStringFunc(s, func(block string) string {
		parts := hRe.FindStringSubmatch(block)
		if len(parts) != 3 {
			return block
		}
		size := headingSizes[parts[1]]
		if size == "" {
			size = "18px"
		}
		text := strings.TrimSpace(parts[2])
		return fmt.Sprintf(`<p style="font-size:%s;font-weight:700;margin:1em 0 0.6em;">%s</p>`, size, text)
	})
}

func normalizeHTML(s string) string {
	s = convertHeadings(s)
	s = flattenLists(s)
	return s
}

// Basename derives a file name from the artifact title, falling back to the
// kind and ID.
func Basename(art generator.Artifact) string {
	if slug := Slugify(art.Title); slug != "" {
		return slug
	}
	id := art.ID
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		return string(art.Kind)
	}
	return string(art.Kind) + "-" + id
}

// Slugify lowercases s and joins its letters and digits with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(html.UnescapeString(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if len([]rune(slug)) > maxSlugLength {
		slug = strings.TrimRight(string([]rune(slug)[:maxSlugLength]), "-")
	}
	return slug
}
