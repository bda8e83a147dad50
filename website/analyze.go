package website

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultMaxBytes = 2 << 20
	maxExcerpt      = 1500
	maxHeadings     = 40
	userAgent       = "ai-content-agents/1.0 (+website audit)"
)

// FetchError reports a page that could not be retrieved.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Report is the page data handed to the website-audit agent.
type Report struct {
	URL              string        `json:"url"`
	StatusCode       int           `json:"statusCode"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Lang             string        `json:"lang,omitempty"`
	Headings         []Heading     `json:"headings"`
	Links            int           `json:"links"`
	Images           int           `json:"images"`
	ImagesMissingAlt int           `json:"imagesMissingAlt"`
	WordCount        int           `json:"wordCount"`
	Excerpt          string        `json:"excerpt"`
	Elapsed          time.Duration `json:"elapsed"`
}

type Analyzer struct {
	client   *http.Client
	maxBytes int64
}

// New returns an Analyzer; a nil client gets a default with a timeout.
func New(client *http.Client) *Analyzer {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Analyzer{client: client, maxBytes: defaultMaxBytes}
}

// Analyze fetches rawURL and extracts audit signals. Bodies beyond the size
// cap are ignored.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) (Report, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Report{}, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := a.client.Do(req)
	if err != nil {
		return Report{}, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Report{}, &FetchError{URL: rawURL, Status: resp.StatusCode}
	}

	report, err := Parse(io.LimitReader(resp.Body, a.maxBytes))
	if err != nil {
		return Report{}, &FetchError{URL: rawURL, Err: err}
	}
	report.URL = rawURL
	report.StatusCode = resp.StatusCode
	report.Elapsed = time.Since(start)
	return report, nil
}

// Parse extracts audit signals from an HTML document.
func Parse(r io.Reader) (Report, error) {
	var (
		report  = Report{Headings: []Heading{}}
		text    strings.Builder
		heading *Heading
		inTitle bool
		skip    int
	)
	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return Report{}, err
			}
			report.Title = collapse(report.Title)
			words := strings.Fields(text.String())
			report.WordCount = len(words)
			report.Excerpt = truncate(strings.Join(words, " "), maxExcerpt)
			return report, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Html:
				report.Lang = attr(tok, "lang")
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				if tt == html.StartTagToken {
					skip++
				}
			case atom.Title:
				inTitle = true
			case atom.Meta:
				if strings.EqualFold(attr(tok, "name"), "description") || strings.EqualFold(attr(tok, "property"), "og:description") {
					if report.Description == "" {
						report.Description = collapse(attr(tok, "content"))
					}
				}
			case atom.A:
				if attr(tok, "href") != "" {
					report.Links++
				}
			case atom.Img:
				report.Images++
				if _, ok := attrOK(tok, "alt"); !ok {
					report.ImagesMissingAlt++
				}
			case atom.H1, atom.H2, atom.H3:
				heading = &Heading{Level: int(tok.Data[1] - '0')}
			}

		case html.EndTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				if skip > 0 {
					skip--
				}
			case atom.Title:
				inTitle = false
			case atom.H1, atom.H2, atom.H3:
				if heading != nil {
					heading.Text = collapse(heading.Text)
					if heading.Text != "" && len(report.Headings) < maxHeadings {
						report.Headings = append(report.Headings, *heading)
					}
					heading = nil
				}
			}

		case html.TextToken:
			if skip > 0 {
				continue
			}
			data := string(z.Text())
			switch {
			case inTitle:
				report.Title += data
			default:
				if heading != nil {
					heading.Text += data
				}
				text.WriteString(data)
				text.WriteByte(' ')
			}
		}
	}
}

// Material renders the report as plain text for a prompt.
func (r Report) Material() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "URL: %s\n", r.URL)
	fmt.Fprintf(&sb, "Title: %s\n", orNone(r.Title))
	fmt.Fprintf(&sb, "Meta description: %s\n", orNone(r.Description))
	if r.Lang != "" {
		fmt.Fprintf(&sb, "Language: %s\n", r.Lang)
	}
	fmt.Fprintf(&sb, "Links: %d, images: %d (missing alt: %d), words: %d\n", r.Links, r.Images, r.ImagesMissingAlt, r.WordCount)
	if r.Elapsed > 0 {
		fmt.Fprintf(&sb, "Fetch time: %s\n", r.Elapsed.Round(time.Millisecond))
	}
	sb.WriteString("Headings:\n")
	if len(r.Headings) == 0 {
		sb.WriteString("  (none)\n")
	}
	for _, h := range r.Headings {
		fmt.Fprintf(&sb, "  h%d: %s\n", h.Level, h.Text)
	}
	fmt.Fprintf(&sb, "Text excerpt:\n%s\n", r.Excerpt)
	return sb.String()
}

func attr(tok html.Token, name string) string {
	v, _ := attrOK(tok, name)
	return v
}

func attrOK(tok html.Token, name string) (string, bool) {
	for _, a := range tok.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "…"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
