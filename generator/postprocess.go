package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const maxTweetLength = 280

var (
	titleRe     = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	slideRe     = regexp.MustCompile(`(?m)^(?:#{2,3}\s+|Slide\s+\d+\s*[:.\-]\s*)(.+)$`)
	listPrefix  = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•]|Tweet\s*\d+\s*:)\s*`)
	fenceRe     = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\n(.*?)\n?```\\s*$")
	errNoJSON   = errors.New("no JSON object found")
	errNoSlides = errors.New("no slides found")
)

// Portfolio is the JSON document produced by the portfolio agent.
type Portfolio struct {
	Name         string             `json:"name"`
	Headline     string             `json:"headline"`
	Summary      string             `json:"summary"`
	Skills       []string           `json:"skills"`
	Projects     []PortfolioProject `json:"projects"`
	CallToAction string             `json:"callToAction,omitempty"`
}

type PortfolioProject struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Evaluation is the scorecard produced by the prompt evaluator.
type Evaluation struct {
	Score          *int     `json:"score"`
	Clarity        int      `json:"clarity"`
	Specificity    int      `json:"specificity"`
	Context        int      `json:"context"`
	Structure      int      `json:"structure"`
	Strengths      []string `json:"strengths"`
	Improvements   []string `json:"improvements"`
	ImprovedPrompt string   `json:"improvedPrompt,omitempty"`
}

// Diff renders a colored word diff from original to the improved prompt.
func (e Evaluation) Diff(original string) string {
	if e.ImprovedPrompt == "" {
		return ""
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(original, e.ImprovedPrompt, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return dmp.DiffPrettyText(diffs)
}

// PostProcess validates a raw model reply and shapes it into an Artifact.
// Errors wrap ErrMalformedResponse.
func PostProcess(kind Kind, raw string) (Artifact, error) {
	text := stripFence(strings.TrimSpace(raw))
	if text == "" {
		return Artifact{}, fmt.Errorf("%w: model returned empty output", ErrMalformedResponse)
	}

	art := Artifact{Kind: kind}
	var err error
	switch kind {
	case KindTweet:
		art.Items, err = parseTweets(text)
		art.Markdown = strings.Join(art.Items, "\n\n")
	case KindPortfolio:
		var p Portfolio
		art.Data, err = extractJSON(text, &p)
		if err == nil && strings.TrimSpace(p.Name) == "" {
			err = errors.New("portfolio without name")
		}
		art.Title = p.Name
		art.Digest = p.Headline
	case KindPromptEvaluation:
		var e Evaluation
		art.Data, err = extractJSON(text, &e)
		if err == nil && e.Score == nil {
			err = errors.New("scorecard without score")
		}
		if err == nil {
			art.Title = fmt.Sprintf("Prompt score %d/100", *e.Score)
			art.Items = e.Improvements
		}
	case KindPresentation:
		art.Markdown = text
		art.Title = extractTitle(text)
		art.Items = extractSlides(text)
		if len(art.Items) == 0 {
			err = errNoSlides
		}
	default:
		art.Markdown = text
		art.Title = extractTitle(text)
		art.Digest = extractDigest(text)
		if art.Digest == "" {
			art.Digest = defaultDigest(text, 120)
		}
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return art, nil
}

func stripFence(s string) string {
	if m := fenceRe.FindStringSubmatch(s); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return s
}

func parseTweets(text string) ([]string, error) {
	var tweets []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(listPrefix.ReplaceAllString(line, ""))
		line = strings.Trim(line, `"`)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxTweetLength {
			line = string([]rune(line)[:maxTweetLength-1]) + "…"
		}
		tweets = append(tweets, line)
	}
	if len(tweets) == 0 {
		return nil, errors.New("no tweets found")
	}
	return tweets, nil
}

// extractJSON finds the outermost JSON object in text, decodes it into v and
// returns it compacted.
func extractJSON(text string, v any) (json.RawMessage, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, errNoJSON
	}
	candidate := []byte(text[start : end+1])
	if err := json.Unmarshal(candidate, v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func extractTitle(md string) string {
	m := titleRe.FindStringSubmatch(md)
	if len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func extractSlides(md string) []string {
	var slides []string
	for _, m := range slideRe.FindAllStringSubmatch(md, -1) {
		slides = append(slides, strings.TrimSpace(m[1]))
	}
	return slides
}

// extractDigest takes the first paragraph line that is not a heading.
func extractDigest(md string) string {
	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		return trimmed
	}
	return ""
}

func defaultDigest(md string, limit int) string {
	joined := strings.Join(strings.Fields(md), " ")
	if utf8.RuneCountInString(joined) <= limit {
		return joined
	}
	return string([]rune(joined)[:limit])
}
