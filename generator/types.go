package generator

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind names one of the content agents.
type Kind string

const (
	KindTweet            Kind = "tweet"
	KindPresentation     Kind = "presentation"
	KindWebsiteAudit     Kind = "website-audit"
	KindV0Prompt         Kind = "v0-prompt"
	KindPromptEvaluation Kind = "prompt-evaluation"
	KindPortfolio        Kind = "portfolio"
	KindCompanyResearch  Kind = "company-research"
	KindDataInsights     Kind = "data-insights"
	KindAnswer           Kind = "answer"
)

// Kinds lists every supported kind in a stable order.
var Kinds = []Kind{
	KindTweet,
	KindPresentation,
	KindWebsiteAudit,
	KindV0Prompt,
	KindPromptEvaluation,
	KindPortfolio,
	KindCompanyResearch,
	KindDataInsights,
	KindAnswer,
}

// ParseKind maps a user-facing name to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// JSONKind reports whether artifacts of this kind carry a JSON document.
func (k Kind) JSONKind() bool {
	return k == KindPortfolio || k == KindPromptEvaluation
}

// UserInput is the flat record of free-text fields an agent works from. It
// lives for one request only.
type UserInput struct {
	Kind        Kind     `json:"kind,omitempty"`
	Topic       string   `json:"topic,omitempty"`
	Tone        string   `json:"tone,omitempty"`
	Style       string   `json:"style,omitempty"`
	Audience    string   `json:"audience,omitempty"`
	Count       int      `json:"count,omitempty"`
	URL         string   `json:"url,omitempty"`
	WebsiteName string   `json:"websiteName,omitempty"`
	Industry    string   `json:"industry,omitempty"`
	AboutInfo   string   `json:"aboutInfo,omitempty"`
	Name        string   `json:"name,omitempty"`
	Role        string   `json:"role,omitempty"`
	Bio         string   `json:"bio,omitempty"`
	Skills      []string `json:"skills,omitempty"`
	Projects    []string `json:"projects,omitempty"`
	Prompt      string   `json:"prompt,omitempty"`
	// Material is text gathered by the caller (page summary, dataset
	// statistics, retrieved context) rather than typed by the user.
	Material string `json:"material,omitempty"`
}

// Artifact is the generated content of one request.
type Artifact struct {
	ID       string          `json:"id"`
	Kind     Kind            `json:"kind"`
	Title    string          `json:"title,omitempty"`
	Digest   string          `json:"digest,omitempty"`
	Markdown string          `json:"markdown,omitempty"`
	Items    []string        `json:"items,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Provider string          `json:"provider,omitempty"`
	Model    string          `json:"model,omitempty"`
	// Fallback marks content produced locally after the remote call failed.
	Fallback  bool      `json:"fallback"`
	CreatedAt time.Time `json:"createdAt"`
}

// Text returns the printable body of the artifact.
func (a Artifact) Text() string {
	if len(a.Data) > 0 {
		return string(a.Data)
	}
	return a.Markdown
}

// Turn records one question/answer exchange of a Session.
type Turn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Fallback  bool      `json:"fallback"`
	CreatedAt time.Time `json:"createdAt"`
}
