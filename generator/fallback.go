package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/Masterminds/sprig/v3"
	"github.com/samber/lo"
)

// Fallback templates render locally when the remote model fails, so every
// request still gets well-formed content.
const (
	tweetFallbackTpl = `{{- $topic := .Topic -}}
{{- range $i, $_ := until .Count }}
{{ add $i 1 }}. {{ index (list "Quick thought on" "Why it matters:" "One takeaway about" "Still thinking about" "Hot take on") (mod $i 5) }} {{ $topic }}. {{ if $.Tone }}({{ $.Tone }}) {{ end }}#{{ $topic | nospace | trunc 20 | camelcase }}
{{- end }}`

	presentationFallbackTpl = `# {{ .Topic | title }}
{{ range $i, $s := .Slides }}
## {{ $s }}

- Key point about {{ $.Topic }}
- Supporting detail
- Example or data
{{ end }}`

	markdownFallbackTpl = `# {{ .Title }}

{{ .Summary }}
{{ range .Sections }}
## {{ . }}

Content unavailable: the model could not be reached. Try again later.
{{ end }}`
)

var fallbackTemplates = template.Must(
	template.New("fallback").Funcs(sprig.TxtFuncMap()).Parse(`{{ define "tweet" }}` + tweetFallbackTpl + `{{ end }}` +
		`{{ define "presentation" }}` + presentationFallbackTpl + `{{ end }}` +
		`{{ define "markdown" }}` + markdownFallbackTpl + `{{ end }}`),
)

// Fallback produces deterministic content for in without any remote call.
// in must already be sanitized and validated.
func Fallback(in UserInput) Artifact {
	in = in.WithDefaults()
	var (
		raw string
		err error
	)
	switch in.Kind {
	case KindTweet:
		raw, err = render("tweet", in)
	case KindPresentation:
		raw, err = render("presentation", map[string]any{"Topic": in.Topic, "Slides": presentationSlides(in.Count)})
	case KindPortfolio:
		raw, err = marshal(fallbackPortfolio(in))
	case KindPromptEvaluation:
		raw, err = marshal(HeuristicEvaluation(in.Prompt))
	default:
		raw, err = render("markdown", markdownFallback(in))
	}

	art, perr := PostProcess(in.Kind, raw)
	if err != nil || perr != nil {
		art = Artifact{Kind: in.Kind, Title: "Content unavailable", Markdown: "Content unavailable: the model could not be reached."}
	}
	art.Fallback = true
	art.Provider = "fallback"
	return art
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := fallbackTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	return string(data), err
}

var slideTitles = []string{"Introduction", "The Problem", "Our Approach", "Key Benefits", "Use Cases", "Roadmap", "Metrics", "Team", "Risks", "Summary", "Q&A"}

func presentationSlides(n int) []string {
	if n <= 0 {
		n = defaultSlideCount
	}
	slides := make([]string, 0, n)
	for i := 0; i < n-1 && i < len(slideTitles)-1; i++ {
		slides = append(slides, slideTitles[i])
	}
	for len(slides) < n-1 {
		slides = append(slides, fmt.Sprintf("Topic %d", len(slides)+1))
	}
	return append(slides, "Q&A")
}

func fallbackPortfolio(in UserInput) Portfolio {
	headline := in.Role
	if headline == "" {
		headline = "Developer"
	}
	summary := in.Bio
	if summary == "" {
		summary = fmt.Sprintf("%s builds software and enjoys solving problems.", in.Name)
	}
	return Portfolio{
		Name:     in.Name,
		Headline: headline,
		Summary:  summary,
		Skills:   lo.Ternary(in.Skills == nil, []string{}, in.Skills),
		Projects: lo.Map(in.Projects, func(p string, _ int) PortfolioProject {
			return PortfolioProject{Name: p, Description: ""}
		}),
		CallToAction: fmt.Sprintf("Get in touch with %s.", in.Name),
	}
}

func markdownFallback(in UserInput) map[string]any {
	switch in.Kind {
	case KindWebsiteAudit:
		return map[string]any{
			"Title":    "Website audit: " + in.URL,
			"Summary":  "Automatic audit could not be completed. Review the checklist below manually.",
			"Sections": []string{"SEO: title, meta description, headings", "Content: clarity and calls to action", "Accessibility: alt text and contrast", "Performance: image sizes and caching"},
		}
	case KindV0Prompt:
		return map[string]any{
			"Title": in.WebsiteName + " website prompt",
			"Summary": fmt.Sprintf("Build a modern, responsive website for %s, a %s business. %s Include a hero section, features, testimonials, pricing and a contact form.",
				in.WebsiteName, in.Industry, in.AboutInfo),
			"Sections": []string{},
		}
	case KindCompanyResearch:
		return map[string]any{"Title": in.Topic + " research report", "Summary": "Research could not be generated.", "Sections": researchSections}
	case KindDataInsights:
		return map[string]any{"Title": "Dataset insights", "Summary": "AI insights unavailable. Raw statistics:\n\n" + in.Material, "Sections": []string{}}
	default:
		return map[string]any{"Title": "Answer unavailable", "Summary": "The question could not be answered right now: " + in.Topic, "Sections": []string{}}
	}
}

// HeuristicEvaluation scores a prompt locally with simple signals: length,
// role, examples, output format and constraints.
func HeuristicEvaluation(prompt string) Evaluation {
	lower := strings.ToLower(prompt)
	words := len(strings.Fields(prompt))
	has := func(keys ...string) bool {
		return lo.SomeBy(keys, func(k string) bool { return strings.Contains(lower, k) })
	}

	clarity := lo.Clamp(3+words/15, 0, 10)
	specificity := 3
	contextual := 3
	structure := 3
	var strengths, improvements []string

	if has("you are", "act as", "as a ") {
		contextual += 3
		strengths = append(strengths, "Defines a role")
	} else {
		improvements = append(improvements, "Give the model a role (\"You are ...\")")
	}
	if has("example", "e.g.", "for instance") {
		specificity += 3
		strengths = append(strengths, "Includes examples")
	} else {
		improvements = append(improvements, "Add an example of the desired output")
	}
	if has("format", "json", "markdown", "bullet", "list", "table") {
		structure += 4
		strengths = append(strengths, "Specifies an output format")
	} else {
		improvements = append(improvements, "State the output format")
	}
	if has("must", "should", "do not", "don't", "avoid", "limit", "at most", "under") {
		specificity += 2
		strengths = append(strengths, "Sets constraints")
	} else {
		improvements = append(improvements, "Add constraints such as length or scope")
	}
	if utf8.RuneCountInString(prompt) < 40 {
		clarity = lo.Clamp(clarity-2, 0, 10)
		improvements = append(improvements, "Expand the prompt with more detail")
	}

	specificity = lo.Clamp(specificity, 0, 10)
	contextual = lo.Clamp(contextual, 0, 10)
	structure = lo.Clamp(structure, 0, 10)
	score := (clarity + specificity + contextual + structure) * 100 / 40

	return Evaluation{
		Score:        lo.ToPtr(score),
		Clarity:      clarity,
		Specificity:  specificity,
		Context:      contextual,
		Structure:    structure,
		Strengths:    lo.Ternary(strengths == nil, []string{}, strengths),
		Improvements: lo.Ternary(improvements == nil, []string{}, improvements),
	}
}
