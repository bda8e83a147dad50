package generator

import (
	"fmt"
	"strings"
)

// Prompt is the message set sent to an LLM.
type Prompt struct {
	System  string
	User    string
	History []Message
}

// Message is one earlier turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// BuildPrompt renders the prompt for in.Kind. in must already be sanitized.
func BuildPrompt(in UserInput) (Prompt, error) {
	switch in.Kind {
	case KindTweet:
		return buildTweetPrompt(in), nil
	case KindPresentation:
		return buildPresentationPrompt(in), nil
	case KindWebsiteAudit:
		return buildWebsiteAuditPrompt(in), nil
	case KindV0Prompt:
		return buildV0Prompt(in), nil
	case KindPromptEvaluation:
		return buildEvaluationPrompt(in), nil
	case KindPortfolio:
		return buildPortfolioPrompt(in), nil
	case KindCompanyResearch:
		return buildResearchPrompt(in), nil
	case KindDataInsights:
		return buildInsightsPrompt(in), nil
	case KindAnswer:
		return buildAnswerPrompt(in), nil
	default:
		return Prompt{}, fmt.Errorf("no prompt for kind %q", in.Kind)
	}
}

func buildTweetPrompt(in UserInput) Prompt {
	var sb strings.Builder
	sb.WriteString("You write tweets. Reply with a numbered list of tweets, one per line, nothing else.\n")
	sb.WriteString("Each tweet must be under 280 characters and may use at most two hashtags.\n")
	if in.Tone != "" {
		sb.WriteString(fmt.Sprintf("Tone: %s.\n", in.Tone))
	}
	if in.Style != "" {
		sb.WriteString(fmt.Sprintf("Style: %s.\n", in.Style))
	}
	return Prompt{
		System: sb.String(),
		User:   fmt.Sprintf("%s\nWrite %d tweets about this topic.", in.Topic, in.Count),
	}
}

func buildPresentationPrompt(in UserInput) Prompt {
	var sb strings.Builder
	sb.WriteString("You design slide decks. Output Markdown only.\n")
	sb.WriteString("Use one level-1 heading for the deck title and one level-2 heading per slide,\n")
	sb.WriteString("followed by 3-5 short bullet points and an optional speaker note line starting with 'Note:'.\n")
	sb.WriteString(fmt.Sprintf("The deck has exactly %d slides.\n", in.Count))
	if in.Audience != "" {
		sb.WriteString(fmt.Sprintf("Audience: %s.\n", in.Audience))
	}
	if in.Tone != "" {
		sb.WriteString(fmt.Sprintf("Tone: %s.\n", in.Tone))
	}
	return Prompt{System: sb.String(), User: in.Topic + "\nCreate the presentation."}
}

func buildWebsiteAuditPrompt(in UserInput) Prompt {
	system := "You are a website auditor. Review the page data and output a Markdown report with a level-1 title and sections " +
		"for SEO, content, accessibility, performance hints and a prioritized list of fixes."
	user := fmt.Sprintf("%s\n\nPage data:\n%s", in.URL, in.Material)
	return Prompt{System: system, User: user}
}

func buildV0Prompt(in UserInput) Prompt {
	var sb strings.Builder
	sb.WriteString("You write prompts for an AI website builder. Output Markdown with a level-1 title followed by one\n")
	sb.WriteString("complete, ready-to-paste prompt describing pages, sections, visual style, color palette and components.\n")
	if in.Style != "" {
		sb.WriteString(fmt.Sprintf("Preferred visual style: %s.\n", in.Style))
	}
	user := fmt.Sprintf("%s\nIndustry: %s\nAbout: %s", in.WebsiteName, in.Industry, in.AboutInfo)
	return Prompt{System: sb.String(), User: user}
}

func buildEvaluationPrompt(in UserInput) Prompt {
	system := "You evaluate prompts written for language models. Reply with a single JSON scorecard object and nothing else:\n" +
		`{"score":0-100,"clarity":0-10,"specificity":0-10,"context":0-10,"structure":0-10,` +
		`"strengths":[string],"improvements":[string],"improvedPrompt":string}`
	return Prompt{System: system, User: in.Prompt}
}

func buildPortfolioPrompt(in UserInput) Prompt {
	system := "You build developer portfolios. Reply with a single JSON portfolio object and nothing else:\n" +
		`{"name":string,"headline":string,"summary":string,"skills":[string],` +
		`"projects":[{"name":string,"description":string}],"callToAction":string}`
	var sb strings.Builder
	sb.WriteString(in.Name)
	sb.WriteString("\n")
	if in.Role != "" {
		sb.WriteString("Role: " + in.Role + "\n")
	}
	if in.Bio != "" {
		sb.WriteString("Bio: " + in.Bio + "\n")
	}
	if len(in.Skills) > 0 {
		sb.WriteString("Skills: " + strings.Join(in.Skills, ", ") + "\n")
	}
	for _, p := range in.Projects {
		sb.WriteString("Project: " + p + "\n")
	}
	return Prompt{System: system, User: sb.String()}
}

var researchSections = []string{
	"Executive Summary",
	"Company Background",
	"Demographic Analysis",
	"Financial Landscape",
	"Digital Footprint",
	"Competitive Analysis",
	"Technology & Operations",
	"Market Opportunities & Risks",
}

func buildResearchPrompt(in UserInput) Prompt {
	var sb strings.Builder
	sb.WriteString("You are a business intelligence analyst. Output a Markdown report with a level-1 title and these sections:\n")
	for i, s := range researchSections {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, s))
	}
	user := in.Topic
	if in.Material != "" {
		sb.WriteString("Use only the provided context; write \"Not in context\" for anything it does not cover.\n")
		user = fmt.Sprintf("%s\n\nContext:\n%s", in.Topic, in.Material)
	}
	return Prompt{System: sb.String(), User: user}
}

func buildInsightsPrompt(in UserInput) Prompt {
	system := "You are a data analyst. Output a Markdown report with a level-1 title and sections for an executive summary, " +
		"key insights, data quality, notable patterns and recommended next steps. Quote concrete values from the statistics."
	user := "Dataset statistics:\n" + in.Material
	if in.Topic != "" {
		user = fmt.Sprintf("%s\n\n%s", in.Topic, user)
	}
	return Prompt{System: system, User: user}
}

func buildAnswerPrompt(in UserInput) Prompt {
	if in.Material == "" {
		return Prompt{System: "Answer the question concisely.", User: in.Topic}
	}
	system := "Answer the question using the numbered contexts. If they are insufficient, say so and then answer from general knowledge."
	return Prompt{System: system, User: fmt.Sprintf("%s\n\nContexts:\n%s", in.Topic, in.Material)}
}
