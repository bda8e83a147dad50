package generator

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostProcessTweets(t *testing.T) {
	long := strings.Repeat("a", 300)
	raw := "1. First tweet #go\n\n2) \"Second tweet\"\n- " + long

	art, err := PostProcess(KindTweet, raw)
	require.NoError(t, err)
	require.Len(t, art.Items, 3)
	assert.Equal(t, "First tweet #go", art.Items[0])
	assert.Equal(t, "Second tweet", art.Items[1])
	assert.Equal(t, maxTweetLength, utf8.RuneCountInString(art.Items[2]))
}

func TestPostProcessPresentation(t *testing.T) {
	raw := "# Go at Scale\n\n## Why Go\n- fast\n\n## Concurrency\n- goroutines\n\nSlide 3: Wrap up\n"

	art, err := PostProcess(KindPresentation, raw)
	require.NoError(t, err)
	assert.Equal(t, "Go at Scale", art.Title)
	if diff := cmp.Diff([]string{"Why Go", "Concurrency", "Wrap up"}, art.Items); diff != "" {
		t.Errorf("slides mismatch (-want +got):\n%s", diff)
	}

	_, err = PostProcess(KindPresentation, "just a paragraph")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestPostProcessPortfolioFromFence(t *testing.T) {
	raw := "```json\n{\"name\":\"Ada\",\"headline\":\"Engineer\",\"summary\":\"s\",\"skills\":[\"Go\"],\"projects\":[]}\n```"

	art, err := PostProcess(KindPortfolio, raw)
	require.NoError(t, err)
	assert.Equal(t, "Ada", art.Title)
	assert.Equal(t, "Engineer", art.Digest)

	var p Portfolio
	require.NoError(t, json.Unmarshal(art.Data, &p))
	assert.Equal(t, []string{"Go"}, p.Skills)
	assert.Equal(t, string(art.Data), art.Text())
}

func TestPostProcessEvaluationNeedsScore(t *testing.T) {
	_, err := PostProcess(KindPromptEvaluation, `Here you go: {"clarity": 5}`)
	assert.ErrorIs(t, err, ErrMalformedResponse)

	art, err := PostProcess(KindPromptEvaluation, `Here you go: {"score": 64, "improvements": ["add examples"]} thanks`)
	require.NoError(t, err)
	assert.Equal(t, "Prompt score 64/100", art.Title)
	assert.Equal(t, []string{"add examples"}, art.Items)
}

func TestPostProcessMarkdown(t *testing.T) {
	art, err := PostProcess(KindCompanyResearch, "# Acme report\n\nAcme sells anvils.\n\n## Executive Summary\n")
	require.NoError(t, err)
	assert.Equal(t, "Acme report", art.Title)
	assert.Equal(t, "Acme sells anvils.", art.Digest)
}

func TestPostProcessEmpty(t *testing.T) {
	for _, kind := range Kinds {
		_, err := PostProcess(kind, "  \n ")
		assert.ErrorIs(t, err, ErrMalformedResponse, kind)
	}
}

func validInputs() map[Kind]UserInput {
	return map[Kind]UserInput{
		KindTweet:            {Kind: KindTweet, Topic: "Go generics", Tone: "playful"},
		KindPresentation:     {Kind: KindPresentation, Topic: "Edge computing", Count: 5},
		KindWebsiteAudit:     {Kind: KindWebsiteAudit, URL: "https://example.com"},
		KindV0Prompt:         {Kind: KindV0Prompt, WebsiteName: "Green Leaf", Industry: "restaurant", AboutInfo: "A plant based restaurant in the city centre."},
		KindPromptEvaluation: {Kind: KindPromptEvaluation, Prompt: "You are a tutor. Explain recursion with an example in markdown."},
		KindPortfolio:        {Kind: KindPortfolio, Name: "Ada Lovelace", Role: "Engineer", Skills: []string{"Go"}, Projects: []string{"Engine"}},
		KindCompanyResearch:  {Kind: KindCompanyResearch, Topic: "Acme"},
		KindDataInsights:     {Kind: KindDataInsights, Material: "rows: 10"},
		KindAnswer:           {Kind: KindAnswer, Topic: "What is ingest?"},
	}
}

func TestFallbackCoversEveryKind(t *testing.T) {
	inputs := validInputs()
	for _, kind := range Kinds {
		in, ok := inputs[kind]
		require.True(t, ok, kind)
		prepared, errs := in.Prepare(nil)
		require.Empty(t, errs, kind)

		art := Fallback(prepared)
		assert.True(t, art.Fallback, kind)
		assert.Equal(t, kind, art.Kind)
		assert.NotEqual(t, "Content unavailable", art.Title, kind)
		assert.NotEmpty(t, art.Text(), kind)
	}
}

func TestFallbackPresentationHonoursCount(t *testing.T) {
	art := Fallback(UserInput{Kind: KindPresentation, Topic: "Edge computing", Count: 5})
	require.Len(t, art.Items, 5)
	assert.Equal(t, "Q&A", art.Items[4])

	art = Fallback(UserInput{Kind: KindPresentation, Topic: "Edge computing", Count: 15})
	assert.Len(t, art.Items, 15)
}

func TestFallbackPortfolioUsesInput(t *testing.T) {
	art := Fallback(validInputs()[KindPortfolio])

	var p Portfolio
	require.NoError(t, json.Unmarshal(art.Data, &p))
	assert.Equal(t, "Ada Lovelace", p.Name)
	assert.Equal(t, "Engineer", p.Headline)
	require.Len(t, p.Projects, 1)
	assert.Equal(t, "Engine", p.Projects[0].Name)
}

func TestHeuristicEvaluation(t *testing.T) {
	weak := HeuristicEvaluation("write code")
	strong := HeuristicEvaluation("You are a senior Go reviewer. Review the diff below and reply in markdown as a bullet list. " +
		"For example: '- handle the error'. You must not rewrite the code and should limit yourself to ten points.")

	require.NotNil(t, weak.Score)
	require.NotNil(t, strong.Score)
	assert.Greater(t, *strong.Score, *weak.Score)
	assert.LessOrEqual(t, *strong.Score, 100)
	assert.NotEmpty(t, weak.Improvements)
	assert.Len(t, strong.Strengths, 4)
}

func TestEvaluationDiff(t *testing.T) {
	e := Evaluation{ImprovedPrompt: "Explain recursion to a beginner with one example."}
	out := e.Diff("Explain recursion.")
	assert.Contains(t, out, "beginner")
	assert.Empty(t, Evaluation{}.Diff("anything"))
}
