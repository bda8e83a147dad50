package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MockLLM is an offline stand-in used for local runs and tests; it never calls
// a remote model and answers in the shape each kind expects.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	subject := firstLine(prompt.User)
	var sb strings.Builder
	switch {
	case strings.Contains(prompt.System, "tweets"):
		for i := 1; i <= 3; i++ {
			sb.WriteString(fmt.Sprintf("%d. Thought #%d on %s #mock\n", i, i, subject))
		}
	case strings.Contains(prompt.System, "JSON portfolio"):
		sb.WriteString(`{"name":"Mock","headline":` + jsonString(subject) + `,"summary":"mock portfolio","skills":[],"projects":[]}`)
	case strings.Contains(prompt.System, "JSON scorecard"):
		sb.WriteString(`{"score":70,"clarity":7,"specificity":7,"context":7,"structure":7,"strengths":["mock"],"improvements":["mock"],"improvedPrompt":` + jsonString(subject) + `}`)
	default:
		sb.WriteString("# Mock output\n\n")
		sb.WriteString("Generated locally without a model.\n\n")
		sb.WriteString("## Input\n\n")
		sb.WriteString(prompt.User)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func jsonString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
