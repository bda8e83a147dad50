package research

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ai_content_agents/alchemyst"
	"ai_content_agents/generator"
	"ai_content_agents/metrics"
)

const (
	companySimilarity        = 0.8
	companyMinimumSimilarity = 0.4
)

// Generator produces artifacts; *generator.Agent implements it.
type Generator interface {
	Generate(ctx context.Context, in generator.UserInput) (generator.Result, error)
}

// Streamer runs a streamed hosted chat; *alchemyst.Client implements it.
type Streamer interface {
	GenerateStream(ctx context.Context, prompt string, fn alchemyst.StreamFunc) (string, error)
}

// CompanyResearch writes a company report from stored context when any
// matches, and from a streamed deep-research chat otherwise.
type CompanyResearch struct {
	agent  Generator
	store  alchemyst.ContextStore
	stream Streamer
	log    *logrus.Logger

	recorder metrics.Recorder
	now      func() time.Time
}

// CompanyOption configures a CompanyResearch.
type CompanyOption func(*CompanyResearch)

// WithCompanyRecorder records deep-research outcomes. The agent records its own.
func WithCompanyRecorder(r metrics.Recorder) CompanyOption {
	return func(c *CompanyResearch) { c.recorder = r }
}

// NewCompanyResearch wires the flow. store and stream may be nil, in which
// case the agent answers from its own knowledge.
func NewCompanyResearch(agent Generator, store alchemyst.ContextStore, stream Streamer, logger *logrus.Logger, opts ...CompanyOption) *CompanyResearch {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c := &CompanyResearch{agent: agent, store: store, stream: stream, log: logger, recorder: metrics.Noop{}, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run researches name. fn observes progress and may be nil. Like
// generator.Agent.Generate, only validation errors are returned.
func (c *CompanyResearch) Run(ctx context.Context, name string, fn alchemyst.StreamFunc) (generator.Result, error) {
	emit := func(t alchemyst.EventType, text string) {
		if fn != nil {
			fn(alchemyst.Event{Type: t, Text: text})
		}
	}

	raw := generator.UserInput{Kind: generator.KindCompanyResearch, Topic: name}
	in, errs := raw.Prepare(nil)
	if len(errs) > 0 {
		return generator.Result{}, errs
	}

	if material := c.searchContext(ctx, in.Topic); material != "" {
		emit(alchemyst.EventStatus, "Found stored context, writing report...")
		raw.Material = material
		res, err := c.agent.Generate(ctx, raw)
		if err != nil {
			return res, err
		}
		emit(alchemyst.EventContent, res.Artifact.Markdown)
		emit(alchemyst.EventStatus, "Context-enhanced analysis complete!")
		return res, nil
	}

	if c.stream != nil {
		emit(alchemyst.EventStatus, "Performing deep web research...")
		if res, ok := c.deepResearch(ctx, in, fn); ok {
			return res, nil
		}
		emit(alchemyst.EventStatus, "Deep research unavailable, falling back to the model...")
	}
	return c.agent.Generate(ctx, raw)
}

func (c *CompanyResearch) searchContext(ctx context.Context, query string) string {
	if c.store == nil {
		return ""
	}
	hits, err := c.store.SearchContext(ctx, alchemyst.SearchRequest{
		Query:                      query,
		SimilarityThreshold:        companySimilarity,
		MinimumSimilarityThreshold: companyMinimumSimilarity,
		Scope:                      "internal",
	})
	if err != nil {
		c.log.WithError(err).WithField("query", query).Warn("context search failed")
		return ""
	}
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		if s := strings.TrimSpace(h.Content); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func (c *CompanyResearch) deepResearch(ctx context.Context, in generator.UserInput, fn alchemyst.StreamFunc) (generator.Result, bool) {
	start := c.now()
	prompt, err := generator.BuildPrompt(in)
	if err != nil {
		return generator.Result{}, false
	}
	content, err := c.stream.GenerateStream(ctx, prompt.System+"\n\nBegin research on: "+prompt.User, fn)
	if err != nil {
		c.log.WithError(err).WithField("company", in.Topic).Warn("deep research stream failed")
		return generator.Result{}, false
	}
	art, err := generator.PostProcess(in.Kind, content)
	if err != nil {
		c.log.WithError(err).WithField("company", in.Topic).Warn("deep research returned unusable content")
		return generator.Result{}, false
	}
	art.ID = uuid.NewString()
	art.Provider = "alchemyst"
	art.CreatedAt = c.now()
	c.recorder.Generation(string(in.Kind), art.Provider, false, c.now().Sub(start))
	return generator.Result{Artifact: art, Attempts: 1}, true
}
