package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
	"github.com/sanity-io/litter"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"ai_content_agents/alchemyst"
	"ai_content_agents/config"
	"ai_content_agents/docstore"
	"ai_content_agents/generator"
	"ai_content_agents/metrics"
	"ai_content_agents/publisher"
	"ai_content_agents/validate"
)

// app holds what every command shares: flags, the merged configuration and
// the terminal streams.
type app struct {
	configPath string
	verbose    bool
	overrides  config.Overrides
	html       bool
	// save is set when --out was given explicitly.
	save     bool
	docsKey  string
	remember bool

	cfg    *config.Config
	log    *logrus.Logger
	in     *bufio.Reader
	stdout io.Writer
	stderr io.Writer

	shutdownTracing func(context.Context) error
}

func (a *app) setup(ctx context.Context) error {
	a.log = logrus.New()
	a.log.SetOutput(a.stderr)
	a.log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if a.verbose {
		a.log.SetLevel(logrus.DebugLevel)
	}

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	cfg.Apply(a.overrides)
	a.cfg = cfg

	shutdown, err := setupTracing(ctx, cfg.Tracing.Endpoint)
	if err != nil {
		return err
	}
	a.shutdownTracing = shutdown
	a.log.WithFields(logrus.Fields{"provider": cfg.LLM.Provider, "model": cfg.LLM.Model}).Debug("configuration loaded")
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if a.shutdownTracing == nil {
		return nil
	}
	return a.shutdownTracing(ctx)
}

func (a *app) newAgent() (*generator.Agent, error) {
	if err := a.cfg.RequireLLMKey(); err != nil {
		return nil, err
	}
	llm, err := generator.NewLLM(&generator.LLMSettings{
		Provider:    a.cfg.LLM.Provider,
		Model:       a.cfg.LLM.Model,
		APIKey:      a.cfg.LLM.APIKey,
		BaseURL:     a.cfg.LLM.BaseURL,
		MaxTokens:   a.cfg.LLM.MaxTokens,
		Temperature: a.cfg.LLM.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return generator.NewAgent(llm,
		generator.WithProvider(a.cfg.LLM.Provider, a.cfg.LLM.Model),
		generator.WithValidator(validate.NewValidator(a.cfg.Industries)),
		generator.WithLimiter(newLimiter(a.cfg.RateLimit)),
		generator.WithLogger(a.log),
		generator.WithRecorder(metrics.Record()),
	)
}

func newLimiter(rl config.RateLimit) *rate.Limiter {
	if rl.RPS < 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rl.RPS), rl.Burst)
}

// alchemystClient returns nil without error when no key is configured and
// the caller can do without the hosted context store.
func (a *app) alchemystClient(required bool) (*alchemyst.Client, error) {
	if err := a.cfg.RequireAlchemystKey(); err != nil {
		if required {
			return nil, err
		}
		a.log.Debug("alchemyst key not set, hosted context disabled")
		return nil, nil
	}
	return alchemyst.New(a.cfg.Alchemyst.APIKey, a.cfg.Alchemyst.BaseURL, nil)
}

// ask returns value when set and otherwise prompts for it on stdin.
func (a *app) ask(value, label string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	fmt.Fprintf(a.stdout, "Enter the %s: ", label)
	line, _ := a.in.ReadString('\n')
	return strings.TrimSpace(line)
}

// askList prompts for a comma separated list when values is empty.
func (a *app) askList(values []string, label string) []string {
	if len(values) > 0 {
		return values
	}
	raw := a.ask("", label+" (comma separated)")
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// emit prints the artifact, warns when it is template content and writes it
// to disk when --out or --html was given.
func (a *app) emit(ctx context.Context, res generator.Result) error {
	if w := res.Warning(); w != "" {
		fmt.Fprintln(a.stderr, "Warning: "+w)
		a.log.WithError(res.Err).Debug("remote failure behind fallback")
	}
	if a.verbose {
		a.log.Debug(litter.Sdump(res.Artifact))
	}

	art := res.Artifact
	switch {
	case art.Kind == generator.KindTweet:
		for i, t := range art.Items {
			fmt.Fprintf(a.stdout, "%d. %s\n\n", i+1, t)
		}
	default:
		fmt.Fprintln(a.stdout, art.Text())
	}

	if !a.save && !a.html && a.docsKey == "" && !a.remember {
		return nil
	}
	return a.publish(ctx, art)
}

func (a *app) publish(ctx context.Context, art generator.Artifact) error {
	params := publisher.Params{Dir: a.cfg.OutputDir, HTML: a.html}
	var docs publisher.DocWriter
	if a.docsKey != "" {
		key, err := parseDocsKey(a.docsKey)
		if err != nil {
			return err
		}
		store, err := a.openDocs()
		if err != nil {
			return err
		}
		defer store.Close()
		docs, params.Docs = store, &key
	}
	var ctxStore alchemyst.ContextStore
	if a.remember {
		client, err := a.alchemystClient(true)
		if err != nil {
			return err
		}
		ctxStore, params.Context = client, true
	}

	out, err := publisher.New(docs, ctxStore, a.log).Publish(ctx, art, params)
	if err != nil {
		return err
	}
	for _, p := range out.Paths {
		fmt.Fprintln(a.stderr, "Saved "+p)
	}
	if out.Docs != nil {
		fmt.Fprintln(a.stderr, "Stored documentation section "+out.Docs.String())
	}
	if out.Context {
		fmt.Fprintln(a.stderr, "Added to hosted context")
	}
	return nil
}

// parseDocsKey reads owner/repo/section.
func parseDocsKey(s string) (docstore.Key, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 || lo.Contains(parts, "") {
		return docstore.Key{}, fmt.Errorf("invalid documentation key %q, want owner/repo/section", s)
	}
	return docstore.Key{Owner: parts[0], Repo: parts[1], Section: parts[2]}, nil
}

func (a *app) openDocs() (*docstore.Store, error) {
	return docstore.Open(a.cfg.DocsDB)
}
