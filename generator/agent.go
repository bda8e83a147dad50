package generator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"ai_content_agents/metrics"
	"ai_content_agents/validate"
)

const (
	maxAttempts       = 2
	maxHistoryTurns   = 5
	defaultRetryDelay = 500 * time.Millisecond
)

// Agent turns validated user input into an Artifact, falling back to local
// templates when the remote model cannot deliver.
type Agent struct {
	llm        LLMClient
	provider   string
	model      string
	validator  *validate.Validator
	limiter    *rate.Limiter
	log        *logrus.Logger
	recorder   metrics.Recorder
	tracer     trace.Tracer
	now        func() time.Time
	newID      func() string
	retryDelay time.Duration
}

type Option func(*Agent)

// WithProvider names the backing model in artifacts, logs and metrics.
func WithProvider(provider, model string) Option {
	return func(a *Agent) {
		a.provider = provider
		a.model = model
	}
}

func WithValidator(v *validate.Validator) Option {
	return func(a *Agent) { a.validator = v }
}

// WithLimiter paces remote calls. Retries wait on the same limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(a *Agent) { a.limiter = l }
}

func WithLogger(l *logrus.Logger) Option {
	return func(a *Agent) { a.log = l }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(a *Agent) { a.recorder = r }
}

func WithTracer(t trace.Tracer) Option {
	return func(a *Agent) { a.tracer = t }
}

func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

func WithIDFunc(fn func() string) Option {
	return func(a *Agent) { a.newID = fn }
}

func WithRetryDelay(d time.Duration) Option {
	return func(a *Agent) { a.retryDelay = d }
}

func NewAgent(llm LLMClient, opts ...Option) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	a := &Agent{
		llm:        llm,
		provider:   "unknown",
		validator:  validate.NewValidator(nil),
		limiter:    rate.NewLimiter(rate.Inf, 1),
		log:        logrus.StandardLogger(),
		recorder:   metrics.Noop{},
		tracer:     otel.Tracer("ai_content_agents/generator"),
		now:        time.Now,
		newID:      uuid.NewString,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Provider returns the configured provider name.
func (a *Agent) Provider() string { return a.provider }

// Generate sanitizes and validates in, then asks the model. The only error
// returned is validate.Errors; remote failures yield a degraded Result.
func (a *Agent) Generate(ctx context.Context, in UserInput) (Result, error) {
	return a.Converse(ctx, in, nil)
}

// Converse is Generate with earlier turns attached to the prompt. Only the
// most recent turns are sent.
func (a *Agent) Converse(ctx context.Context, in UserInput, history []Turn) (Result, error) {
	start := a.now()
	in, errs := in.Prepare(a.validator)
	if len(errs) > 0 {
		a.recorder.ValidationFailure(string(in.Kind))
		return Result{}, errs
	}

	var (
		art      Artifact
		attempts int
	)
	prompt, err := BuildPrompt(in)
	if err == nil {
		prompt.History = historyMessages(history)
		art, attempts, err = a.complete(ctx, in.Kind, prompt)
	}

	res := Result{Attempts: attempts}
	if err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{
			"kind":     in.Kind,
			"provider": a.provider,
			"attempts": attempts,
		}).Warn("generation failed, serving fallback content")
		art = Fallback(in)
		res.Err = err
	} else {
		art.Provider = a.provider
		art.Model = a.model
		a.log.WithFields(logrus.Fields{"kind": in.Kind, "provider": a.provider}).Debug("generation succeeded")
	}
	art.ID = a.newID()
	art.CreatedAt = a.now()
	res.Artifact = art

	a.recorder.Generation(string(in.Kind), a.provider, res.Degraded(), a.now().Sub(start))
	return res, nil
}

// complete calls the model, retrying a retryable failure once.
func (a *Agent) complete(ctx context.Context, kind Kind, prompt Prompt) (Artifact, int, error) {
	var lastErr error
	attempts := 0
	for attempts < maxAttempts {
		if attempts > 0 {
			timer := time.NewTimer(a.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return Artifact{}, attempts, lastErr
			case <-timer.C:
			}
		}
		if err := a.limiter.Wait(ctx); err != nil {
			if lastErr == nil {
				lastErr = &RemoteError{Provider: a.provider, Err: err}
			}
			return Artifact{}, attempts, lastErr
		}

		attempts++
		art, err := a.attempt(ctx, kind, prompt, attempts)
		if err == nil {
			return art, attempts, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			break
		}
		a.log.WithError(err).WithField("kind", kind).Info("retrying model call")
	}
	return Artifact{}, attempts, lastErr
}

func (a *Agent) attempt(ctx context.Context, kind Kind, prompt Prompt, n int) (Artifact, error) {
	ctx, span := a.tracer.Start(ctx, "generator.complete", trace.WithAttributes(
		attribute.String("gen_ai.provider.name", a.provider),
		attribute.String("gen_ai.request.model", a.model),
		attribute.String("agents.kind", string(kind)),
		attribute.Int("agents.attempt", n),
	))
	defer span.End()

	raw, err := a.llm.Complete(ctx, prompt)
	if err == nil {
		var art Artifact
		art, err = PostProcess(kind, raw)
		if err == nil {
			return art, nil
		}
		err = &RemoteError{Provider: a.provider, Err: err}
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return Artifact{}, err
}

func historyMessages(turns []Turn) []Message {
	if len(turns) > maxHistoryTurns {
		turns = turns[len(turns)-maxHistoryTurns:]
	}
	msgs := make([]Message, 0, 2*len(turns))
	for _, t := range turns {
		msgs = append(msgs,
			Message{Role: "user", Content: t.Question},
			Message{Role: "assistant", Content: t.Answer},
		)
	}
	return msgs
}
