package metrics

import "time"

const (
	GenerationsMetricName          = "agents_generations_total"
	GenerationsMetricDescription   = "The total number of generation requests by outcome"
	GenerationsMetricLabelKind     = "kind"
	GenerationsMetricLabelProvider = "provider"
	GenerationsMetricLabelOutcome  = "outcome"

	GenerationDurationMetricName        = "agents_generation_duration_seconds"
	GenerationDurationMetricDescription = "Time spent producing an artifact, fallback included"

	ValidationFailuresMetricName        = "agents_validation_failures_total"
	ValidationFailuresMetricDescription = "The total number of requests rejected by input validation"

	ContextIngestMetricName         = "agents_context_ingest_total"
	ContextIngestMetricDescription  = "The total number of documents sent to the context store"
	ContextIngestMetricLabelOutcome = "outcome"

	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

type Recorder interface {
	Generation(kind, provider string, fallback bool, elapsed time.Duration)
	ValidationFailure(kind string)
	ContextIngest(err error)
}

// Noop discards everything. Tests and library callers that do not export
// metrics use it.
type Noop struct{}

func (Noop) Generation(string, string, bool, time.Duration) {}
func (Noop) ValidationFailure(string) {}
func (Noop) ContextIngest(error) {}
