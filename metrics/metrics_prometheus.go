package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	recorder = (&prometheusRecorder{}).init()
)

type prometheusRecorder struct {
	generationsCounter        *prometheus.CounterVec
	generationDuration        *prometheus.HistogramVec
	validationFailuresCounter *prometheus.CounterVec
	contextIngestCounter      *prometheus.CounterVec
}

func (in *prometheusRecorder) Generation(kind, provider string, fallback bool, elapsed time.Duration) {
	outcome := OutcomeSuccess
	if fallback {
		outcome = OutcomeFallback
	}
	in.generationsCounter.WithLabelValues(kind, provider, outcome).Inc()
	in.generationDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (in *prometheusRecorder) ValidationFailure(kind string) {
	in.validationFailuresCounter.WithLabelValues(kind).Inc()
}

func (in *prometheusRecorder) ContextIngest(err error) {
	if err != nil {
		in.contextIngestCounter.WithLabelValues(OutcomeError).Inc()
		return
	}

	in.contextIngestCounter.WithLabelValues(OutcomeSuccess).Inc()
}

func (in *prometheusRecorder) init() Recorder {
	in.generationsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: GenerationsMetricName,
		Help: GenerationsMetricDescription,
	}, []string{GenerationsMetricLabelKind, GenerationsMetricLabelProvider, GenerationsMetricLabelOutcome})

	in.generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    GenerationDurationMetricName,
		Help:    GenerationDurationMetricDescription,
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{GenerationsMetricLabelKind})

	in.validationFailuresCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: ValidationFailuresMetricName,
		Help: ValidationFailuresMetricDescription,
	}, []string{GenerationsMetricLabelKind})

	in.contextIngestCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: ContextIngestMetricName,
		Help: ContextIngestMetricDescription,
	}, []string{ContextIngestMetricLabelOutcome})

	return in
}

func Record() Recorder {
	return recorder
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
