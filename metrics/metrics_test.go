package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCountsGenerations(t *testing.T) {
	rec := Record().(*prometheusRecorder)

	before := testutil.ToFloat64(rec.generationsCounter.WithLabelValues("tweet", "mock", OutcomeFallback))
	rec.Generation("tweet", "mock", true, 20*time.Millisecond)
	rec.Generation("tweet", "mock", false, 10*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(rec.generationsCounter.WithLabelValues("tweet", "mock", OutcomeFallback)))
	assert.GreaterOrEqual(t, testutil.ToFloat64(rec.generationsCounter.WithLabelValues("tweet", "mock", OutcomeSuccess)), 1.0)
}

func TestRecorderContextIngest(t *testing.T) {
	rec := Record().(*prometheusRecorder)

	okBefore := testutil.ToFloat64(rec.contextIngestCounter.WithLabelValues(OutcomeSuccess))
	errBefore := testutil.ToFloat64(rec.contextIngestCounter.WithLabelValues(OutcomeError))
	rec.ContextIngest(nil)
	rec.ContextIngest(errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(rec.contextIngestCounter.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(rec.contextIngestCounter.WithLabelValues(OutcomeError)))
}

func TestHandlerExposesMetrics(t *testing.T) {
	Record().ValidationFailure("portfolio")

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), ValidationFailuresMetricName)
}
