package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveSubmission("ok")
	m.ObserveSubmission("ok")
	m.ObserveSubmission("already_scored")
	m.ObserveRecomputeConflict()
	m.ObserveFeedbackFailure()
	m.SetSubscribers(3)
	m.ObserveLeaderboardBuild(12 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("already_scored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recomputeConflict))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.feedbackFailures))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.liveSubscribers))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveSubmission("invalid")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `nmj_scoring_submissions_total{result="invalid"} 1`)
	assert.Contains(t, string(body), "nmj_live_subscribers")
}
