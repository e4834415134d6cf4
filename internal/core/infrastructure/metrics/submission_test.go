package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewSubmissionMetrics(reg)
	require.NoError(t, err)

	m.ObserveSubmission("join", "", true, 1)
	m.ObserveSubmission("join", "CapacityFull", false, 1)
	m.IncRetry("join")
	m.IncRetry("join")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("join", "success", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("join", "failure", "CapacityFull")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.retries.WithLabelValues("join")))

	again, err := NewSubmissionMetrics(reg)
	require.NoError(t, err)
	again.IncRetry("join")
	assert.Equal(t, 3.0, testutil.ToFloat64(m.retries.WithLabelValues("join")))
}

func TestNilSubmissionMetrics(t *testing.T) {
	var m *SubmissionMetrics
	assert.NotPanics(t, func() {
		m.ObserveSubmission("join", "", true, 1)
		m.IncRetry("join")
	})
}
