package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ethereum-optimism/infra/op-scenario/types"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "nil error",
			err:  nil,
		},
		{
			name: "simple error",
			err:  errors.New("test error"),
		},
		{
			name: "error with special chars",
			err:  errors.New("test@error#123"),
		},
		{
			name: "error with multiple spaces",
			err:  errors.New("test   error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			validLabelRegex := regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
			if !validLabelRegex.MatchString(result) {
				t.Errorf("errLabel() = %v, is not a valid Prometheus label", result)
			}
		})
	}
}

func TestRecordErrorDetails(t *testing.T) {
	RecordErrorDetails("test", nil)
	RecordErrorDetails("test", errors.New("sample error"))
	assert.Equal(t, 1.0, testutil.ToFloat64(errorsTotal.WithLabelValues("test.sample_error")))
}

func TestRecordClause(t *testing.T) {
	RecordClause("MetricsClass", "input", types.TestStatusPass, time.Second)
	RecordClause("MetricsClass", "input", types.TestStatusFail, time.Second)
	RecordClause("MetricsClass", "input", types.TestStatusError, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(clausesTotal.WithLabelValues("MetricsClass", "input", "pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(clausesTotal.WithLabelValues("MetricsClass", "input", "fail")))
	assert.Equal(t, 0.0, testutil.ToFloat64(clausesTotal.WithLabelValues("MetricsClass", "input", "error")))
}

func TestRecordCase(t *testing.T) {
	RecordCase("MetricsCase", types.TestStatusSkip)
	assert.Equal(t, 1.0, testutil.ToFloat64(casesTotal.WithLabelValues("MetricsCase", "skip")))
}

func TestRecordCollection(t *testing.T) {
	RecordCollection("metrics-collection", "run1", types.RunSummary{Total: 5, Failed: 2, Skipped: 1}, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(collectionResults.WithLabelValues("metrics-collection", "run1", "fail")))
	assert.Equal(t, 5.0, testutil.ToFloat64(collectionTestTotal.WithLabelValues("metrics-collection", "run1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collectionTestFailed.WithLabelValues("metrics-collection", "run1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collectionTestSkipped.WithLabelValues("metrics-collection", "run1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collectionDuration.WithLabelValues("metrics-collection", "run1")))
}
