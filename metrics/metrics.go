package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-scenario/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "scenario"
)

var (
	Debug                bool = true
	validResults              = []types.TestStatus{types.TestStatusPass, types.TestStatusFail, types.TestStatusSkip}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	clausesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "clauses_total",
		Help:      "Count of executed composite test clauses",
	}, []string{
		"class",
		"role",
		"result",
	})

	clauseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "clause_duration_seconds",
		Help:      "Duration of composite test clauses",
		Buckets:   prometheus.DefBuckets,
	}, []string{
		"class",
		"role",
	})

	casesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "cases_total",
		Help:      "Count of executed composite test cases",
	}, []string{
		"class",
		"result",
	})

	collectionResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "collection_results",
		Help:      "Result of a collection run",
	}, []string{
		"collection",
		"run_id",
		"result",
	})

	collectionTestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "collection_test_total",
		Help:      "Total number of results in a collection run",
	}, []string{
		"collection",
		"run_id",
	})

	collectionTestFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "collection_test_failed",
		Help:      "Number of failed results in a collection run",
	}, []string{
		"collection",
		"run_id",
	})

	collectionTestSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "collection_test_skipped",
		Help:      "Number of skipped results in a collection run",
	}, []string{
		"collection",
		"run_id",
	})

	collectionDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "collection_duration",
		Help:      "Wall clock duration of a collection run",
	}, []string{
		"collection",
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordClause records the result of one clause.
func RecordClause(class string, role string, result types.TestStatus, duration time.Duration) {
	if !isValidResult(result) {
		log.Error("RecordClause - invalid result", "result", result)
		return
	}
	clausesTotal.WithLabelValues(class, role, string(result)).Inc()
	clauseDuration.WithLabelValues(class, role).Observe(duration.Seconds())
}

// RecordCase records the overall result of one composite test case.
func RecordCase(class string, result types.TestStatus) {
	if !isValidResult(result) {
		log.Error("RecordCase - invalid result", "result", result)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "cases_total",
			"class", class,
			"result", result)
	}
	casesTotal.WithLabelValues(class, string(result)).Inc()
}

// RecordCollection records the aggregated outcome of a collection run.
func RecordCollection(collection string, runID string, summary types.RunSummary, wallClock time.Duration) {
	collectionResults.WithLabelValues(collection, runID, summary.Status().String()).Set(1)
	collectionTestTotal.WithLabelValues(collection, runID).Add(float64(summary.Total))
	collectionTestFailed.WithLabelValues(collection, runID).Add(float64(summary.Failed))
	collectionTestSkipped.WithLabelValues(collection, runID).Add(float64(summary.Skipped))
	collectionDuration.WithLabelValues(collection, runID).Set(wallClock.Seconds())
}

func isValidResult(result types.TestStatus) bool {
	return slices.Contains(validResults, result)
}
