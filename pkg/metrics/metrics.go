package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	contractExtraction = "contract_extraction"

	extractionsTriggeredTotal = "extractions_triggered_total"
	extractionsFinishedTotal  = "extractions_finished_total"
	extractionDurationSeconds = "extraction_duration_seconds"
	clausesPersistedTotal     = "clauses_persisted_total"

	triggerOutcomeLabel = "outcome" // created | reused | retried | conflict
	finishStatusLabel   = "status"  // completed | failed | cancelled
)

var extractionsTriggeredMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: contractExtraction,
		Name:      extractionsTriggeredTotal,
		Help:      "number of trigger calls partitioned by outcome",
	},
	[]string{triggerOutcomeLabel},
)

var extractionsFinishedMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: contractExtraction,
		Name:      extractionsFinishedTotal,
		Help:      "number of extraction runs that reached a terminal state",
	},
	[]string{finishStatusLabel},
)

var extractionDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: contractExtraction,
		Name:      extractionDurationSeconds,
		Help:      "wall time of the extraction pipeline",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	},
	[]string{finishStatusLabel},
)

var clausesPersistedMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: contractExtraction,
		Name:      clausesPersistedTotal,
		Help:      "number of clause rows persisted by the worker",
	},
)

func IncreaseExtractionsTriggered(outcome string) {
	extractionsTriggeredMetric.With(prometheus.Labels{triggerOutcomeLabel: outcome}).Inc()
}

func ObserveExtractionFinished(status string, seconds float64) {
	labels := prometheus.Labels{finishStatusLabel: status}
	extractionsFinishedMetric.With(labels).Inc()
	extractionDurationMetric.With(labels).Observe(seconds)
}

func AddClausesPersisted(count int) {
	clausesPersistedMetric.Add(float64(count))
}

// Handler exposes the default prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func init() {
	prometheus.MustRegister(
		extractionsTriggeredMetric,
		extractionsFinishedMetric,
		extractionDurationMetric,
		clausesPersistedMetric,
	)
}
