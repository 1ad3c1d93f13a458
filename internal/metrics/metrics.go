package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ventas_questions_total",
			Help: "Total number of questions answered, by intent and presentation mode",
		},
		[]string{"intent", "mode"},
	)

	UnsafeQueriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ventas_unsafe_queries_total",
			Help: "Total number of queries rejected by the safety validator",
		},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ventas_query_duration_seconds",
			Help:    "Duration of query execution in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"intent"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ventas_cache_hits_total",
			Help: "Result cache lookups, labelled hit or miss",
		},
		[]string{"result"},
	)
)

// ObserveQuestion counts an answered question.
func ObserveQuestion(intent, mode string) {
	QuestionsTotal.WithLabelValues(intent, mode).Inc()
}

// ObserveUnsafe counts a rejected query.
func ObserveUnsafe() {
	UnsafeQueriesTotal.Inc()
}

// ObserveQuery records how long a query for intent took, measured from start.
func ObserveQuery(intent string, start time.Time) {
	QueryDuration.WithLabelValues(intent).Observe(time.Since(start).Seconds())
}

// ObserveCache counts a cache lookup.
func ObserveCache(hit bool) {
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CacheLookups.WithLabelValues("miss").Inc()
}
