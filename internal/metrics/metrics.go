package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssessmentsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toximeter_assessments_submitted_total",
			Help: "Total number of persisted assessments by tier",
		},
		[]string{"tier"},
	)

	AssessmentPercent = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "toximeter_assessment_percent",
			Help:    "Distribution of submitted toxicity percentages",
			Buckets: []float64{10, 25, 40, 50, 60, 75, 90, 100},
		},
	)

	ScoreFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toximeter_score_failures_total",
			Help: "Scoring requests rejected before a result was produced",
		},
		[]string{"code"},
	)

	ScorePreviews = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "toximeter_score_previews_total",
			Help: "Scores computed without persistence",
		},
	)

	QuestionCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toximeter_question_cache_lookups_total",
			Help: "Active question cache lookups by result",
		},
		[]string{"result"}, // hit|miss|error
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toximeter_http_requests_total",
			Help: "HTTP requests by route pattern and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "toximeter_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
