package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPRequestsTotal counts HTTP requests by route, method and status
var HTTPRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "parley_http_requests_total",
		Help: "Total number of HTTP requests handled by the service API",
	},
	[]string{"path", "method", "status"},
)

// HTTPRequestDuration records HTTP request latency by route and method
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "parley_http_request_duration_seconds",
		Help:    "Latency in seconds of HTTP requests handled by the service API",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"path", "method"},
)

// FeedbacksSubmitted counts message feedback submissions by rating
var FeedbacksSubmitted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "parley_message_feedbacks_total",
		Help: "Total number of message feedback submissions",
	},
	[]string{"rating"},
)

// SuggestionsGenerated counts suggested-question generations
var SuggestionsGenerated = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "parley_suggested_questions_total",
		Help: "Total number of suggested-question generations",
	},
)

// AudioTranscriptions counts audio transcription requests
var AudioTranscriptions = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "parley_audio_transcriptions_total",
		Help: "Total number of audio transcription requests",
	},
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal, HTTPRequestDuration)
	prometheus.MustRegister(FeedbacksSubmitted, SuggestionsGenerated, AudioTranscriptions)
}
