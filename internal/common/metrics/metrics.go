package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CallsRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_calls_routed_total",
			Help: "Total number of inbound call webhook transitions handled",
		},
		[]string{"tenant", "state"},
	)

	VoicemailsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_voicemails_recorded_total",
			Help: "Total number of voicemails persisted per mailbox",
		},
		[]string{"mailbox"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_notifications_sent_total",
			Help: "Total number of voicemail notifications delivered per channel",
		},
		[]string{"channel"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_notifications_failed_total",
			Help: "Total number of voicemail notification failures per channel",
		},
		[]string{"channel"},
	)

	MatchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_requests_total",
			Help: "Total number of match computations by outcome",
		},
		[]string{"status"},
	)

	MatchScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_score",
			Help:    "Distribution of computed compatibility scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP request handling in seconds",
		},
		[]string{"method", "path", "status"},
	)
)
