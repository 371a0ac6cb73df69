package gemini

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyboard_server_ai_requests_total",
			Help: "Total number of requests to the generative API.",
		},
		[]string{"model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyboard_server_ai_request_duration_seconds",
			Help:    "Histogram of generative API request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
	videoPollIterations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyboard_server_video_poll_iterations_total",
			Help: "Total number of status polls issued for video operations.",
		},
		[]string{"model"},
	)
	videoGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyboard_server_video_generation_duration_seconds",
			Help:    "Histogram of end-to-end video generation durations, polling included.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 8),
		},
		[]string{"model", "status"},
	)
)
