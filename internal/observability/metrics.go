package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "deckwatch",
		Name:      "frames_processed_total",
		Help:      "Total number of frames processed",
	}, []string{"stream_id"})

	CardsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "deckwatch",
		Name:      "cards_detected_total",
		Help:      "Total number of card detections above the confidence threshold",
	}, []string{"stream_id"})

	CardsConfirmed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "deckwatch",
		Name:      "cards_confirmed_total",
		Help:      "Total number of card tracks promoted to confirmed",
	}, []string{"stream_id"})

	EVRequestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "deckwatch",
		Name:      "ev_request_failures_total",
		Help:      "Total number of failed expected value engine requests",
	}, []string{"action"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "deckwatch",
		Name:      "inference_duration_seconds",
		Help:      "Duration of ML inference stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "deckwatch",
		Name:      "queue_depth",
		Help:      "Number of pending frame tasks in queue",
	})

	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "deckwatch",
		Name:      "active_streams",
		Help:      "Number of currently active video streams",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "deckwatch",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "deckwatch",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
