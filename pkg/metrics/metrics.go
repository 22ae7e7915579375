package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsCreated counts persisted notifications by type.
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peacelink_notifications_created_total",
			Help: "Total number of notifications created",
		},
		[]string{"type"},
	)

	// ChannelSends counts channel delivery attempts by channel and outcome (sent|failed|skipped).
	ChannelSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peacelink_channel_sends_total",
			Help: "Total number of channel delivery attempts",
		},
		[]string{"channel", "result"},
	)

	// BroadcastFanout measures the wall time of emergency alert fan-outs.
	BroadcastFanout = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "peacelink_broadcast_fanout_seconds",
			Help:    "Duration of emergency alert fan-out",
			Buckets: prometheus.DefBuckets,
		},
	)

	// BroadcastRecipients records resolved recipient counts per broadcast.
	BroadcastRecipients = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "peacelink_broadcast_recipients",
			Help:    "Number of recipients resolved per emergency broadcast",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "peacelink_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
