package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filerelay_notifications_total",
			Help: "Total number of processed queue notifications by outcome.",
		},
		[]string{"outcome"}, // success, skipped_malformed, failed
	)

	RelocationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "filerelay_relocations_total",
			Help: "Total number of objects copied to their canonical destination.",
		},
	)

	RelocationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filerelay_relocation_duration_seconds",
			Help:    "Duration of storage copy operations.",
			Buckets: prometheus.DefBuckets,
		},
	)

	ExtractionFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "filerelay_extraction_failures_total",
			Help: "Total number of field extraction failures.",
		},
	)

	RequeuesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filerelay_requeues_total",
			Help: "Total number of notification requeues by reason.",
		},
		[]string{"reason"},
	)

	DLQTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "filerelay_dlq_total",
			Help: "Total number of notifications moved to the dead-letter topic.",
		},
	)

	QueueBacklog = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "filerelay_queue_backlog",
			Help: "Number of notifications waiting in the worker channel.",
		},
	)

	TopicDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "filerelay_nsq_topic_depth",
			Help: "Depth of NSQ channels by topic and channel.",
		},
		[]string{"topic", "channel"},
	)
)

// MustRegister registers all filerelay collectors on the given registry.
func MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(
		NotificationsTotal,
		RelocationsTotal,
		RelocationDuration,
		ExtractionFailuresTotal,
		RequeuesTotal,
		DLQTotal,
		QueueBacklog,
		TopicDepth,
	)
}

// RecordNotification counts one processed notification by outcome.
func RecordNotification(outcome string) {
	NotificationsTotal.WithLabelValues(outcome).Inc()
}

// RecordRelocation counts one successful copy and observes its duration.
func RecordRelocation(d time.Duration) {
	RelocationsTotal.Inc()
	RelocationDuration.Observe(d.Seconds())
}

// RecordExtractionFailure counts one field extraction failure.
func RecordExtractionFailure() {
	ExtractionFailuresTotal.Inc()
}

// RecordRequeue counts one notification requeue by reason.
func RecordRequeue(reason string) {
	RequeuesTotal.WithLabelValues(reason).Inc()
}

// RecordDLQ counts one notification dead-lettered after exhausting retries.
func RecordDLQ() {
	DLQTotal.Inc()
}

// UpdateQueueBacklog sets the current worker-channel backlog gauge.
func UpdateQueueBacklog(depth float64) {
	QueueBacklog.Set(depth)
}

// UpdateTopicDepth sets the per-channel depth gauge.
func UpdateTopicDepth(topic, channel string, depth float64) {
	TopicDepth.WithLabelValues(topic, channel).Set(depth)
}
