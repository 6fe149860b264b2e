// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the stats engine and its HTTP admin
// surface: event throughput, subscriber fan-out health, and request
// latency for the admin API.

var (
	// EventsProcessedTotal counts every mutation the event processor
	// accepts, labeled by action (set, inc, dec, add, sub, remove,
	// hidden) and scope (global or source).
	EventsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stats_events_processed_total",
			Help: "Total number of stat events processed",
		},
		[]string{"action", "scope"},
	)

	// RegularSuppressedTotal counts SET events on a REGULAR node whose
	// value did not change, and therefore produced no wire traffic.
	RegularSuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stats_regular_suppressed_total",
			Help: "Total number of REGULAR stat writes suppressed as no-ops",
		},
	)

	// MalformedValueDroppedTotal counts SET events dropped because the
	// value was not valid UTF-8, distinct from a REGULAR no-op
	// suppression.
	MalformedValueDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stats_malformed_value_dropped_total",
			Help: "Total number of stat writes dropped for non-UTF-8 values",
		},
	)

	// SubscribersConnected is the current number of registered stat
	// subscribers.
	SubscribersConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stats_subscribers_connected",
			Help: "Current number of connected stat subscribers",
		},
	)

	// SubscriberQueueBytes samples a subscriber's queued byte count at
	// delivery time.
	SubscriberQueueBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stats_subscriber_queue_bytes",
			Help:    "Distribution of subscriber queue sizes in bytes at delivery time",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)

	// SubscriberEvictionsTotal counts subscribers removed for exceeding
	// a queue cap, labeled by reason.
	SubscriberEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stats_subscriber_evictions_total",
			Help: "Total number of subscribers evicted, by reason",
		},
		[]string{"reason"},
	)

	// PurgeRemovedTotal counts sources removed by the periodic purge
	// sweep.
	PurgeRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stats_purge_removed_total",
			Help: "Total number of sources removed by periodic purge",
		},
	)

	// APIRequestsTotal and APIRequestDuration instrument the admin HTTP
	// surface (internal/httpapi).
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stats_api_requests_total",
			Help: "Total number of admin API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stats_api_request_duration_seconds",
			Help:    "Duration of admin API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stats_api_active_requests",
			Help: "Current number of in-flight admin API requests",
		},
	)

	// RelayPublishTotal and RelayPublishErrors instrument the nats-tag
	// relay mirror.
	RelayPublishTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stats_relay_publish_total",
			Help: "Total number of events mirrored to the relay mesh",
		},
	)

	RelayPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stats_relay_publish_errors_total",
			Help: "Total number of relay mirror publish failures",
		},
	)

	RelayCircuitOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stats_relay_circuit_open",
			Help: "1 when the relay mirror's circuit breaker is open, else 0",
		},
	)
)

// RecordEvent increments EventsProcessedTotal for one accepted mutation.
func RecordEvent(action, scope string) {
	EventsProcessedTotal.WithLabelValues(action, scope).Inc()
}

// RecordRegularSuppressed increments RegularSuppressedTotal.
func RecordRegularSuppressed() {
	RegularSuppressedTotal.Inc()
}

// RecordMalformedValueDropped increments MalformedValueDroppedTotal.
func RecordMalformedValueDropped() {
	MalformedValueDroppedTotal.Inc()
}

// RecordSubscriberEviction increments SubscriberEvictionsTotal for reason.
func RecordSubscriberEviction(reason string) {
	SubscriberEvictionsTotal.WithLabelValues(reason).Inc()
}

// RecordPurgeRemoved increments PurgeRemovedTotal by n.
func RecordPurgeRemoved(n int) {
	PurgeRemovedTotal.Add(float64(n))
}

// RecordAPIRequest records one completed admin API request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements APIActiveRequests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRelayPublish records the outcome of one relay mirror publish.
func RecordRelayPublish(err error) {
	RelayPublishTotal.Inc()
	if err != nil {
		RelayPublishErrors.Inc()
	}
}

// SetRelayCircuitOpen reflects the relay circuit breaker's state.
func SetRelayCircuitOpen(open bool) {
	if open {
		RelayCircuitOpen.Set(1)
	} else {
		RelayCircuitOpen.Set(0)
	}
}
