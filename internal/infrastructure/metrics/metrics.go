// Package metrics defines Prometheus metrics for real-time delivery.
//
// Metrics are registered with the default Prometheus registry and served on
// /metrics by promhttp.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PollTicksTotal counts poller ticks by stream and outcome.
	PollTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_realtime_poll_ticks_total",
			Help: "Total poll ticks by stream and outcome.",
		},
		[]string{"stream", "outcome"},
	)

	// PollDurationSeconds is a histogram of poll query time by stream.
	PollDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_realtime_poll_duration_seconds",
			Help:    "Duration of a single poll tick in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"stream"},
	)

	// EventsEmittedTotal counts events a poller handed to its room.
	EventsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_realtime_events_emitted_total",
			Help: "Total events emitted by room pollers.",
		},
		[]string{"stream", "event"},
	)

	// SendFailuresTotal counts connections dropped because a send failed.
	SendFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_realtime_send_failures_total",
			Help: "Total connection sends that failed and triggered cleanup.",
		},
		[]string{"reason"},
	)

	// ActiveConnections is the number of registered connections by transport.
	ActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dashboard_realtime_active_connections",
			Help: "Number of open real-time connections.",
		},
		[]string{"transport"},
	)

	// ActiveRooms is the number of rooms with a running poller.
	ActiveRooms = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dashboard_realtime_active_rooms",
			Help: "Number of rooms with at least one member.",
		},
		[]string{"stream"},
	)

	// PushPublishTotal counts push transport publishes by status.
	PushPublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_push_publish_total",
			Help: "Total events published to the push transport.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		PollTicksTotal,
		PollDurationSeconds,
		EventsEmittedTotal,
		SendFailuresTotal,
		ActiveConnections,
		ActiveRooms,
		PushPublishTotal,
	)
}

// RecordPollTick records one completed poll tick.
func RecordPollTick(stream string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	PollTicksTotal.WithLabelValues(stream, outcome).Inc()
	PollDurationSeconds.WithLabelValues(stream).Observe(duration.Seconds())
}

// RecordEmitted records an event handed to a room.
func RecordEmitted(stream, event string) {
	EventsEmittedTotal.WithLabelValues(stream, event).Inc()
}

// RecordSendFailure records a dropped connection.
func RecordSendFailure(reason string) {
	SendFailuresTotal.WithLabelValues(reason).Inc()
}

// ConnectionOpened and ConnectionClosed track open connections.
func ConnectionOpened(transport string) {
	ActiveConnections.WithLabelValues(transport).Inc()
}

func ConnectionClosed(transport string) {
	ActiveConnections.WithLabelValues(transport).Dec()
}

// RoomOpened and RoomClosed track rooms with a running poller.
func RoomOpened(stream string) {
	ActiveRooms.WithLabelValues(stream).Inc()
}

func RoomClosed(stream string) {
	ActiveRooms.WithLabelValues(stream).Dec()
}

// RecordPushPublish records a push transport publish.
func RecordPushPublish(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	PushPublishTotal.WithLabelValues(status).Inc()
}
