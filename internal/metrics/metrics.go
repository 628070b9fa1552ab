// Package metrics provides Prometheus instrumentation for the pairing
// server. It exposes gauges for connection, queue and session counts,
// counters for relayed traffic and moderation outcomes, and a histogram of
// how long seekers wait for a partner.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsTotal tracks the current number of live endpoints.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stranger_connections_total",
		Help: "Current number of live WebSocket endpoints",
	})

	// WaitingQueueSize tracks the number of endpoints waiting for a partner.
	WaitingQueueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stranger_waiting_queue_size",
		Help: "Current number of endpoints in the waiting queue",
	})

	// ActiveSessions tracks the number of live pairings.
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stranger_active_sessions",
		Help: "Current number of active sessions",
	})

	// EventsRelayed counts events forwarded to a partner, labeled by kind:
	// "chat", "typing", "stopped_typing", "media_offer", "media_answer",
	// "ice_candidate".
	EventsRelayed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stranger_events_relayed_total",
		Help: "Total number of events relayed between partners",
	}, []string{"kind"})

	// MessagesMasked counts chat lines altered by the courtesy masker.
	MessagesMasked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stranger_messages_masked_total",
		Help: "Total number of chat messages with masked terms",
	})

	// MessagesRejected counts chat lines refused by validation.
	MessagesRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stranger_messages_rejected_total",
		Help: "Total number of chat messages rejected by validation",
	})

	// MatchWait records the time from joining the queue to being paired.
	MatchWait = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stranger_match_wait_seconds",
		Help:    "Time an endpoint spent in the waiting queue before pairing",
		Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60, 120, 300},
	})

	// ReportsTotal counts accepted reports.
	ReportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stranger_reports_total",
		Help: "Total number of accepted reports",
	})

	// BansTotal counts endpoints removed after reaching the report threshold.
	BansTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stranger_bans_total",
		Help: "Total number of endpoints banned for repeated reports",
	})

	// SessionsEnded counts torn-down sessions, labeled by cause: "leave",
	// "skip", "disconnect", "ban".
	SessionsEnded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stranger_sessions_ended_total",
		Help: "Total number of sessions ended",
	}, []string{"cause"}) // cause = "leave", "skip", "disconnect", "ban"
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		WaitingQueueSize,
		ActiveSessions,
		EventsRelayed,
		MessagesMasked,
		MessagesRejected,
		MatchWait,
		ReportsTotal,
		BansTotal,
		SessionsEnded,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
