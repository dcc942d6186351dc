package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the server.
type Metrics struct {
	// Session metrics
	activeSessions       prometheus.Gauge
	sessionsCreated      prometheus.Counter
	sessionsDisconnected prometheus.Counter
	sessionsRejected     prometheus.Counter

	// Command metrics
	commandsReceived *prometheus.CounterVec // by control record tag

	// Broadcast metrics
	messagesBroadcast prometheus.Counter
	broadcastFanout   prometheus.Histogram

	// Moderation metrics
	appealsForwarded  prometheus.Counter
	appealsDeduped    prometheus.Counter
	moderationActions *prometheus.CounterVec // by admin action
	adminAuthFailures prometheus.Counter

	// Room metrics
	knownRooms prometheus.Gauge
}

// NewMetrics creates a new metrics instance registered on reg. Pass a
// fresh registry in tests so repeated servers don't collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "multichat_active_sessions",
				Help: "Current number of connected sessions",
			},
		),
		sessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "multichat_sessions_created_total",
				Help: "Total number of sessions created",
			},
		),
		sessionsDisconnected: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "multichat_sessions_disconnected_total",
				Help: "Total number of sessions disconnected",
			},
		),
		sessionsRejected: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "multichat_sessions_rejected_total",
				Help: "Total number of connections rejected because the slot table was full",
			},
		),
		commandsReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multichat_commands_received_total",
				Help: "Total number of control records processed by the broker, by tag",
			},
			[]string{"command"},
		),
		messagesBroadcast: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "multichat_messages_broadcast_total",
				Help: "Total number of messages broadcast to a room (unique messages, not deliveries)",
			},
		),
		broadcastFanout: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "multichat_broadcast_fanout",
				Help:    "Number of sessions that received each broadcast message",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 128},
			},
		),
		appealsForwarded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "multichat_appeals_forwarded_total",
				Help: "Total number of appeals forwarded to admin sessions",
			},
		),
		appealsDeduped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "multichat_appeals_deduped_total",
				Help: "Total number of duplicate appeals suppressed",
			},
		),
		moderationActions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multichat_moderation_actions_total",
				Help: "Total number of admin moderation actions executed, by action",
			},
			[]string{"action"},
		),
		adminAuthFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "multichat_admin_auth_failures_total",
				Help: "Total number of failed admin authentication attempts",
			},
		),
		knownRooms: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "multichat_known_rooms",
				Help: "Number of rooms in the room directory",
			},
		),
	}
}

// RecordActiveSessions updates the active session count.
func (m *Metrics) RecordActiveSessions(count int) {
	m.activeSessions.Set(float64(count))
}

// RecordSessionCreated increments the session creation counter.
func (m *Metrics) RecordSessionCreated() {
	m.sessionsCreated.Inc()
}

// RecordSessionDisconnected increments the disconnection counter.
func (m *Metrics) RecordSessionDisconnected() {
	m.sessionsDisconnected.Inc()
}

// RecordSessionRejected increments the server-full rejection counter.
func (m *Metrics) RecordSessionRejected() {
	m.sessionsRejected.Inc()
}

// RecordCommand increments the received counter for a control tag.
func (m *Metrics) RecordCommand(tag string) {
	m.commandsReceived.WithLabelValues(tag).Inc()
}

// RecordBroadcast records one room broadcast and its fanout.
func (m *Metrics) RecordBroadcast(recipients int) {
	m.messagesBroadcast.Inc()
	m.broadcastFanout.Observe(float64(recipients))
}

// RecordAppealForwarded increments the forwarded appeal counter.
func (m *Metrics) RecordAppealForwarded() {
	m.appealsForwarded.Inc()
}

// RecordAppealDeduped increments the suppressed duplicate counter.
func (m *Metrics) RecordAppealDeduped() {
	m.appealsDeduped.Inc()
}

// RecordModerationAction increments the counter for an admin action.
func (m *Metrics) RecordModerationAction(action string) {
	m.moderationActions.WithLabelValues(action).Inc()
}

// RecordAdminAuthFailure increments the failed auth counter.
func (m *Metrics) RecordAdminAuthFailure() {
	m.adminAuthFailures.Inc()
}

// RecordKnownRooms updates the room directory size gauge.
func (m *Metrics) RecordKnownRooms(count int) {
	m.knownRooms.Set(float64(count))
}
