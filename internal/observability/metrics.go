// Package observability holds the Prometheus collectors and OpenTelemetry
// tracer shared by the HTTP, service and websocket layers.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SignupsTotal counts successful account creations.
	SignupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warbler_signups_total",
		Help: "Total number of accounts created",
	})

	// LoginAttempts counts authentication attempts by outcome (success, failure).
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_login_attempts_total",
		Help: "Total number of login attempts by outcome",
	}, []string{"outcome"})

	// MessagesPosted counts public messages written.
	MessagesPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warbler_messages_posted_total",
		Help: "Total number of public messages posted",
	})

	// FollowEvents counts follow graph changes by action (follow, unfollow).
	FollowEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_follow_events_total",
		Help: "Total number of follow graph changes",
	}, []string{"action"})

	// LikeToggles counts like toggles by resulting state (liked, unliked).
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_like_toggles_total",
		Help: "Total number of like toggles by resulting state",
	}, []string{"state"})

	// ConstraintRaces counts inserts that lost a uniqueness race and were
	// resolved by re-reading the winning row.
	ConstraintRaces = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_constraint_races_total",
		Help: "Total number of unique-constraint races resolved by re-read",
	}, []string{"entity"})

	// ConversationsCreated counts new two-party conversations.
	ConversationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warbler_conversations_created_total",
		Help: "Total number of conversations created",
	})

	// DirectMessagesSent counts DMs appended to conversations.
	DirectMessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warbler_direct_messages_sent_total",
		Help: "Total number of direct messages sent",
	})

	// WebSocketConnections is the gauge of open websocket connections per hub.
	WebSocketConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "warbler_websocket_connections",
		Help: "Number of active WebSocket connections",
	}, []string{"hub"})

	// WebSocketMessages counts frames fanned out to websocket clients by hub.
	WebSocketMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_websocket_messages_total",
		Help: "Total number of messages delivered to WebSocket clients",
	}, []string{"hub", "message_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)
